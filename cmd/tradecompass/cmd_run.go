package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tradecompass/internal/bucketing"
	"tradecompass/internal/contracts"
	"tradecompass/internal/doctrine"
	"tradecompass/internal/executor"
	"tradecompass/internal/pack"
	"tradecompass/internal/pipeline"
	"tradecompass/internal/prompts"
	"tradecompass/internal/store"
)

var (
	runPackPath  string
	runIndustry  string
	runWindow    string
	runWorkspace string
	runJSON      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline against one activity pack",
	Example: `  tradecompass run --pack mesa-plumbing.json --industry plumbing
  tradecompass run --pack pack.json --window last_12_months --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		orch, cleanup, err := buildOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := runOnePack(ctx, orch, runPackPath)
		if err != nil {
			return err
		}
		return printResult(cmd, result)
	},
}

func init() {
	runCmd.Flags().StringVar(&runPackPath, "pack", "", "activity pack JSON file (required)")
	runCmd.Flags().StringVar(&runIndustry, "industry", "", "industry override (defaults to the pack's)")
	runCmd.Flags().StringVar(&runWindow, "window", string(bucketing.WindowLast90Days), "window mode: last_90_days, last_12_months or cap_100_closed")
	runCmd.Flags().StringVar(&runWorkspace, "workspace", "default", "workspace id recorded on the run")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "emit the decision artifact as JSON")
	runCmd.MarkFlagRequired("pack")
}

// buildOrchestrator wires stores, guard, prompts and backend from config.
// The cleanup closes whatever was opened.
func buildOrchestrator(ctx context.Context) (*pipeline.Orchestrator, func(), error) {
	var backend executor.Backend
	if cfg.Backend.APIKey != "" {
		g, err := executor.NewGeminiBackend(ctx, cfg.Backend.APIKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create generation backend: %w", err)
		}
		backend = g
	}

	var st store.ArtifactStore = store.NewMemoryStore()
	if cfg.StorePath != "" {
		s, err := store.NewSQLiteStore(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		st = s
	}

	src, err := prompts.LoadSource(cfg.PromptsPath)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	models := make(map[contracts.StageName]string, len(cfg.Models))
	for stage, model := range cfg.Models {
		models[contracts.StageName(stage)] = model
	}

	orch := pipeline.NewOrchestrator(pipeline.Options{
		Executor:     executor.New(backend),
		Guard:        doctrine.NewGuard(doctrine.SharedPolicy(cfg.PolicyPath)),
		Store:        st,
		Prompts:      src,
		Models:       models,
		DefaultModel: cfg.DefaultModel,
	})
	return orch, func() { st.Close() }, nil
}

// runOnePack loads, buckets and runs a single pack.
func runOnePack(ctx context.Context, orch *pipeline.Orchestrator, path string) (*pipeline.Result, error) {
	p, err := pack.LoadFile(path)
	if err != nil {
		return nil, err
	}

	industry := runIndustry
	if industry == "" {
		industry = p.Industry
	}
	industry = pack.NormalizeIndustry(industry)

	features, err := bucketing.ComputeFeatures(p, bucketing.WindowMode(runWindow))
	if err != nil {
		return nil, err
	}

	state := pipeline.NewRuntimeState(runWorkspace, industry, features)
	state.BusinessName = p.BusinessName
	return orch.Run(ctx, state), nil
}

func printResult(cmd *cobra.Command, result *pipeline.Result) error {
	out := cmd.OutOrStdout()

	if result.Status == pipeline.StatusFailed {
		f := result.Failure
		fmt.Fprintf(out, "run %s failed at stage %s\n", result.RunID, f.Stage)
		fmt.Fprintf(out, "  code:   %s\n", f.Code)
		fmt.Fprintf(out, "  detail: %s\n", f.Detail)
		fmt.Fprintf(out, "  next:   %s\n", f.Action)
		return fmt.Errorf("run failed (%s)", f.Code)
	}

	if runJSON {
		data, err := json.MarshalIndent(result.Decision, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	d := result.Decision
	fmt.Fprintf(out, "run %s completed\n\n", result.RunID)
	for _, key := range contracts.PathKeys {
		p := d.Paths[key]
		marker := " "
		if key == d.RecommendedPath {
			marker = "*"
		}
		fmt.Fprintf(out, "%s Path %s: %s\n    %s\n    trade-off: %s\n", marker, key, p.Title, p.Thesis, p.Tradeoff)
	}
	fmt.Fprintf(out, "\nfirst 30 days:\n")
	for i, action := range d.First30Days {
		fmt.Fprintf(out, "  %d. %s\n", i+1, action)
	}
	return nil
}
