package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tradecompass/internal/pipeline"
)

var (
	batchDir     string
	batchWorkers int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the pipeline over every pack in a directory",
	Long: `batch runs every *.json pack under --dir through the pipeline, a few
at a time. Runs are independent: one failed pack never stops the others,
and the command reports per-pack outcomes at the end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		packs, err := filepath.Glob(filepath.Join(batchDir, "*.json"))
		if err != nil {
			return err
		}
		if len(packs) == 0 {
			return fmt.Errorf("no pack files found under %s", batchDir)
		}
		sort.Strings(packs)

		orch, cleanup, err := buildOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		type outcome struct {
			path   string
			result *pipeline.Result
			err    error
		}
		outcomes := make([]outcome, len(packs))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(batchWorkers)
		var mu sync.Mutex
		for i, path := range packs {
			i, path := i, path
			g.Go(func() error {
				result, err := runOnePack(gctx, orch, path)
				mu.Lock()
				outcomes[i] = outcome{path: path, result: result, err: err}
				mu.Unlock()
				// run errors are per-pack outcomes, not group failures
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, oc := range outcomes {
			name := filepath.Base(oc.path)
			switch {
			case oc.err != nil:
				failed++
				fmt.Fprintf(out, "%-40s error: %v\n", name, oc.err)
			case oc.result.Status == pipeline.StatusFailed:
				failed++
				fmt.Fprintf(out, "%-40s failed at %s (%s)\n", name, oc.result.Failure.Stage, oc.result.Failure.Code)
			default:
				fmt.Fprintf(out, "%-40s completed, recommended path %s\n", name, oc.result.Decision.RecommendedPath)
			}
		}
		fmt.Fprintf(out, "\n%d of %d packs completed\n", len(outcomes)-failed, len(outcomes))
		if failed > 0 {
			return fmt.Errorf("%d pack(s) did not complete", failed)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "dir", "", "directory of activity pack JSON files (required)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 4, "concurrent runs")
	batchCmd.MarkFlagRequired("dir")
}
