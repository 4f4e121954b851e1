// tradecompass turns a normalized activity pack from a small trades
// business into a decision artifact: three paths, one recommendation, a
// first-month action list.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tradecompass/internal/config"
	"tradecompass/internal/logging"
)

var (
	cfgPath string
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tradecompass",
	Short: "Decision pipeline for small trades businesses",
	Long: `tradecompass reads a normalized activity pack (quotes, invoices,
jobs, customers) and runs it through a five-stage, schema-validated,
content-governed pipeline. The output is a decision artifact: three
named paths, one recommendation, and a first-30-days action list.

Every stage output is validated against a closed contract and scanned by
the doctrine guard before the next stage may run. With the default
rules/v1 models the whole run is deterministic and needs no credentials.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := logging.Initialize(cfg.Logging.Level, verbose || cfg.Logging.Verbose); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "tradecompass.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(signalsCmd)
	rootCmd.AddCommand(policyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
