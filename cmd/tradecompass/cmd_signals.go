package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tradecompass/internal/bucketing"
	"tradecompass/internal/pack"
)

var (
	signalsPackPath string
	signalsWindow   string
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Print the bucketed signals for a pack without running the pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := pack.LoadFile(signalsPackPath)
		if err != nil {
			return err
		}
		features, err := bucketing.ComputeFeatures(p, bucketing.WindowMode(signalsWindow))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "window: %s (%d days)\n\n", features.Window.Mode, features.Window.Days)
		fmt.Fprintf(out, "%-24s %-10s %-8s %s\n", "SIGNAL", "VALUE", "CONF", "EVIDENCE")
		for _, b := range features.Buckets {
			fmt.Fprintf(out, "%-24s %-10s %-8s %s\n", b.Signal, b.Value, b.Confidence, b.Evidence)
		}
		if len(features.DataLimits.Notes) > 0 {
			fmt.Fprintln(out)
			for _, note := range features.DataLimits.Notes {
				fmt.Fprintf(out, "note: %s\n", note)
			}
		}
		return nil
	},
}

func init() {
	signalsCmd.Flags().StringVar(&signalsPackPath, "pack", "", "activity pack JSON file (required)")
	signalsCmd.Flags().StringVar(&signalsWindow, "window", string(bucketing.WindowLast90Days), "window mode")
	signalsCmd.MarkFlagRequired("pack")
}
