package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tradecompass/internal/doctrine"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the effective doctrine policy as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := doctrine.LoadPolicy(cfg.PolicyPath)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(policy)
		if err != nil {
			return fmt.Errorf("failed to marshal policy: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}
