// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/basketrec/internal/logging"
)

// newRootCmd builds a fresh command tree so tests can run commands
// in-process without shared flag state.
func newRootCmd() *cobra.Command {
	var logLevel, logFormat string
	root := &cobra.Command{
		Use:   "rulebuild",
		Short: "Build, inspect and evaluate Basketrec rule artifacts",
		Long: "rulebuild turns raw association-rule miner output into the rule index\n" +
			"served by basketrec, loads catalog data into the badger store, and\n" +
			"measures recommendation quality on held-out baskets.",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !logging.ValidLevel(logLevel) {
				return fmt.Errorf("invalid --log-level %q", logLevel)
			}
			cfg := logging.DefaultConfig()
			cfg.Level = logLevel
			cfg.Format = logFormat
			cfg.Output = cmd.ErrOrStderr()
			logging.Init(cfg)
			return nil
		},
	}
	root.Version = version

	pf := root.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "console", "Log format (console or json)")

	root.AddCommand(newBuildCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newEvalCmd())
	return root
}

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
