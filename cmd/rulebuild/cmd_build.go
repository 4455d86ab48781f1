// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/basketrec/internal/logging"
	"github.com/tomtom215/basketrec/internal/recommend/rules"
	"github.com/tomtom215/basketrec/internal/recommend/storage"
)

type buildFlags struct {
	in  string
	out string
	cfg rules.BuilderConfig
}

func newBuildCmd() *cobra.Command {
	flags := &buildFlags{cfg: rules.DefaultBuilderConfig()}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a rule index from raw miner output",
		Long: "build reads {context_key: {antecedent_key: [raw rules]}} JSON, drops\n" +
			"invalid and low-lift rules, rescores and truncates each antecedent list,\n" +
			"and writes the versioned, checksummed index artifact.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.in, "in", "", "Raw rules JSON (required)")
	f.StringVar(&flags.out, "out", "", "Output artifact path; .gz enables compression (required)")
	f.Float64Var(&flags.cfg.MinLift, "min-lift", flags.cfg.MinLift, "Drop rules with lift below this")
	f.IntVar(&flags.cfg.MaxRulesPerAntecedent, "max-rules", flags.cfg.MaxRulesPerAntecedent, "Rules kept per antecedent")
	f.Float64Var(&flags.cfg.ConfidenceWeight, "confidence-weight", flags.cfg.ConfidenceWeight, "Score weight of confidence")
	f.Float64Var(&flags.cfg.LiftWeight, "lift-weight", flags.cfg.LiftWeight, "Score weight of normalized lift")
	f.Float64Var(&flags.cfg.LiftCap, "lift-cap", flags.cfg.LiftCap, "Lift cap inside the score")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runBuild(cmd *cobra.Command, flags *buildFlags) error {
	logger := logging.WithComponent("rulebuild")

	builder, err := rules.NewBuilder(flags.cfg, logger)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(flags.in)
	if err != nil {
		return fmt.Errorf("read raw rules: %w", err)
	}
	var raw rules.RawContextIndex
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse raw rules %s: %w", flags.in, err)
	}

	index, stats := builder.BuildContexts(raw)
	if len(index) == 0 {
		return errors.New("no rules survived the build; nothing written")
	}

	meta, err := storage.NewStore(logger).Save(cmd.Context(), index, flags.out)
	if err != nil {
		return err
	}

	logger.Info().
		Int("rules_in", stats.RulesIn).
		Int("kept", stats.Kept).
		Int("low_lift", stats.LowLift).
		Int("invalid", stats.Invalid).
		Str("out", flags.out).
		Msg("rule index written")

	return printJSON(cmd, struct {
		Build    rules.BuildStats `json:"build"`
		Artifact *storage.Meta    `json:"artifact"`
	}{stats, meta})
}
