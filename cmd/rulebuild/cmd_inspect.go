// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package main

import (
	"github.com/spf13/cobra"

	"github.com/tomtom215/basketrec/internal/logging"
	"github.com/tomtom215/basketrec/internal/recommend/storage"
)

// inspectOutput adds the on-disk size, which Meta does not serialize.
type inspectOutput struct {
	*storage.Meta
	SizeBytes int64    `json:"size_bytes"`
	Verified  bool     `json:"verified"`
	Contexts  []string `json:"contexts,omitempty"`
}

func newInspectCmd() *cobra.Command {
	var (
		index  string
		verify bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print an index artifact's metadata",
		Long: "inspect prints schema version, algorithm, creation time, sizes and\n" +
			"checksum. With --verify the whole artifact is loaded, which checks the\n" +
			"checksum and validates every rule.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := storage.NewStore(logging.WithComponent("rulebuild"))
			if !verify {
				meta, err := store.Inspect(cmd.Context(), index)
				if err != nil {
					return err
				}
				return printJSON(cmd, inspectOutput{Meta: meta, SizeBytes: meta.SizeBytes})
			}

			idx, meta, err := store.Load(cmd.Context(), index)
			if err != nil {
				return err
			}
			return printJSON(cmd, inspectOutput{
				Meta:      meta,
				SizeBytes: meta.SizeBytes,
				Verified:  true,
				Contexts:  idx.ContextKeys(),
			})
		},
	}
	cmd.Flags().StringVar(&index, "index", "", "Index artifact path (required)")
	cmd.Flags().BoolVar(&verify, "verify", false, "Load the full artifact and verify its checksum")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}
