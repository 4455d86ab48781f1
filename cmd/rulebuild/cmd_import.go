// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/basketrec/internal/logging"
	"github.com/tomtom215/basketrec/internal/recommend/catalog"
)

type importFlags struct {
	db string
	in string
}

func newImportCmd() *cobra.Command {
	flags := &importFlags{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load catalog data into a badger catalog directory",
	}
	cmd.PersistentFlags().StringVar(&flags.db, "db", "", "Badger catalog directory (required)")
	cmd.PersistentFlags().StringVar(&flags.in, "in", "", "Input JSON file (required)")
	_ = cmd.MarkPersistentFlagRequired("db")
	_ = cmd.MarkPersistentFlagRequired("in")

	cmd.AddCommand(&cobra.Command{
		Use:   "tables",
		Short: "Import popularity tables, departments and cluster weights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCatalog(cmd, flags, func(ctx context.Context, store *catalog.Store) (int, error) {
				tables, err := catalog.LoadTablesFile(flags.in)
				if err != nil {
					return 0, err
				}
				if err := store.SaveTables(ctx, tables); err != nil {
					return 0, err
				}
				return tables.Stats().Global, nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "users",
		Short: "Import user profiles (JSON array)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCatalog(cmd, flags, func(ctx context.Context, store *catalog.Store) (int, error) {
				profiles, err := catalog.LoadUsersFile(flags.in)
				if err != nil {
					return 0, err
				}
				return store.PutUsers(ctx, profiles)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "Import purchases (JSON array of user_id, item_id, timestamp)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCatalog(cmd, flags, func(ctx context.Context, store *catalog.Store) (int, error) {
				purchases, err := loadPurchasesFile(flags.in)
				if err != nil {
					return 0, err
				}
				return store.AddPurchases(ctx, purchases)
			})
		},
	})
	return cmd
}

// withCatalog opens the catalog, runs fn and reports the number of records
// written.
func withCatalog(cmd *cobra.Command, flags *importFlags, fn func(context.Context, *catalog.Store) (int, error)) error {
	logger := logging.WithComponent("rulebuild")
	store, err := catalog.Open(flags.db, catalog.DefaultUserDefaults(), logger)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("close catalog")
		}
	}()

	n, err := fn(cmd.Context(), store)
	if err != nil {
		return fmt.Errorf("import %s: %w", cmd.Name(), err)
	}
	logger.Info().Str("kind", cmd.Name()).Int("records", n).Str("db", flags.db).Msg("import complete")
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d %s records into %s\n", n, cmd.Name(), flags.db)
	return err
}

func loadPurchasesFile(path string) ([]catalog.Purchase, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read purchases: %w", err)
	}
	var purchases []catalog.Purchase
	if err := json.Unmarshal(data, &purchases); err != nil {
		return nil, fmt.Errorf("decode purchases %s: %w", path, err)
	}
	for i := range purchases {
		if purchases[i].UserID < 0 || purchases[i].ItemID < 0 {
			return nil, fmt.Errorf("purchase %d: negative id", i)
		}
	}
	return purchases, nil
}
