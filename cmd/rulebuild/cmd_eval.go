// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tomtom215/basketrec/internal/logging"
	"github.com/tomtom215/basketrec/internal/recommend"
	"github.com/tomtom215/basketrec/internal/recommend/catalog"
	"github.com/tomtom215/basketrec/internal/recommend/evaluation"
	"github.com/tomtom215/basketrec/internal/recommend/storage"
)

type evalFlags struct {
	index  string
	cases  string
	tables string
	users  string
	db     string
	cfg    evaluation.Config
}

func newEvalCmd() *cobra.Command {
	flags := &evalFlags{cfg: evaluation.DefaultConfig()}
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score the recommender on held-out baskets",
		Long: "eval loads an index and catalog, recommends for every held-out user\n" +
			"from the last --basket-size purchases, and prints precision, recall,\n" +
			"hit rate, coverage and rule attribution at --k.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEval(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.index, "index", "", "Index artifact path (required)")
	f.StringVar(&flags.cases, "cases", "", "Held-out cases JSON (required)")
	f.StringVar(&flags.tables, "tables", "", "Popularity tables JSON")
	f.StringVar(&flags.users, "users", "", "User profiles JSON")
	f.StringVar(&flags.db, "db", "", "Badger catalog directory; overrides --tables and --users")
	f.IntVar(&flags.cfg.K, "k", flags.cfg.K, "Recommendations per user")
	f.IntVar(&flags.cfg.BasketSize, "basket-size", flags.cfg.BasketSize, "Latest history items used as the basket")
	f.StringVar(&flags.cfg.TimeBucket, "time-bucket", "", "Fixed time bucket (morning, afternoon, evening, night)")
	f.BoolVar(&flags.cfg.IsWeekend, "weekend", false, "Evaluate in the weekend context")
	f.IntVar(&flags.cfg.MaxUsers, "max-users", 0, "Cap on evaluated users (0 = all)")
	_ = cmd.MarkFlagRequired("index")
	_ = cmd.MarkFlagRequired("cases")
	return cmd
}

func runEval(cmd *cobra.Command, flags *evalFlags) error {
	ctx := cmd.Context()
	logger := logging.WithComponent("rulebuild")

	index, _, err := storage.NewStore(logger).Load(ctx, flags.index)
	if err != nil {
		return err
	}
	cases, err := evaluation.LoadCasesFile(flags.cases)
	if err != nil {
		return err
	}

	deps := recommend.Deps{Index: index}
	if flags.db != "" {
		store, err := catalog.Open(flags.db, catalog.DefaultUserDefaults(), logger)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer func() { _ = store.Close() }()
		if deps.Tables, err = store.LoadTables(ctx); err != nil {
			return fmt.Errorf("load tables: %w", err)
		}
		deps.Users = store
	} else {
		if flags.tables != "" {
			if deps.Tables, err = catalog.LoadTablesFile(flags.tables); err != nil {
				return err
			}
		}
		var profiles []catalog.UserProfile
		if flags.users != "" {
			if profiles, err = catalog.LoadUsersFile(flags.users); err != nil {
				return err
			}
		}
		deps.Users = catalog.NewStaticUserLoader(profiles, catalog.DefaultUserDefaults())
	}

	// Every case must run the full pipeline.
	rcfg := recommend.DefaultConfig()
	rcfg.Cache.Enabled = false
	rec, err := recommend.New(deps, rcfg, logger)
	if err != nil {
		return fmt.Errorf("create recommender: %w", err)
	}

	report, err := evaluation.Evaluate(ctx, rec, cases, itemUniverse(deps.Tables), flags.cfg, logger)
	if err != nil {
		return err
	}
	return printJSON(cmd, report)
}

// itemUniverse is the catalog used for item coverage: every item with a
// department, or the global popularity list when departments are absent.
func itemUniverse(t *catalog.Tables) []int {
	if t == nil {
		return nil
	}
	if len(t.Departments) == 0 {
		return t.Global
	}
	items := make([]int, 0, len(t.Departments))
	for id := range t.Departments {
		items = append(items, id)
	}
	sort.Ints(items)
	return items
}
