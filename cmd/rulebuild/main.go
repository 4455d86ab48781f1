// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

// Command rulebuild prepares the offline artifacts of a Basketrec
// deployment: it builds the rule index from raw miner output, inspects
// artifacts, imports catalog data into the badger store and runs offline
// evaluation.
//
//	rulebuild build   --in raw_rules.json --out rules.json.gz
//	rulebuild inspect --index rules.json.gz --verify
//	rulebuild import tables  --db ./catalog --in tables.json
//	rulebuild import users   --db ./catalog --in users.json
//	rulebuild import history --db ./catalog --in purchases.json
//	rulebuild eval    --index rules.json.gz --tables tables.json --cases holdout.json
package main

import (
	"fmt"
	"os"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
