// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/tomtom215/basketrec/internal/recommend/catalog"
	"github.com/tomtom215/basketrec/internal/recommend/evaluation"
	"github.com/tomtom215/basketrec/internal/recommend/rules"
	"github.com/tomtom215/basketrec/internal/recommend/storage"
)

// Commands reconfigure the global logger, so these tests do not run in
// parallel.

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

const rawRules = `{
  "GLOBAL": {
    "1": [
      {"consequent": 2, "confidence": 0.6, "lift": 3.0, "support": 0.02},
      {"consequent": 3, "confidence": 0.4, "lift": 1.01, "support": 0.01},
      {"consequent": 4, "confidence": 0.3, "lift": 2.0}
    ],
    "1|5": [
      {"consequent": 6, "confidence": 0.7, "lift": 4.0}
    ]
  },
  "time_bucket=morning|is_weekend=false": {
    "1": [{"consequent": 7, "confidence": 0.5, "lift": 2.5}]
  }
}`

func buildIndex(t *testing.T, dir string) string {
	t.Helper()
	in := filepath.Join(dir, "raw.json")
	writeFile(t, in, rawRules)
	out := filepath.Join(dir, "rules.json.gz")
	if _, err := execute(t, "build", "--in", in, "--out", out); err != nil {
		t.Fatalf("build: %v", err)
	}
	return out
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "raw.json")
	writeFile(t, in, rawRules)
	out := filepath.Join(dir, "rules.json.gz")

	stdout, err := execute(t, "build", "--in", in, "--out", out)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var got struct {
		Build rules.BuildStats `json:"build"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decode output %q: %v", stdout, err)
	}
	if got.Build.RulesIn != 5 || got.Build.Kept != 4 {
		t.Errorf("stats = %+v, want 5 in and 4 kept", got.Build)
	}

	idx, _, err := storage.NewStore(zerolog.Nop()).Load(context.Background(), out)
	if err != nil {
		t.Fatalf("load built index: %v", err)
	}
	if diff := cmp.Diff([]string{"GLOBAL", "time_bucket=morning|is_weekend=false"}, idx.ContextKeys()); diff != "" {
		t.Errorf("contexts (-want +got):\n%s", diff)
	}
	if got := idx[rules.GlobalContext]["1"]; len(got) != 2 || got[0].Consequent != 2 {
		t.Errorf("GLOBAL[1] = %+v, want consequents 2 and 4 with 2 first", got)
	}
}

func TestBuild_Errors(t *testing.T) {
	dir := t.TempDir()
	lowLift := filepath.Join(dir, "low.json")
	writeFile(t, lowLift, `{"GLOBAL": {"1": [{"consequent": 2, "confidence": 0.5, "lift": 0.9}]}}`)
	malformed := filepath.Join(dir, "bad.json")
	writeFile(t, malformed, `{"GLOBAL": [`)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing flags", []string{"build"}, "required flag"},
		{"missing input", []string{"build", "--in", filepath.Join(dir, "none.json"), "--out", filepath.Join(dir, "o.json")}, "read raw rules"},
		{"malformed input", []string{"build", "--in", malformed, "--out", filepath.Join(dir, "o.json")}, "parse raw rules"},
		{"nothing survives", []string{"build", "--in", lowLift, "--out", filepath.Join(dir, "o.json")}, "no rules survived"},
		{"bad weights", []string{"build", "--in", lowLift, "--out", filepath.Join(dir, "o.json"), "--confidence-weight", "-1"}, ""},
		{"bad log level", []string{"--log-level", "loud", "inspect", "--index", "x"}, "invalid --log-level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != "" && !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestInspect(t *testing.T) {
	index := buildIndex(t, t.TempDir())

	tests := []struct {
		name         string
		args         []string
		wantVerified bool
	}{
		{"metadata only", []string{"inspect", "--index", index}, false},
		{"verify", []string{"inspect", "--index", index, "--verify"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("inspect: %v", err)
			}
			var got struct {
				SchemaVersion int              `json:"schema_version"`
				Stats         rules.IndexStats `json:"stats"`
				SizeBytes     int64            `json:"size_bytes"`
				Verified      bool             `json:"verified"`
			}
			if err := json.Unmarshal([]byte(stdout), &got); err != nil {
				t.Fatalf("decode %q: %v", stdout, err)
			}
			if got.Stats.Contexts != 2 || got.Stats.Rules != 4 {
				t.Errorf("stats = %+v, want 2 contexts and 4 rules", got.Stats)
			}
			if got.SizeBytes <= 0 {
				t.Errorf("size_bytes = %d", got.SizeBytes)
			}
			if got.Verified != tt.wantVerified {
				t.Errorf("verified = %v, want %v", got.Verified, tt.wantVerified)
			}
		})
	}
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "catalog")
	tablesPath := filepath.Join(dir, "tables.json")
	usersPath := filepath.Join(dir, "users.json")
	historyPath := filepath.Join(dir, "history.json")
	writeFile(t, tablesPath, `{"global": [9, 8, 7], "departments": {"9": "produce"}}`)
	writeFile(t, usersPath, `[{"user_id": 3, "behavior_cluster": 2, "preference_cluster": 1, "lifecycle_stage": "loyal"}]`)
	writeFile(t, historyPath, `[
		{"user_id": 3, "item_id": 11, "timestamp": "2026-01-01T10:00:00Z"},
		{"user_id": 3, "item_id": 12, "timestamp": "2026-01-02T10:00:00Z"}
	]`)

	for _, kind := range []string{"tables", "users", "history"} {
		in := map[string]string{"tables": tablesPath, "users": usersPath, "history": historyPath}[kind]
		stdout, err := execute(t, "import", kind, "--db", db, "--in", in)
		if err != nil {
			t.Fatalf("import %s: %v", kind, err)
		}
		if !strings.Contains(stdout, "imported") {
			t.Errorf("import %s output = %q", kind, stdout)
		}
	}

	store, err := catalog.Open(db, catalog.DefaultUserDefaults(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	tables, err := store.LoadTables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{9, 8, 7}, tables.Global); diff != "" {
		t.Errorf("global (-want +got):\n%s", diff)
	}
	profile, err := store.UserContext(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if profile.LifecycleStage != "loyal" || profile.BehaviorCluster != 2 {
		t.Errorf("profile = %+v", profile)
	}
	recent, err := store.RecentItems(ctx, 3, 5)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{12, 11}, recent); diff != "" {
		t.Errorf("recent items (-want +got):\n%s", diff)
	}
}

func TestImport_BadHistory(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "history.json")
	writeFile(t, in, `[{"user_id": -1, "item_id": 2, "timestamp": "2026-01-01T10:00:00Z"}]`)
	if _, err := execute(t, "import", "history", "--db", filepath.Join(dir, "db"), "--in", in); err == nil {
		t.Fatal("negative user id accepted")
	}
}

func TestEval(t *testing.T) {
	dir := t.TempDir()
	index := buildIndex(t, dir)
	tablesPath := filepath.Join(dir, "tables.json")
	writeFile(t, tablesPath, `{"global": [20, 21, 22, 23, 24, 25]}`)
	casesPath := filepath.Join(dir, "cases.json")
	writeFile(t, casesPath, `[
		{"user_id": 1, "history": [1], "truth": [2]},
		{"user_id": 2, "history": [], "truth": [3]}
	]`)

	stdout, err := execute(t, "eval",
		"--index", index, "--tables", tablesPath, "--cases", casesPath,
		"--k", "5", "--time-bucket", "afternoon")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	var rep evaluation.Report
	if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if rep.K != 5 || rep.UsersEvaluated != 1 || rep.UsersSkipped != 1 {
		t.Errorf("report = %+v", rep)
	}
	if rep.HitRate != 1 {
		t.Errorf("hit_rate = %v, want 1 (rule consequent 2 recommended)", rep.HitRate)
	}
}

func TestItemUniverse(t *testing.T) {
	tests := []struct {
		name   string
		tables *catalog.Tables
		want   []int
	}{
		{"nil tables", nil, nil},
		{"global only", &catalog.Tables{Global: []int{3, 1}}, []int{3, 1}},
		{"departments", &catalog.Tables{Global: []int{3}, Departments: map[int]string{5: "a", 2: "b"}}, []int{2, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, itemUniverse(tt.tables)); diff != "" {
				t.Errorf("itemUniverse() (-want +got):\n%s", diff)
			}
		})
	}
}
