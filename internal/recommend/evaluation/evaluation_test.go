// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package evaluation

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"

	"github.com/tomtom215/basketrec/internal/recommend"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRankingMetrics(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name          string
		recommended   []int
		relevant      []int
		k             int
		wantPrecision float64
		wantRecall    float64
		wantHit       float64
	}{
		{"two of three relevant", []int{1, 2, 3}, []int{2, 3, 9, 10}, 3, 2.0 / 3, 0.5, 1},
		{"relevant outside top k", []int{1, 2, 3}, []int{3}, 2, 0, 0, 0},
		{"short list divides by k", []int{7}, []int{7}, 4, 0.25, 1, 1},
		{"zero k", []int{1}, []int{1}, 0, 0, 0, 0},
		{"empty relevant", []int{1, 2}, nil, 2, 0, 0, 0},
		{"duplicate relevant counted once", []int{4, 5}, []int{4, 4}, 2, 0.5, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := PrecisionAtK(tt.recommended, tt.relevant, tt.k); !approx(got, tt.wantPrecision) {
				t.Errorf("PrecisionAtK = %f, want %f", got, tt.wantPrecision)
			}
			if got := RecallAtK(tt.recommended, tt.relevant, tt.k); !approx(got, tt.wantRecall) {
				t.Errorf("RecallAtK = %f, want %f", got, tt.wantRecall)
			}
			if got := HitRateAtK(tt.recommended, tt.relevant, tt.k); got != tt.wantHit {
				t.Errorf("HitRateAtK = %f, want %f", got, tt.wantHit)
			}
		})
	}
}

func TestCoverageMetrics(t *testing.T) {
	t.Parallel()
	recs := map[int][]int{1: {10, 11}, 2: {}, 3: {11, 12}, 4: {99}}

	if got := UserCoverage(recs); got != 0.75 {
		t.Errorf("UserCoverage = %f, want 0.75", got)
	}
	if got := UserCoverage(nil); got != 0 {
		t.Errorf("UserCoverage(nil) = %f", got)
	}
	if got := ItemCoverage(recs, []int{10, 11, 12, 13}); got != 0.75 {
		t.Errorf("ItemCoverage = %f, want 0.75", got)
	}
	if got := ItemCoverage(recs, nil); got != 0 {
		t.Errorf("ItemCoverage with empty catalog = %f", got)
	}
}

func TestSourceMetrics(t *testing.T) {
	t.Parallel()
	labels := map[int]string{1: LabelRules, 2: LabelRulesFallback, 3: LabelFallback, 4: LabelFallback}

	if got := RuleHitRate(labels); got != 0.5 {
		t.Errorf("RuleHitRate = %f, want 0.5", got)
	}
	if got := RuleHitRate(nil); got != 0 {
		t.Errorf("RuleHitRate(nil) = %f", got)
	}
	want := map[string]float64{LabelRules: 0.25, LabelRulesFallback: 0.25, LabelFallback: 0.5}
	if diff := cmp.Diff(want, SourceDistribution(labels)); diff != "" {
		t.Errorf("SourceDistribution mismatch (-want +got):\n%s", diff)
	}
	if got := SourceDistribution(nil); len(got) != 0 {
		t.Errorf("SourceDistribution(nil) = %v", got)
	}
}

// scripted answers every request from a fixed table keyed by user.
type scripted struct {
	responses map[int]*recommend.Response
	baskets   map[int][]int
}

func (s *scripted) Recommend(_ context.Context, req recommend.Request) (*recommend.Response, error) {
	if s.baskets == nil {
		s.baskets = make(map[int][]int)
	}
	s.baskets[req.UserID] = req.Basket
	if r, ok := s.responses[req.UserID]; ok {
		return r, nil
	}
	return &recommend.Response{ItemIDs: []int{}, Items: []recommend.Item{}, Metadata: &recommend.Metadata{}}, nil
}

func response(items ...recommend.Item) *recommend.Response {
	resp := &recommend.Response{Items: items, Metadata: &recommend.Metadata{}}
	for _, it := range items {
		resp.ItemIDs = append(resp.ItemIDs, it.ItemID)
		switch {
		case it.HasSource(recommend.SourceRule):
			resp.Metadata.RuleItemCount++
		case it.HasSource(recommend.SourceInsurance):
			resp.Metadata.InsuranceUsed = true
		default:
			resp.Metadata.FallbackUsed = true
		}
	}
	return resp
}

func item(id int, src recommend.Source) recommend.Item {
	return recommend.Item{ItemID: id, Sources: []recommend.Source{src}}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()
	rec := &scripted{responses: map[int]*recommend.Response{
		1: response(item(10, recommend.SourceRule), item(11, recommend.SourceRule)),
		2: response(item(20, recommend.SourcePopularGlobal), item(10, recommend.SourceInsurance)),
		3: response(item(30, recommend.SourceRule), item(31, recommend.SourceInsurance)),
	}}
	cases := []Case{
		{UserID: 1, History: []int{1, 2, 3, 4, 5, 6, 7}, Truth: []int{10}},
		{UserID: 2, History: []int{8}, Truth: []int{20, 10}},
		{UserID: 3, History: []int{9}, Truth: []int{99}},
		{UserID: 4, History: nil, Truth: []int{1}},
	}
	cfg := DefaultConfig()
	cfg.K = 2

	rep, err := Evaluate(context.Background(), rec, cases, []int{10, 11, 20, 30, 31, 40, 41, 42, 43, 44}, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if diff := cmp.Diff([]int{3, 4, 5, 6, 7}, rec.baskets[1]); diff != "" {
		t.Errorf("basket mismatch (-want +got):\n%s", diff)
	}
	if rep.UsersEvaluated != 3 || rep.UsersSkipped != 1 {
		t.Errorf("evaluated/skipped = %d/%d", rep.UsersEvaluated, rep.UsersSkipped)
	}

	want := &Report{
		K:                cfg.K,
		UsersEvaluated:   3,
		UsersSkipped:     1,
		Precision:        (0.5 + 1 + 0) / 3,
		Recall:           (1 + 1 + 0) / 3.0,
		HitRate:          2.0 / 3,
		UserCoverage:     1,
		ItemCoverage:     0.5,
		RuleUserCoverage: 2.0 / 3,
		RuleItemShare:    3.0 / 6,
		RuleSlots:        map[int]float64{1: 2.0 / 3, 3: 0, 5: 0},
		HitShare: map[recommend.Source]float64{
			recommend.SourceRule:          1.0 / 3,
			recommend.SourcePopularGlobal: 1.0 / 3,
			recommend.SourceInsurance:     1.0 / 3,
		},
		RuleHitRate: 2.0 / 3,
		SourceDistribution: map[string]float64{
			LabelRules:         1.0 / 3,
			LabelFallback:      1.0 / 3,
			LabelRulesFallback: 1.0 / 3,
		},
	}
	if diff := cmp.Diff(want, rep, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_NoUsers(t *testing.T) {
	t.Parallel()
	rep, err := Evaluate(context.Background(), &scripted{}, []Case{{UserID: 1, History: []int{1}}}, nil, DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if rep.UsersEvaluated != 0 || rep.UserCoverage != 0 {
		t.Errorf("report = %+v", rep)
	}
}

type failing struct{}

func (failing) Recommend(context.Context, recommend.Request) (*recommend.Response, error) {
	return nil, context.DeadlineExceeded
}

func TestEvaluate_Errors(t *testing.T) {
	t.Parallel()
	cases := []Case{{UserID: 1, History: []int{1}}}

	if _, err := Evaluate(context.Background(), failing{}, cases, nil, DefaultConfig(), zerolog.Nop()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want wrapped DeadlineExceeded", err)
	}

	bad := DefaultConfig()
	bad.K = 0
	if _, err := Evaluate(context.Background(), &scripted{}, cases, nil, bad, zerolog.Nop()); err == nil {
		t.Error("zero k accepted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Evaluate(ctx, &scripted{}, cases, nil, DefaultConfig(), zerolog.Nop()); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestLoadCasesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cases.json")
	body := `[{"user_id": 3, "history": [1, 2], "truth": [5]}]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := LoadCasesFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Case{{UserID: 3, History: []int{1, 2}, Truth: []int{5}}}, got); diff != "" {
		t.Errorf("cases mismatch (-want +got):\n%s", diff)
	}

	if _, err := LoadCasesFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file accepted")
	}
}
