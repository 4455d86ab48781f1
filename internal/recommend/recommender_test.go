// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package recommend

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tomtom215/basketrec/internal/recommend/catalog"
	"github.com/tomtom215/basketrec/internal/recommend/rules"
)

func rule(ant []int, consequent int, score float64) rules.Rule {
	return rules.Rule{
		RuleID:     rules.RuleID(ant, consequent),
		Antecedent: ant,
		Consequent: consequent,
		Confidence: score,
		Lift:       2,
		Support:    0.01,
		Score:      score,
	}
}

// unmatchedIndex never produces candidates for baskets without item 999.
func unmatchedIndex() rules.ContextRuleIndex {
	return rules.ContextRuleIndex{
		rules.GlobalContext: {"999": {rule([]int{999}, 998, 1)}},
	}
}

func testIndex() rules.ContextRuleIndex {
	return rules.ContextRuleIndex{
		rules.GlobalContext: {
			"101":     {rule([]int{101}, 202, 0.9), rule([]int{101}, 303, 0.5)},
			"102":     {rule([]int{102}, 404, 0.7), rule([]int{102}, 101, 0.6)},
			"101|102": {rule([]int{101, 102}, 505, 1.2)},
		},
		"is_weekend=0|time_bucket=morning": {
			"101": {rule([]int{101}, 606, 0.8)},
		},
	}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Cache.Enabled = false
	return cfg
}

func weekday() *bool {
	b := false
	return &b
}

func newTestRecommender(t *testing.T, deps Deps, cfg *Config) *Recommender {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	r, err := New(deps, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.now = func() time.Time { return time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC) } // Wednesday morning
	return r
}

func sources(items []Item) [][]Source {
	out := make([][]Source, len(items))
	for i := range items {
		out[i] = items[i].Sources
	}
	return out
}

func TestRecommend_InsuranceOnlyCatalog(t *testing.T) {
	t.Parallel()
	tables := catalog.NewTables()
	tables.Global = []int{5, 6, 7}
	r := newTestRecommender(t, Deps{Index: unmatchedIndex(), Tables: tables}, nil)

	resp, err := r.Recommend(context.Background(), Request{
		UserID:         1,
		Basket:         []int{1},
		TimeBucket:     "morning",
		IsWeekend:      weekday(),
		TopK:           3,
		ReturnMetadata: true,
	})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	if diff := cmp.Diff([]int{5, 6, 7}, resp.ItemIDs); diff != "" {
		t.Errorf("ItemIDs mismatch (-want +got):\n%s", diff)
	}
	for _, it := range resp.Items {
		if !it.HasSource(SourceInsurance) || len(it.Sources) != 1 {
			t.Errorf("item %d sources = %v, want [INSURANCE]", it.ItemID, it.Sources)
		}
	}
	m := resp.Metadata
	if m.RuleCandidates != 0 || !m.FallbackUsed || m.FallbackTier != SourceInsurance || m.FinalReturned != 3 {
		t.Errorf("metadata = %+v", m)
	}
}

func TestRecommend_RulesSufficient(t *testing.T) {
	t.Parallel()
	r := newTestRecommender(t, Deps{Index: testIndex()}, nil)

	resp, err := r.Recommend(context.Background(), Request{
		UserID:         1,
		Basket:         []int{101},
		TimeBucket:     "evening",
		IsWeekend:      weekday(),
		TopK:           2,
		ReturnMetadata: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{202, 303}, resp.ItemIDs); diff != "" {
		t.Errorf("ItemIDs mismatch (-want +got):\n%s", diff)
	}
	for _, it := range resp.Items {
		if diff := cmp.Diff([]Source{SourceRule}, it.Sources); diff != "" {
			t.Errorf("item %d sources mismatch:\n%s", it.ItemID, diff)
		}
		if diff := cmp.Diff([]string{"L5"}, it.Levels); diff != "" {
			t.Errorf("item %d levels mismatch:\n%s", it.ItemID, diff)
		}
	}
	m := resp.Metadata
	if m.FallbackUsed || m.InsuranceUsed {
		t.Errorf("unexpected fallback/insurance: %+v", m)
	}
	if m.RuleCandidates != 2 || m.RuleItemCount != 2 {
		t.Errorf("RuleCandidates = %d, RuleItemCount = %d", m.RuleCandidates, m.RuleItemCount)
	}
	if diff := cmp.Diff([]string{"L5::GLOBAL (hits=2, decay=0.30, ratio=1.00)"}, m.MatchedContexts); diff != "" {
		t.Errorf("MatchedContexts mismatch:\n%s", diff)
	}
}

func TestRecommend_ContextLevelContributes(t *testing.T) {
	t.Parallel()
	r := newTestRecommender(t, Deps{Index: testIndex()}, nil)

	resp, err := r.Recommend(context.Background(), Request{
		UserID:         1,
		Basket:         []int{101},
		TimeBucket:     "morning",
		IsWeekend:      weekday(),
		TopK:           3,
		ReturnMetadata: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{606, 202, 303}, resp.ItemIDs); diff != "" {
		t.Errorf("ItemIDs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"L4"}, resp.Items[0].Levels); diff != "" {
		t.Errorf("item 606 levels mismatch:\n%s", diff)
	}
}

func TestRecommend_FallbackAndInsuranceFill(t *testing.T) {
	t.Parallel()
	tables := catalog.NewTables()
	tables.ByTimeBucket["morning"] = []int{11}
	tables.Global = []int{11, 12, 13, 14}
	index := rules.ContextRuleIndex{
		rules.GlobalContext: {"101": {rule([]int{101}, 202, 0.9)}},
	}
	r := newTestRecommender(t, Deps{Index: index, Tables: tables}, nil)

	resp, err := r.Recommend(context.Background(), Request{
		UserID:         1,
		Basket:         []int{101},
		TimeBucket:     "morning",
		IsWeekend:      weekday(),
		TopK:           5,
		ReturnMetadata: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]int{202, 11, 12, 13, 14}, resp.ItemIDs); diff != "" {
		t.Errorf("ItemIDs mismatch (-want +got):\n%s", diff)
	}
	wantSources := [][]Source{
		{SourceRule}, {SourcePopularTimeBucket}, {SourceInsurance}, {SourceInsurance}, {SourceInsurance},
	}
	if diff := cmp.Diff(wantSources, sources(resp.Items)); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	for _, it := range resp.Items[2:] {
		if it.Score != 0 {
			t.Errorf("insurance item %d score = %f, want 0", it.ItemID, it.Score)
		}
	}

	m := resp.Metadata
	if m.FallbackTier != SourcePopularTimeBucket || m.FallbackItems != 1 {
		t.Errorf("fallback = %s/%d", m.FallbackTier, m.FallbackItems)
	}
	if !m.InsuranceUsed || m.InsuranceItems != 3 || m.FinalReturned != 5 || m.RuleItemCount != 1 {
		t.Errorf("metadata = %+v", m)
	}
}

func TestRecommend_FallbackTierOrder(t *testing.T) {
	t.Parallel()

	profile := catalog.UserProfile{UserID: 7, BehaviorCluster: 2, PreferenceCluster: 1, LifecycleStage: "new"}
	users := catalog.NewStaticUserLoader([]catalog.UserProfile{profile}, catalog.DefaultUserDefaults())

	tests := []struct {
		name     string
		setup    func(t *catalog.Tables)
		wantTier Source
		wantIDs  []int
	}{
		{
			name: "time bucket first",
			setup: func(t *catalog.Tables) {
				t.ByTimeBucket["morning"] = []int{30, 31}
				t.ByLifecycle["new"] = []int{40}
				t.Global = []int{90}
			},
			wantTier: SourcePopularTimeBucket,
			wantIDs:  []int{30, 31, 90},
		},
		{
			name: "lifecycle when time bucket missing",
			setup: func(t *catalog.Tables) {
				t.ByTimeBucket["evening"] = []int{30}
				t.ByLifecycle["new"] = []int{40, 41, 42}
				t.ByBehavior[2] = []int{50}
			},
			wantTier: SourcePopularLifecycle,
			wantIDs:  []int{40, 41, 42},
		},
		{
			name: "behavior cluster",
			setup: func(t *catalog.Tables) {
				t.ByBehavior[2] = []int{50, 51, 52}
				t.Frequent = []int{60}
			},
			wantTier: SourcePopularBehavior,
			wantIDs:  []int{50, 51, 52},
		},
		{
			name: "purchase frequency",
			setup: func(t *catalog.Tables) {
				t.Frequent = []int{60, 61, 62}
			},
			wantTier: SourcePopularGlobal,
			wantIDs:  []int{60, 61, 62},
		},
		{
			name: "tier with only basket items is skipped",
			setup: func(t *catalog.Tables) {
				t.ByTimeBucket["morning"] = []int{1}
				t.Frequent = []int{1, 60, 61, 62}
			},
			wantTier: SourcePopularGlobal,
			wantIDs:  []int{60, 61, 62},
		},
		{
			name: "basket department similarity",
			setup: func(t *catalog.Tables) {
				t.Departments = map[int]string{1: "dairy", 72: "dairy", 71: "dairy", 80: "bakery"}
				t.Global = []int{90, 91}
			},
			wantTier: SourceSimilarDept,
			wantIDs:  []int{71, 72, 90},
		},
		{
			name: "global list as last tier",
			setup: func(t *catalog.Tables) {
				t.Global = []int{90, 91, 92, 93}
			},
			wantTier: SourceInsurance,
			wantIDs:  []int{90, 91, 92},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tables := catalog.NewTables()
			tt.setup(tables)
			r := newTestRecommender(t, Deps{Index: unmatchedIndex(), Tables: tables, Users: users}, nil)

			resp, err := r.Recommend(context.Background(), Request{
				UserID:         7,
				Basket:         []int{1},
				TimeBucket:     "morning",
				IsWeekend:      weekday(),
				TopK:           3,
				ReturnMetadata: true,
			})
			if err != nil {
				t.Fatal(err)
			}
			if resp.Metadata.FallbackTier != tt.wantTier {
				t.Errorf("FallbackTier = %s, want %s", resp.Metadata.FallbackTier, tt.wantTier)
			}
			if diff := cmp.Diff(tt.wantIDs, resp.ItemIDs); diff != "" {
				t.Errorf("ItemIDs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFallback_ScoresKeepTableOrder(t *testing.T) {
	t.Parallel()
	tables := catalog.NewTables()
	tables.Frequent = []int{9, 3, 7}
	r := newTestRecommender(t, Deps{Index: unmatchedIndex(), Tables: tables}, nil)

	uc := r.buildUserContext(r.prepareRequest(Request{UserID: 1}), r.defaults.Profile(1))
	res, ok := r.fallback(&uc, nil, map[int]bool{3: true}, 10)
	if !ok {
		t.Fatal("fallback() found no tier")
	}
	if res.source != SourcePopularGlobal {
		t.Errorf("source = %s, want %s", res.source, SourcePopularGlobal)
	}
	if diff := cmp.Diff([]int{9, 7}, res.items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if res.scores[9] <= res.scores[7] {
		t.Errorf("scores not decreasing: %v", res.scores)
	}

	if _, ok := r.fallback(&uc, nil, map[int]bool{9: true, 3: true, 7: true}, 10); ok {
		t.Error("fallback() with every item excluded should report no tier")
	}
}

func TestRecommend_Properties(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))

	index := rules.ContextRuleIndex{rules.GlobalContext: {}}
	for ant := 1; ant <= 30; ant++ {
		for j := 0; j < 4; j++ {
			c := rng.Intn(40) + 1
			if c == ant {
				continue
			}
			key := rules.AntecedentKey([]int{ant})
			index[rules.GlobalContext][key] = append(index[rules.GlobalContext][key], rule([]int{ant}, c, rng.Float64()))
		}
	}
	tables := catalog.NewTables()
	for id := 1; id <= 60; id++ {
		tables.Global = append(tables.Global, id)
	}
	tables.ByTimeBucket["morning"] = []int{3, 1, 4, 1, 5, 9, 2, 6}
	r := newTestRecommender(t, Deps{Index: index, Tables: tables}, nil)

	for i := 0; i < 200; i++ {
		n := rng.Intn(6)
		basket := make([]int, n)
		for j := range basket {
			basket[j] = rng.Intn(40) + 1
		}
		topK := rng.Intn(15) + 1
		req := Request{UserID: i + 1, Basket: basket, TopK: topK, ReturnMetadata: true}

		resp, err := r.Recommend(context.Background(), req)
		if err != nil {
			t.Fatalf("Recommend(%v) error = %v", basket, err)
		}
		if len(resp.ItemIDs) != topK {
			t.Errorf("basket %v: returned %d items, want %d", basket, len(resp.ItemIDs), topK)
		}
		inBasket := make(map[int]bool)
		for _, id := range basket {
			inBasket[id] = true
		}
		seen := make(map[int]bool)
		for _, id := range resp.ItemIDs {
			if inBasket[id] {
				t.Errorf("basket %v: item %d recommended from basket", basket, id)
			}
			if seen[id] {
				t.Errorf("basket %v: item %d returned twice", basket, id)
			}
			seen[id] = true
		}

		again, err := r.Recommend(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(resp.Items, again.Items); diff != "" {
			t.Errorf("basket %v: non-deterministic output (-first +second):\n%s", basket, diff)
		}
	}
}

func TestRecommend_BasketOrderAndDuplicatesIgnored(t *testing.T) {
	t.Parallel()
	r := newTestRecommender(t, Deps{Index: testIndex()}, nil)

	a, err := r.Recommend(context.Background(), Request{UserID: 1, Basket: []int{102, 101}, TopK: 3})
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Recommend(context.Background(), Request{UserID: 1, Basket: []int{101, 102, 101}, TopK: 3})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a.ItemIDs, b.ItemIDs); diff != "" {
		t.Errorf("ItemIDs differ (-a +b):\n%s", diff)
	}
	for _, id := range a.ItemIDs {
		if id == 101 || id == 102 {
			t.Errorf("basket item %d recommended", id)
		}
	}
}

func TestRecommend_ResponseShape(t *testing.T) {
	t.Parallel()
	r := newTestRecommender(t, Deps{Index: testIndex()}, nil)

	resp, err := r.Recommend(context.Background(), Request{UserID: 1, Basket: []int{101}, TopK: 2})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Items != nil || resp.Metadata != nil {
		t.Errorf("expected bare ids without metadata, got %+v", resp)
	}
	if len(resp.ItemIDs) != 2 {
		t.Errorf("ItemIDs = %v", resp.ItemIDs)
	}
}

func TestRecommend_TopKLimits(t *testing.T) {
	t.Parallel()
	tables := catalog.NewTables()
	for id := 1000; id < 1300; id++ {
		tables.Global = append(tables.Global, id)
	}
	r := newTestRecommender(t, Deps{Index: unmatchedIndex(), Tables: tables}, nil)

	tests := []struct {
		name string
		topK int
		want int
	}{
		{"unset uses default", 0, 10},
		{"negative uses default", -4, 10},
		{"explicit", 7, 7},
		{"clamped to max", 500, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp, err := r.Recommend(context.Background(), Request{UserID: 1, Basket: []int{1}, TopK: tt.topK, ReturnMetadata: true})
			if err != nil {
				t.Fatal(err)
			}
			if len(resp.ItemIDs) != tt.want || resp.Metadata.TopK != tt.want {
				t.Errorf("returned %d (top_k %d), want %d", len(resp.ItemIDs), resp.Metadata.TopK, tt.want)
			}
		})
	}
}

func TestRecommend_DerivesContextFromClock(t *testing.T) {
	t.Parallel()
	r := newTestRecommender(t, Deps{Index: testIndex()}, nil)
	r.now = func() time.Time { return time.Date(2026, 3, 7, 20, 0, 0, 0, time.UTC) } // Saturday evening

	resp, err := r.Recommend(context.Background(), Request{UserID: 1, Basket: []int{101}, ReturnMetadata: true})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Metadata.TimeBucket != "evening" || !resp.Metadata.IsWeekend {
		t.Errorf("context = %s/%v, want evening/weekend", resp.Metadata.TimeBucket, resp.Metadata.IsWeekend)
	}
	if resp.Metadata.RequestID == "" {
		t.Error("RequestID not generated")
	}
}

func TestRecommend_Cache(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	r := newTestRecommender(t, Deps{Index: testIndex()}, cfg)

	req := Request{UserID: 1, Basket: []int{101}, TopK: 2, ReturnMetadata: true, RequestID: "first"}
	first, err := r.Recommend(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if first.Metadata.CacheHit {
		t.Error("first request reported a cache hit")
	}

	req.RequestID = "second"
	req.Basket = []int{101, 101}
	second, err := r.Recommend(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Metadata.CacheHit {
		t.Error("second request should hit the cache")
	}
	if second.Metadata.RequestID != "second" {
		t.Errorf("RequestID = %q, want second", second.Metadata.RequestID)
	}
	if diff := cmp.Diff(first.ItemIDs, second.ItemIDs); diff != "" {
		t.Errorf("cached ItemIDs mismatch:\n%s", diff)
	}

	// A cached entry must not leak the first caller's request id.
	if first.Metadata.RequestID != "first" {
		t.Errorf("first RequestID mutated to %q", first.Metadata.RequestID)
	}

	st := r.Stats()
	if !st.CacheEnabled || st.CacheHits != 1 || st.CacheMisses != 1 || st.Requests != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRecommend_CanceledContext(t *testing.T) {
	t.Parallel()
	r := newTestRecommender(t, Deps{Index: testIndex()}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Recommend(ctx, Request{UserID: 1, Basket: []int{101}}); !errors.Is(err, context.Canceled) {
		t.Errorf("Recommend() error = %v, want context.Canceled", err)
	}
	if _, err := r.PopularOnly(ctx, Request{UserID: 1}, ReasonTimeout); !errors.Is(err, context.Canceled) {
		t.Errorf("PopularOnly() error = %v, want context.Canceled", err)
	}
}

type failingLoader struct{}

func (failingLoader) UserContext(context.Context, int) (catalog.UserProfile, error) {
	return catalog.UserProfile{}, errors.New("store unavailable")
}

func TestRecommend_UserLookupFailureUsesDefaults(t *testing.T) {
	t.Parallel()
	r := newTestRecommender(t, Deps{Index: testIndex(), Users: failingLoader{}}, nil)

	resp, err := r.Recommend(context.Background(), Request{UserID: 5, Basket: []int{101}, TopK: 2, ReturnMetadata: true})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	m := resp.Metadata
	if m.LifecycleStage != "unknown" || m.BehaviorCluster != -1 || m.PreferenceCluster != -1 {
		t.Errorf("profile = %s/%d/%d, want defaults", m.LifecycleStage, m.BehaviorCluster, m.PreferenceCluster)
	}
	if len(resp.ItemIDs) != 2 {
		t.Errorf("ItemIDs = %v", resp.ItemIDs)
	}
}

func TestPopularOnly(t *testing.T) {
	t.Parallel()
	tables := catalog.NewTables()
	tables.ByTimeBucket["morning"] = []int{202, 50}
	tables.Global = []int{60, 61}
	r := newTestRecommender(t, Deps{Index: testIndex(), Tables: tables, Users: failingLoader{}}, nil)

	resp, err := r.PopularOnly(context.Background(), Request{
		UserID:         1,
		Basket:         []int{101},
		TimeBucket:     "morning",
		IsWeekend:      weekday(),
		TopK:           4,
		ReturnMetadata: true,
	}, ReasonCircuitOpen)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{202, 50, 60, 61}, resp.ItemIDs); diff != "" {
		t.Errorf("ItemIDs mismatch (-want +got):\n%s", diff)
	}
	m := resp.Metadata
	if !m.Degraded || m.DegradedReason != ReasonCircuitOpen {
		t.Errorf("degraded = %v/%q", m.Degraded, m.DegradedReason)
	}
	if m.RuleCandidates != 0 || m.RuleItemCount != 0 {
		t.Errorf("degraded response used rules: %+v", m)
	}
	if r.Stats().Degraded != 1 {
		t.Errorf("Stats().Degraded = %d, want 1", r.Stats().Degraded)
	}
}

func TestRecommend_Spans(t *testing.T) {
	t.Parallel()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	tables := catalog.NewTables()
	tables.Global = []int{11, 12, 13}
	r := newTestRecommender(t, Deps{Index: testIndex(), Tables: tables, Tracer: tp.Tracer("test")}, nil)

	if _, err := r.Recommend(context.Background(), Request{UserID: 1, Basket: []int{101}, TopK: 5}); err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	want := []string{"recommend.recall", "recommend.fallback", "recommend.adjust", "recommend.rank", "recommend.Recommend"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("spans mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	if _, err := New(Deps{Index: rules.ContextRuleIndex{}}, testConfig(), zerolog.Nop()); !errors.Is(err, rules.ErrEmptyIndex) {
		t.Errorf("empty index error = %v, want ErrEmptyIndex", err)
	}

	cfg := testConfig()
	cfg.Decays = map[string]float64{"L9": 1}
	if _, err := New(Deps{Index: testIndex()}, cfg, zerolog.Nop()); err == nil {
		t.Error("unknown decay level accepted")
	}

	cfg = testConfig()
	cfg.PoolFactor = 0
	if _, err := New(Deps{Index: testIndex()}, cfg, zerolog.Nop()); err == nil {
		t.Error("zero pool factor accepted")
	}
}

func TestNew_DecayOverride(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Decays = map[string]float64{"L5": 1}
	r := newTestRecommender(t, Deps{Index: testIndex()}, cfg)

	st := r.Stats()
	if st.Decays["L5"] != 1 || st.Decays["L4"] != 1.2 {
		t.Errorf("decays = %v", st.Decays)
	}
	if diff := cmp.Diff([]string{"L1", "L2", "L3", "L4", "L5"}, st.Levels); diff != "" {
		t.Errorf("levels mismatch:\n%s", diff)
	}
}
