// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package evaluation

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/basketrec/internal/recommend"
)

// Recommender is the part of the pipeline Evaluate drives.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
}

// Case is one held-out user: prior purchases in order and the items bought
// in the next order.
type Case struct {
	UserID  int   `json:"user_id"`
	History []int `json:"history"`
	Truth   []int `json:"truth"`
}

// Config controls an evaluation run.
type Config struct {
	// K is the list length requested and scored.
	K int `json:"k"`

	// BasketSize is how many of the latest history items form the basket.
	BasketSize int `json:"basket_size"`

	// TimeBucket and IsWeekend fix the request context. An empty TimeBucket
	// lets the recommender derive it from its clock.
	TimeBucket string `json:"time_bucket"`
	IsWeekend  bool   `json:"is_weekend"`

	// MaxUsers caps the number of cases evaluated. Zero evaluates all.
	MaxUsers int `json:"max_users"`
}

// DefaultConfig returns the standard offline protocol: top 10 from the last
// five purchases.
func DefaultConfig() Config {
	return Config{K: 10, BasketSize: 5}
}

// RuleSlotPositions are the positions reported in Report.RuleSlots.
var RuleSlotPositions = []int{1, 3, 5}

// Report holds the metrics of one run.
type Report struct {
	K              int `json:"k"`
	UsersEvaluated int `json:"num_users_evaluated"`
	UsersSkipped   int `json:"num_users_skipped"`

	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	HitRate   float64 `json:"hit_rate"`

	UserCoverage float64 `json:"user_coverage"`
	ItemCoverage float64 `json:"item_coverage"`

	// RuleUserCoverage is the share of users with at least one rule item.
	RuleUserCoverage float64 `json:"rule_user_coverage"`
	// RuleItemShare is the share of all returned items that are rule items.
	RuleItemShare float64 `json:"rule_item_share"`
	// RuleSlots maps a 1-based position to the share of users with a rule
	// item there.
	RuleSlots map[int]float64 `json:"rule_slots"`

	// HitShare splits correct recommendations by their primary source.
	HitShare map[recommend.Source]float64 `json:"hit_share"`

	RuleHitRate        float64            `json:"rule_hit_rate"`
	SourceDistribution map[string]float64 `json:"source_distribution"`
}

// Label classifies a response for RuleHitRate and SourceDistribution.
func Label(resp *recommend.Response) string {
	m := resp.Metadata
	if m == nil || m.RuleItemCount == 0 {
		return LabelFallback
	}
	if m.FallbackUsed || m.InsuranceUsed {
		return LabelRulesFallback
	}
	return LabelRules
}

// Evaluate runs rec over cases and aggregates the metrics. Users without
// history are skipped. catalog is the item universe for ItemCoverage.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Evaluate(ctx context.Context, rec Recommender, cases []Case, catalog []int, cfg Config, logger zerolog.Logger) (*Report, error) {
	if cfg.K <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", cfg.K)
	}
	if cfg.BasketSize <= 0 {
		return nil, fmt.Errorf("basket_size must be positive, got %d", cfg.BasketSize)
	}
	if cfg.MaxUsers > 0 && len(cases) > cfg.MaxUsers {
		cases = cases[:cfg.MaxUsers]
	}
	logger = logger.With().Str("component", "evaluation").Logger()

	rep := &Report{
		K:                  cfg.K,
		RuleSlots:          make(map[int]float64, len(RuleSlotPositions)),
		HitShare:           make(map[recommend.Source]float64),
		SourceDistribution: map[string]float64{},
	}
	recs := make(map[int][]int, len(cases))
	labels := make(map[int]string, len(cases))
	slotUsers := make(map[int]int)
	hitSources := make(map[recommend.Source]int)
	var precision, recall, hitRate float64
	var usersWithRule, totalItems, ruleItems int

	for i := range cases {
		c := &cases[i]
		if len(c.History) == 0 {
			rep.UsersSkipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		basket := c.History
		if len(basket) > cfg.BasketSize {
			basket = basket[len(basket)-cfg.BasketSize:]
		}
		req := recommend.Request{
			UserID:         c.UserID,
			Basket:         basket,
			TimeBucket:     cfg.TimeBucket,
			TopK:           cfg.K,
			ReturnMetadata: true,
		}
		if cfg.TimeBucket != "" {
			weekend := cfg.IsWeekend
			req.IsWeekend = &weekend
		}
		resp, err := rec.Recommend(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("recommend for user %d: %w", c.UserID, err)
		}

		recs[c.UserID] = resp.ItemIDs
		if len(resp.ItemIDs) == 0 {
			continue
		}
		rep.UsersEvaluated++
		labels[c.UserID] = Label(resp)

		truth := toSet(c.Truth)
		hasRule := false
		for pos, it := range resp.Items {
			totalItems++
			if it.HasSource(recommend.SourceRule) {
				hasRule = true
				ruleItems++
				slotUsers[pos+1]++
			}
			if truth[it.ItemID] && len(it.Sources) > 0 {
				hitSources[it.Sources[0]]++
			}
		}
		if hasRule {
			usersWithRule++
		}

		precision += PrecisionAtK(resp.ItemIDs, c.Truth, cfg.K)
		recall += RecallAtK(resp.ItemIDs, c.Truth, cfg.K)
		hitRate += HitRateAtK(resp.ItemIDs, c.Truth, cfg.K)
	}

	rep.UserCoverage = UserCoverage(recs)
	rep.ItemCoverage = ItemCoverage(recs, catalog)

	if rep.UsersEvaluated == 0 {
		logger.Warn().Int("cases", len(cases)).Msg("no users evaluated")
		return rep, nil
	}

	n := float64(rep.UsersEvaluated)
	rep.Precision = precision / n
	rep.Recall = recall / n
	rep.HitRate = hitRate / n
	rep.RuleUserCoverage = float64(usersWithRule) / n
	rep.RuleItemShare = float64(ruleItems) / float64(max(1, totalItems))
	for _, pos := range RuleSlotPositions {
		rep.RuleSlots[pos] = float64(slotUsers[pos]) / n
	}

	totalHits := 0
	for _, c := range hitSources {
		totalHits += c
	}
	for src, c := range hitSources {
		rep.HitShare[src] = float64(c) / float64(totalHits)
	}
	rep.RuleHitRate = RuleHitRate(labels)
	rep.SourceDistribution = SourceDistribution(labels)

	logger.Info().
		Int("users", rep.UsersEvaluated).
		Int("k", cfg.K).
		Float64("precision", rep.Precision).
		Float64("recall", rep.Recall).
		Float64("hit_rate", rep.HitRate).
		Float64("rule_hit_rate", rep.RuleHitRate).
		Msg("offline evaluation complete")

	return rep, nil
}

// LoadCasesFile reads a JSON array of Case.
func LoadCasesFile(path string) ([]Case, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read cases: %w", err)
	}
	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("decode cases %s: %w", path, err)
	}
	return cases, nil
}
