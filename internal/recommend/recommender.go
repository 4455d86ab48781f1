// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package recommend

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tomtom215/basketrec/internal/cache"
	"github.com/tomtom215/basketrec/internal/metrics"
	"github.com/tomtom215/basketrec/internal/recommend/adjust"
	"github.com/tomtom215/basketrec/internal/recommend/candidate"
	"github.com/tomtom215/basketrec/internal/recommend/catalog"
	"github.com/tomtom215/basketrec/internal/recommend/ranking"
	"github.com/tomtom215/basketrec/internal/recommend/rules"
)

const tracerName = "github.com/tomtom215/basketrec/internal/recommend"

// Deps are the loaded collaborators of a Recommender.
type Deps struct {
	// Index is the loaded rule index. Required and never mutated.
	Index rules.ContextRuleIndex

	// Tables supplies popularity lists, departments and adjuster weights.
	// Nil means empty tables.
	Tables *catalog.Tables

	// Users resolves user profiles. Nil means every user gets UserDefaults.
	Users catalog.UserContextLoader

	// UserDefaults is used when Users fails. Zero value means
	// catalog.DefaultUserDefaults.
	UserDefaults catalog.UserDefaults

	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer
}

// Recommender runs the hybrid pipeline. All loaded state is immutable, so it
// is safe for concurrent use.
type Recommender struct {
	cfg    *Config
	logger zerolog.Logger
	tracer trace.Tracer

	generator  *candidate.Generator
	behavior   *adjust.BehaviorAdjuster
	preference *adjust.PreferenceFilter
	lifecycle  *adjust.LifecycleAdjuster
	ranker     *ranking.Ranker

	tables       *catalog.Tables
	byDepartment map[string][]int
	users        catalog.UserContextLoader
	defaults     catalog.UserDefaults

	cache *cache.LRU[*Response]

	requests atomic.Int64
	degraded atomic.Int64

	now func() time.Time
}

// New validates cfg and assembles the pipeline. An empty or unusable index is
// an error; the caller must not serve without one.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(deps Deps, cfg *Config, logger zerolog.Logger) (*Recommender, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	hierarchy, err := candidate.DefaultHierarchy().WithDecays(cfg.Decays)
	if err != nil {
		return nil, fmt.Errorf("invalid decays: %w", err)
	}
	gen, err := candidate.New(deps.Index, hierarchy, cfg.Candidate, logger)
	if err != nil {
		return nil, fmt.Errorf("create candidate generator: %w", err)
	}
	ranker, err := ranking.New(cfg.Ranking, logger)
	if err != nil {
		return nil, fmt.Errorf("create ranker: %w", err)
	}

	tables := deps.Tables
	if tables == nil {
		tables = catalog.NewTables()
	}
	defaults := deps.UserDefaults
	if defaults.LifecycleStage == "" {
		defaults = catalog.DefaultUserDefaults()
	}
	users := deps.Users
	if users == nil {
		users = catalog.NewStaticUserLoader(nil, defaults)
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	r := &Recommender{
		cfg:          cfg.Clone(),
		logger:       logger.With().Str("component", "recommend").Logger(),
		tracer:       tracer,
		generator:    gen,
		behavior:     adjust.NewBehaviorAdjuster(tables.BehaviorWeights, logger),
		preference:   adjust.NewPreferenceFilter(tables.PreferenceWeights, logger),
		lifecycle:    adjust.NewLifecycleAdjuster(cfg.Lifecycle, logger),
		ranker:       ranker,
		tables:       tables,
		byDepartment: tables.ItemsByDepartment(),
		users:        users,
		defaults:     defaults,
		now:          time.Now,
	}
	if cfg.Cache.Enabled {
		r.cache = cache.NewLRU[*Response](cfg.Cache.MaxEntries, cfg.Cache.TTL)
	}

	st := gen.Stats()
	metrics.SetRuleIndexSize(st.Contexts, st.Antecedents, st.Rules, gen.ContextsPerLevel())

	ts := tables.Stats()
	r.logger.Info().
		Int("rules", st.Rules).
		Int("global_popular", ts.Global).
		Int("departments", ts.Departments).
		Int("default_k", cfg.Limits.DefaultK).
		Bool("cache_enabled", cfg.Cache.Enabled).
		Msg("recommender initialized")

	return r, nil
}

// Config returns a copy of the configuration.
func (r *Recommender) Config() *Config {
	return r.cfg.Clone()
}

// Cache returns the response cache, or nil when caching is disabled.
func (r *Recommender) Cache() *cache.LRU[*Response] {
	return r.cache
}

// Stats describes the loaded index, tables and request counters.
func (r *Recommender) Stats() Stats {
	h := r.generator.Hierarchy()
	decays := make(map[string]float64, len(h))
	for _, lvl := range h {
		decays[lvl.Name] = lvl.Decay
	}
	ts := r.tables.Stats()
	s := Stats{
		Index:            r.generator.Stats(),
		ContextsPerLevel: r.generator.ContextsPerLevel(),
		Levels:           h.Names(),
		Decays:           decays,
		MatchThreshold:   r.generator.Config().MatchThreshold,
		Global:           ts.Global,
		Departments:      ts.Departments,
		CacheEnabled:     r.cache != nil,
		Requests:         r.requests.Load(),
		Degraded:         r.degraded.Load(),
	}
	if r.cache != nil {
		cs := r.cache.Stats()
		s.CacheHits, s.CacheMisses, s.CacheSize = cs.Hits, cs.Misses, cs.Size
	}
	return s
}

// Recommend runs the full pipeline. It returns an error only when ctx is done;
// missing personalization signal never fails a request.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (r *Recommender) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := r.now()
	r.requests.Add(1)

	req = r.prepareRequest(req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := r.requestLogger(req)

	var key string
	if r.cache != nil {
		key = cacheKey(req)
		if cached, ok := r.cache.Get(key); ok {
			metrics.RecordCacheLookup(true)
			logger.Debug().Msg("cache hit")
			return present(cached, req, start, r.now(), true), nil
		}
		metrics.RecordCacheLookup(false)
	}

	ctx, span := r.tracer.Start(ctx, "recommend.Recommend",
		trace.WithAttributes(
			attribute.Int("user_id", req.UserID),
			attribute.Int("basket_size", len(req.Basket)),
			attribute.Int("top_k", req.TopK),
		),
	)
	defer span.End()

	resp, err := r.run(ctx, req, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordRecommendation("error", r.now().Sub(start), 0)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("returned", resp.Metadata.FinalReturned),
		attribute.Int("rule_candidates", resp.Metadata.RuleCandidates),
		attribute.Bool("fallback_used", resp.Metadata.FallbackUsed),
		attribute.Bool("insurance_used", resp.Metadata.InsuranceUsed),
	)
	if r.cache != nil {
		r.cache.Add(key, resp)
	}

	elapsed := r.now().Sub(start)
	metrics.RecordRecommendation("ok", elapsed, resp.Metadata.RuleCandidates)
	logger.Info().
		Int("basket", len(req.Basket)).
		Int("rule_candidates", resp.Metadata.RuleCandidates).
		Str("fallback_tier", string(resp.Metadata.FallbackTier)).
		Int("insurance_items", resp.Metadata.InsuranceItems).
		Int("returned", resp.Metadata.FinalReturned).
		Dur("latency", elapsed).
		Msg("recommendation complete")

	return present(resp, req, start, r.now(), false), nil
}

// PopularOnly answers from the popularity tables alone, skipping rule recall,
// adjustment, ranking and the user lookup. It backs degraded responses.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (r *Recommender) PopularOnly(ctx context.Context, req Request, reason string) (*Response, error) {
	start := r.now()
	r.degraded.Add(1)

	req = r.prepareRequest(req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uc := r.buildUserContext(req, r.defaults.Profile(req.UserID))
	basket := rules.CanonicalItems(req.Basket)
	meta := newMetadata(req, &uc)
	meta.Degraded = true
	meta.DegradedReason = reason

	p := newPool(basket)
	if fb, ok := r.fallback(&uc, basket, p.exclude, req.TopK); ok {
		meta.FallbackUsed = true
		meta.FallbackTier = fb.source
		for _, id := range fb.items {
			p.add(id, fb.scores[id], fb.source)
		}
		meta.FallbackItems = len(fb.items)
	}

	items := make([]Item, 0, req.TopK)
	for _, id := range p.items {
		items = append(items, p.item(id, p.scores[id]))
	}
	items = r.insuranceFill(items, p, req.TopK, meta)

	resp := finish(items, meta)
	elapsed := r.now().Sub(start)
	metrics.RecordRecommendation("degraded", elapsed, 0)
	logger := r.requestLogger(req)
	logger.Warn().
		Str("reason", reason).
		Int("returned", meta.FinalReturned).
		Msg("served popularity-only response")

	return present(resp, req, start, r.now(), false), nil
}

// run executes the pipeline stages and returns the full response.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (r *Recommender) run(ctx context.Context, req Request, logger zerolog.Logger) (*Response, error) {
	profile, err := r.loadProfile(ctx, req.UserID, logger)
	if err != nil {
		return nil, err
	}
	uc := r.buildUserContext(req, profile)

	basket := rules.CanonicalItems(req.Basket)
	topK := req.TopK
	poolCap := topK * r.cfg.PoolFactor
	meta := newMetadata(req, &uc)
	p := newPool(basket)

	// Rule recall.
	_, recallSpan := r.tracer.Start(ctx, "recommend.recall")
	recall := r.generator.Generate(basket, uc.Dimensions(), poolCap)
	for _, id := range recall.Items {
		p.add(id, recall.Scores[id], SourceRule)
		p.ruleBacked[id] = true
		p.levels[id] = recall.Levels[id]
	}
	meta.RuleCandidates = len(recall.Items)
	meta.MatchedContexts = make([]string, 0, len(recall.MatchedContexts))
	for _, mc := range recall.MatchedContexts {
		meta.MatchedContexts = append(meta.MatchedContexts, mc.String())
	}
	recallSpan.SetAttributes(
		attribute.Int("candidates", len(recall.Items)),
		attribute.Int("matched_contexts", len(recall.MatchedContexts)),
	)
	recallSpan.End()

	// Tiered fallback.
	if p.len() < topK {
		need := topK - p.len()
		logger.Warn().
			Int("rule_candidates", p.len()).
			Int("fallback_needed", need).
			Msg("rule recall short, using fallback")

		_, fbSpan := r.tracer.Start(ctx, "recommend.fallback")
		meta.FallbackUsed = true
		if fb, ok := r.fallback(&uc, basket, p.exclude, need*r.cfg.PoolFactor); ok {
			meta.FallbackTier = fb.source
			for _, id := range fb.items {
				if p.len() >= poolCap {
					break
				}
				p.add(id, fb.scores[id], fb.source)
				meta.FallbackItems++
			}
			metrics.RecordFallback(string(fb.source))
		}
		fbSpan.SetAttributes(
			attribute.String("tier", string(meta.FallbackTier)),
			attribute.Int("items", meta.FallbackItems),
		)
		fbSpan.End()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]Item, 0, topK)
	if p.len() == 0 {
		logger.Warn().Msg("empty recall set")
	} else {
		_, adjSpan := r.tracer.Start(ctx, "recommend.adjust")
		behavior := r.behavior.Apply(p.scores, uc.BehaviorCluster)
		preference := r.preference.Apply(p.items, uc.PreferenceCluster, r.tables.Department)
		lifecycle := r.lifecycle.Adjust(preference, uc.LifecycleStage)
		adjSpan.End()

		_, rankSpan := r.tracer.Start(ctx, "recommend.rank")
		ranked := r.ranker.Rank(ranking.Sources{
			Rule:       p.scores,
			Behavior:   behavior,
			Preference: preference,
			Lifecycle:  lifecycle,
			RuleBacked: p.ruleBacked,
		}, topK)
		rankSpan.SetAttributes(attribute.Int("ranked", len(ranked)))
		rankSpan.End()

		for _, rk := range ranked {
			items = append(items, p.item(rk.ItemID, rk.Score))
		}
	}

	items = r.insuranceFill(items, p, topK, meta)
	if meta.InsuranceUsed {
		logger.Warn().
			Int("insurance_items", meta.InsuranceItems).
			Msg("ranked output short, applied insurance fill")
	}

	return finish(items, meta), nil
}

// insuranceFill appends unused global-popular items with score 0 until topK.
func (r *Recommender) insuranceFill(items []Item, p *pool, topK int, meta *Metadata) []Item {
	if len(items) >= topK {
		return items
	}
	used := make(map[int]bool, len(p.exclude)+len(items))
	for id := range p.basket {
		used[id] = true
	}
	for i := range items {
		used[items[i].ItemID] = true
	}
	fill := pickNew(r.tables.Global, used, topK-len(items))
	if len(fill) == 0 {
		return items
	}
	for _, id := range fill {
		items = append(items, Item{ItemID: id, Score: 0, Sources: []Source{SourceInsurance}})
	}
	meta.InsuranceUsed = true
	meta.InsuranceItems = len(fill)
	metrics.RecordInsuranceFill(len(fill))
	return items
}

// loadProfile resolves the user profile. Lookup failures fall back to the
// defaults; only context errors propagate.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (r *Recommender) loadProfile(ctx context.Context, userID int, logger zerolog.Logger) (catalog.UserProfile, error) {
	p, err := r.users.UserContext(ctx, userID)
	if err == nil {
		return p, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return catalog.UserProfile{}, ctxErr
	}
	logger.Warn().Err(err).Msg("user context lookup failed, using defaults")
	return r.defaults.Profile(userID), nil
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (r *Recommender) buildUserContext(req Request, p catalog.UserProfile) candidate.UserContext {
	return candidate.UserContext{
		TimeBucket:        req.TimeBucket,
		IsWeekend:         *req.IsWeekend,
		LifecycleStage:    p.LifecycleStage,
		PreferenceCluster: p.PreferenceCluster,
		BehaviorCluster:   p.BehaviorCluster,
	}
}

// prepareRequest applies defaults and generates a request ID if needed.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (r *Recommender) prepareRequest(req Request) Request {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.TopK <= 0 {
		req.TopK = r.cfg.Limits.DefaultK
	}
	if req.TopK > r.cfg.Limits.MaxK {
		req.TopK = r.cfg.Limits.MaxK
	}
	now := r.now()
	if req.TimeBucket == "" {
		req.TimeBucket = candidate.TimeBucketFor(now.Hour())
	}
	if req.IsWeekend == nil {
		weekend := candidate.IsWeekend(now)
		req.IsWeekend = &weekend
	}
	return req
}

// requestLogger creates a logger with request context.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (r *Recommender) requestLogger(req Request) zerolog.Logger {
	return r.logger.With().
		Str("request_id", req.RequestID).
		Int("user_id", req.UserID).
		Logger()
}

// cacheKey covers every input that changes the result.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func cacheKey(req Request) string {
	return cache.GenerateKey("recommend", struct {
		UserID     int    `json:"u"`
		Basket     []int  `json:"b"`
		TimeBucket string `json:"t"`
		IsWeekend  bool   `json:"w"`
		TopK       int    `json:"k"`
	}{req.UserID, rules.CanonicalItems(req.Basket), req.TimeBucket, *req.IsWeekend, req.TopK})
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func newMetadata(req Request, uc *candidate.UserContext) *Metadata {
	return &Metadata{
		RequestID:         req.RequestID,
		UserID:            req.UserID,
		TopK:              req.TopK,
		TimeBucket:        uc.TimeBucket,
		IsWeekend:         uc.IsWeekend,
		LifecycleStage:    uc.LifecycleStage,
		BehaviorCluster:   uc.BehaviorCluster,
		PreferenceCluster: uc.PreferenceCluster,
		MatchedContexts:   []string{},
	}
}

// finish assembles the full response and the item-derived counters.
func finish(items []Item, meta *Metadata) *Response {
	ids := make([]int, len(items))
	for i := range items {
		ids[i] = items[i].ItemID
		if items[i].HasSource(SourceRule) {
			meta.RuleItemCount++
		}
	}
	meta.FinalReturned = len(items)
	return &Response{ItemIDs: ids, Items: items, Metadata: meta}
}

// present returns the caller's view of a full response. The full response is
// shared with the cache and is never modified.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func present(full *Response, req Request, start, now time.Time, cacheHit bool) *Response {
	out := &Response{ItemIDs: full.ItemIDs}
	if !req.ReturnMetadata {
		return out
	}
	meta := *full.Metadata
	meta.RequestID = req.RequestID
	meta.LatencyMS = now.Sub(start).Milliseconds()
	meta.CacheHit = cacheHit
	out.Items = full.Items
	out.Metadata = &meta
	return out
}

// pool accumulates recalled candidates in insertion order.
type pool struct {
	basket     map[int]bool
	exclude    map[int]bool
	items      []int
	scores     map[int]float64
	sources    map[int]Source
	levels     map[int][]string
	ruleBacked map[int]bool
}

func newPool(basket []int) *pool {
	p := &pool{
		basket:     make(map[int]bool, len(basket)),
		exclude:    make(map[int]bool, len(basket)),
		scores:     make(map[int]float64),
		sources:    make(map[int]Source),
		levels:     make(map[int][]string),
		ruleBacked: make(map[int]bool),
	}
	for _, id := range basket {
		p.basket[id] = true
		p.exclude[id] = true
	}
	return p
}

func (p *pool) len() int {
	return len(p.items)
}

// add inserts id unless it is already present or in the basket.
func (p *pool) add(id int, score float64, src Source) {
	if p.exclude[id] {
		return
	}
	p.exclude[id] = true
	p.items = append(p.items, id)
	p.scores[id] = score
	p.sources[id] = src
}

func (p *pool) item(id int, score float64) Item {
	it := Item{ItemID: id, Score: score, Sources: []Source{p.sources[id]}}
	if lv := p.levels[id]; len(lv) > 0 {
		it.Levels = append([]string(nil), lv...)
	}
	return it
}
