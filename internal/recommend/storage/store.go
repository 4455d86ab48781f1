// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/basketrec/internal/recommend/rules"
)

// Artifact identity written into every saved index.
const (
	SchemaVersion    = 2
	Algorithm        = "fpgrowth"
	AlgorithmVersion = 2
)

// supportedAlgorithms lists the miners whose output the engine can serve.
var supportedAlgorithms = map[string]bool{
	Algorithm: true,
}

// Meta describes a persisted rule index.
type Meta struct {
	SchemaVersion    int              `json:"schema_version"`
	Algorithm        string           `json:"algorithm"`
	AlgorithmVersion int              `json:"algorithm_version"`
	CreatedAt        string           `json:"created_at"`
	Stats            rules.IndexStats `json:"stats"`

	// Checksum is the hex SHA-256 of the compact "data" document.
	Checksum string `json:"checksum,omitempty"`

	// SizeBytes is the artifact size on disk. It is not part of the stored
	// metadata; Save and Load fill it from the file.
	SizeBytes int64 `json:"-"`
}

type envelope struct {
	Meta *Meta           `json:"_meta"`
	Data json.RawMessage `json:"data"`
}

// wireRule mirrors rules.Rule with pointer fields so missing values can be
// told apart from zero values during validation.
type wireRule struct {
	RuleID     *string  `json:"rule_id"`
	Antecedent []int    `json:"antecedent"`
	Consequent *int     `json:"consequent"`
	Confidence *float64 `json:"confidence"`
	Lift       *float64 `json:"lift"`
	Support    *float64 `json:"support"`
	Score      *float64 `json:"score"`
}

var gzipMagic = []byte{0x1f, 0x8b}

// Store reads and writes rule index artifacts. It holds no state besides its
// logger and is safe for concurrent use.
type Store struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore creates a Store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		logger: logger.With().Str("component", "rule_store").Logger(),
		now:    time.Now,
	}
}

// Save writes index to path. An empty index is not written: Save logs a
// warning and returns (nil, nil).
func (s *Store) Save(ctx context.Context, index rules.ContextRuleIndex, path string) (*Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := index.Stats()
	if stats.Rules == 0 {
		s.logger.Warn().Str("path", path).Msg("refusing to save empty rule index")
		return nil, nil
	}

	data, err := json.Marshal(index)
	if err != nil {
		return nil, fmt.Errorf("encode rule index: %w", err)
	}
	hash := sha256.Sum256(data)

	meta := &Meta{
		SchemaVersion:    SchemaVersion,
		Algorithm:        Algorithm,
		AlgorithmVersion: AlgorithmVersion,
		CreatedAt:        s.now().UTC().Format(time.RFC3339),
		Stats:            stats,
		Checksum:         hex.EncodeToString(hash[:]),
	}

	payload, err := json.Marshal(envelope{Meta: meta, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}

	if strings.HasSuffix(path, ".gz") {
		var buf bytes.Buffer
		gzw := gzip.NewWriter(&buf)
		if _, err := gzw.Write(payload); err != nil {
			return nil, fmt.Errorf("compress artifact: %w", err)
		}
		if err := gzw.Close(); err != nil {
			return nil, fmt.Errorf("compress artifact: %w", err)
		}
		payload = buf.Bytes()
	}

	if err := writeAtomic(path, payload); err != nil {
		return nil, err
	}
	meta.SizeBytes = int64(len(payload))

	s.logger.Info().
		Str("path", path).
		Int("contexts", stats.Contexts).
		Int("antecedents", stats.Antecedents).
		Int("rules", stats.Rules).
		Int64("size_bytes", meta.SizeBytes).
		Msg("rule index saved")

	return meta, nil
}

// Load reads, verifies and validates the artifact at path.
func (s *Store) Load(ctx context.Context, path string) (rules.ContextRuleIndex, *Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	env, size, err := s.readEnvelope(path)
	if err != nil {
		return nil, nil, err
	}
	meta := env.Meta

	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return nil, nil, &rules.ConfigurationError{Path: path, Reason: "artifact has no data section"}
	}

	if meta.Checksum != "" {
		var compact bytes.Buffer
		if err := json.Compact(&compact, env.Data); err != nil {
			return nil, nil, &rules.ConfigurationError{Path: path, Reason: "malformed data section", Err: err}
		}
		hash := sha256.Sum256(compact.Bytes())
		if got := hex.EncodeToString(hash[:]); got != meta.Checksum {
			return nil, nil, &rules.ConfigurationError{
				Path:   path,
				Reason: fmt.Sprintf("checksum mismatch: expected %s, got %s", meta.Checksum, got),
			}
		}
	}

	var wire map[string]map[string][]wireRule
	if err := json.Unmarshal(env.Data, &wire); err != nil {
		return nil, nil, &rules.ConfigurationError{Path: path, Reason: "malformed data section", Err: err}
	}

	index, rekeyed, err := convert(wire)
	if err != nil {
		return nil, nil, err
	}
	if rekeyed > 0 {
		s.logger.Warn().
			Str("path", path).
			Int("antecedent_keys", rekeyed).
			Msg("non-canonical antecedent keys rewritten")
	}

	stats := index.Stats()
	if stats != meta.Stats {
		s.logger.Warn().
			Str("path", path).
			Interface("declared", meta.Stats).
			Interface("actual", stats).
			Msg("rule index stats differ from metadata")
	}
	meta.SizeBytes = size

	s.logger.Info().
		Str("path", path).
		Str("created_at", meta.CreatedAt).
		Int("contexts", stats.Contexts).
		Int("antecedents", stats.Antecedents).
		Int("rules", stats.Rules).
		Msg("rule index loaded")

	return index, meta, nil
}

// Inspect returns the artifact metadata after the same shape and algorithm
// checks as Load, without validating the rule records.
func (s *Store) Inspect(ctx context.Context, path string) (*Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env, size, err := s.readEnvelope(path)
	if err != nil {
		return nil, err
	}
	env.Meta.SizeBytes = size
	return env.Meta, nil
}

func (s *Store) readEnvelope(path string) (*envelope, int64, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, &rules.ConfigurationError{Path: path, Reason: "rule index not found", Err: err}
		}
		return nil, 0, &rules.ConfigurationError{Path: path, Reason: "read artifact", Err: err}
	}
	size := int64(len(raw))

	if bytes.HasPrefix(raw, gzipMagic) {
		gzr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, 0, &rules.ConfigurationError{Path: path, Reason: "decompress artifact", Err: err}
		}
		defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

		raw, err = io.ReadAll(gzr)
		if err != nil {
			return nil, 0, &rules.ConfigurationError{Path: path, Reason: "decompress artifact", Err: err}
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, 0, &rules.ConfigurationError{Path: path, Reason: "artifact is not a {_meta, data} document", Err: err}
	}
	if env.Meta == nil {
		return nil, 0, &rules.ConfigurationError{Path: path, Reason: "artifact has no _meta section"}
	}

	if env.Meta.SchemaVersion != SchemaVersion {
		s.logger.Warn().
			Str("path", path).
			Int("schema_version", env.Meta.SchemaVersion).
			Int("expected", SchemaVersion).
			Msg("rule index schema version mismatch")
	}
	if !supportedAlgorithms[env.Meta.Algorithm] {
		return nil, 0, &rules.ConfigurationError{
			Path:   path,
			Reason: fmt.Sprintf("unsupported algorithm %q", env.Meta.Algorithm),
		}
	}

	return &env, size, nil
}

// convert validates every record and returns the immutable index. Antecedent
// keys are parsed and rewritten in canonical form; lists whose keys collide
// after canonicalization are merged, deduplicated by consequent and capped at
// the longest input list. rekeyed counts keys that were not canonical.
func convert(wire map[string]map[string][]wireRule) (index rules.ContextRuleIndex, rekeyed int, err error) {
	out := make(rules.ContextRuleIndex, len(wire))
	for _, ctxKey := range sortedKeys(wire) {
		byAnt := wire[ctxKey]
		merged := make(map[string][]rules.Rule, len(byAnt))
		caps := make(map[string]int, len(byAnt))

		for _, antKey := range sortedKeys(byAnt) {
			ant, perr := rules.ParseAntecedentKey(antKey)
			if perr != nil {
				return nil, 0, &rules.ValidationError{
					Context:    ctxKey,
					Antecedent: antKey,
					Field:      "antecedent_key",
					Reason:     "is not a pipe-joined list of item ids",
				}
			}
			key := rules.AntecedentKey(ant)
			if key != antKey {
				rekeyed++
			}

			list := byAnt[antKey]
			for i := range list {
				r, verr := list[i].toRule()
				if verr != nil {
					verr.Context, verr.Antecedent, verr.Position = ctxKey, antKey, i
					return nil, 0, verr
				}
				merged[key] = append(merged[key], r)
			}
			caps[key] = max(caps[key], len(list))
		}

		idx := make(rules.RuleIndex, len(merged))
		for key, list := range merged {
			idx[key] = dedupe(list, caps[key])
		}
		out[ctxKey] = idx
	}
	return out, rekeyed, nil
}

// dedupe keeps the highest-scoring rule per consequent, sorts and truncates
// to limit.
func dedupe(list []rules.Rule, limit int) []rules.Rule {
	best := make(map[int]int, len(list))
	out := make([]rules.Rule, 0, len(list))
	for _, r := range list {
		if i, ok := best[r.Consequent]; ok {
			if r.Score > out[i].Score {
				out[i] = r
			}
			continue
		}
		best[r.Consequent] = len(out)
		out = append(out, r)
	}
	rules.SortRules(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (w *wireRule) toRule() (rules.Rule, *rules.ValidationError) {
	missing := func(field string) (rules.Rule, *rules.ValidationError) {
		return rules.Rule{}, &rules.ValidationError{Field: field, Reason: "is required"}
	}
	switch {
	case w.RuleID == nil || *w.RuleID == "":
		return missing("rule_id")
	case len(w.Antecedent) == 0:
		return missing("antecedent")
	case w.Consequent == nil:
		return missing("consequent")
	case w.Confidence == nil:
		return missing("confidence")
	case w.Lift == nil:
		return missing("lift")
	case w.Support == nil:
		return missing("support")
	case w.Score == nil:
		return missing("score")
	}

	return rules.Rule{
		RuleID:     *w.RuleID,
		Antecedent: rules.CanonicalItems(w.Antecedent),
		Consequent: *w.Consequent,
		Confidence: *w.Confidence,
		Lift:       *w.Lift,
		Support:    *w.Support,
		Score:      *w.Score,
	}, nil
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for artifact storage
		return fmt.Errorf("create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) } //nolint:errcheck // best-effort cleanup

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		cleanup()
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		cleanup()
		return fmt.Errorf("sync temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}
