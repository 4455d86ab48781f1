// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Key prefixes for BadgerDB storage
const (
	keyGlobal           = "table:global"
	keyFrequent         = "table:frequent"
	timeTablePrefix     = "table:time:"
	lifecycleTablePfx   = "table:lifecycle:"
	behaviorTablePfx    = "table:behavior:"
	departmentPrefix    = "dept:"
	behaviorWeightPfx   = "behavior_w:"
	preferenceWeightPfx = "pref_w:"
	userPrefix          = "user:"
	historyPrefix       = "history:"
)

// Purchase is one item bought by a user at a point in time.
type Purchase struct {
	UserID    int       `json:"user_id"`
	ItemID    int       `json:"item_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists catalog data in BadgerDB. It implements UserContextLoader.
type Store struct {
	db       *badger.DB
	defaults UserDefaults
	logger   zerolog.Logger
}

// Open opens (or creates) a Store in dir.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(dir string, defaults UserDefaults, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for catalog storage
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return open(opts, defaults, logger)
}

// OpenInMemory opens a Store that lives only in memory.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenInMemory(defaults UserDefaults, logger zerolog.Logger) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil), defaults, logger)
}

//nolint:gocritic // options and logger passed by value match the badger API
func open(opts badger.Options, defaults UserDefaults, logger zerolog.Logger) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	return &Store{
		db:       db,
		defaults: defaults,
		logger:   logger.With().Str("component", "catalog_store").Logger(),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC rewrites value log files until badger reports nothing left to
// reclaim. discardRatio is the fraction of stale data a file must hold before
// it is rewritten. In-memory stores have no value log and return nil.
func (s *Store) RunGC(discardRatio float64) error {
	if s.db.Opts().InMemory {
		return nil
	}
	rewrites := 0
	for {
		err := s.db.RunValueLogGC(discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
		rewrites++
	}
	s.logger.Debug().Int("rewrites", rewrites).Msg("catalog value log GC complete")
	return nil
}

// SaveTables writes every table, replacing entries with the same keys.
func (s *Store) SaveTables(ctx context.Context, t *Tables) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	set := func(key string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		if err := wb.Set([]byte(key), data); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return nil
	}

	if err := set(keyGlobal, t.Global); err != nil {
		return err
	}
	if err := set(keyFrequent, t.Frequent); err != nil {
		return err
	}
	for bucket, items := range t.ByTimeBucket {
		if err := set(timeTablePrefix+bucket, items); err != nil {
			return err
		}
	}
	for stage, items := range t.ByLifecycle {
		if err := set(lifecycleTablePfx+stage, items); err != nil {
			return err
		}
	}
	for cluster, items := range t.ByBehavior {
		if err := set(behaviorTablePfx+strconv.Itoa(cluster), items); err != nil {
			return err
		}
	}
	for item, dept := range t.Departments {
		if err := wb.Set([]byte(departmentPrefix+strconv.Itoa(item)), []byte(dept)); err != nil {
			return fmt.Errorf("set department: %w", err)
		}
	}
	for cluster, w := range t.BehaviorWeights {
		if err := set(behaviorWeightPfx+strconv.Itoa(cluster), w); err != nil {
			return err
		}
	}
	for cluster, w := range t.PreferenceWeights {
		if err := set(preferenceWeightPfx+strconv.Itoa(cluster), w); err != nil {
			return err
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush tables: %w", err)
	}

	st := t.Stats()
	s.logger.Info().
		Int("global", st.Global).
		Int("departments", st.Departments).
		Int("time_buckets", st.TimeBuckets).
		Int("lifecycle_stages", st.LifecycleStages).
		Int("behavior_clusters", st.BehaviorClusters).
		Msg("catalog tables saved")
	return nil
}

// LoadTables reads every table back.
func (s *Store) LoadTables(ctx context.Context) (*Tables, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := NewTables()

	err := s.db.View(func(txn *badger.Txn) error {
		if err := getJSON(txn, keyGlobal, &t.Global); err != nil {
			return err
		}
		if err := getJSON(txn, keyFrequent, &t.Frequent); err != nil {
			return err
		}

		if err := scanPrefix(txn, timeTablePrefix, func(suffix string, val []byte) error {
			var items []int
			if err := json.Unmarshal(val, &items); err != nil {
				return err
			}
			t.ByTimeBucket[suffix] = items
			return nil
		}); err != nil {
			return fmt.Errorf("load time tables: %w", err)
		}

		if err := scanPrefix(txn, lifecycleTablePfx, func(suffix string, val []byte) error {
			var items []int
			if err := json.Unmarshal(val, &items); err != nil {
				return err
			}
			t.ByLifecycle[suffix] = items
			return nil
		}); err != nil {
			return fmt.Errorf("load lifecycle tables: %w", err)
		}

		if err := scanPrefix(txn, behaviorTablePfx, func(suffix string, val []byte) error {
			cluster, err := strconv.Atoi(suffix)
			if err != nil {
				return fmt.Errorf("behavior cluster %q: %w", suffix, err)
			}
			var items []int
			if err := json.Unmarshal(val, &items); err != nil {
				return err
			}
			t.ByBehavior[cluster] = items
			return nil
		}); err != nil {
			return fmt.Errorf("load behavior tables: %w", err)
		}

		if err := scanPrefix(txn, departmentPrefix, func(suffix string, val []byte) error {
			item, err := strconv.Atoi(suffix)
			if err != nil {
				return fmt.Errorf("department item %q: %w", suffix, err)
			}
			t.Departments[item] = string(val)
			return nil
		}); err != nil {
			return fmt.Errorf("load departments: %w", err)
		}

		if err := scanPrefix(txn, behaviorWeightPfx, func(suffix string, val []byte) error {
			cluster, err := strconv.Atoi(suffix)
			if err != nil {
				return fmt.Errorf("behavior weight cluster %q: %w", suffix, err)
			}
			var w map[int]float64
			if err := json.Unmarshal(val, &w); err != nil {
				return err
			}
			t.BehaviorWeights[cluster] = w
			return nil
		}); err != nil {
			return fmt.Errorf("load behavior weights: %w", err)
		}

		if err := scanPrefix(txn, preferenceWeightPfx, func(suffix string, val []byte) error {
			cluster, err := strconv.Atoi(suffix)
			if err != nil {
				return fmt.Errorf("preference weight cluster %q: %w", suffix, err)
			}
			var w map[string]float64
			if err := json.Unmarshal(val, &w); err != nil {
				return err
			}
			t.PreferenceWeights[cluster] = w
			return nil
		}); err != nil {
			return fmt.Errorf("load preference weights: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// PutUsers stores user profiles and returns how many were written.
func (s *Store) PutUsers(ctx context.Context, users []UserProfile) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range users {
		data, err := json.Marshal(&users[i])
		if err != nil {
			return 0, fmt.Errorf("marshal user %d: %w", users[i].UserID, err)
		}
		if err := wb.Set([]byte(userPrefix+strconv.Itoa(users[i].UserID)), data); err != nil {
			return 0, fmt.Errorf("set user %d: %w", users[i].UserID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush users: %w", err)
	}
	return len(users), nil
}

// UserContext implements UserContextLoader. Unknown users get the defaults.
func (s *Store) UserContext(ctx context.Context, userID int) (UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return UserProfile{}, err
	}

	var p UserProfile
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userPrefix + strconv.Itoa(userID)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if err != nil {
		return UserProfile{}, err
	}
	if !found {
		s.logger.Debug().Int("user_id", userID).Msg("user profile not found, using defaults")
		return s.defaults.Profile(userID), nil
	}
	return p, nil
}

func historyKey(p *Purchase) []byte {
	return []byte(fmt.Sprintf("%s%d:%020d:%d", historyPrefix, p.UserID, p.Timestamp.UnixMilli(), p.ItemID))
}

// AddPurchases appends purchases to the history.
func (s *Store) AddPurchases(ctx context.Context, purchases []Purchase) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range purchases {
		if err := wb.Set(historyKey(&purchases[i]), nil); err != nil {
			return 0, fmt.Errorf("set purchase: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush purchases: %w", err)
	}
	return len(purchases), nil
}

// RecentItems returns up to limit distinct items the user bought, newest first.
func (s *Store) RecentItems(ctx context.Context, userID, limit int) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items := make([]int, 0, limit)
	if limit <= 0 {
		return items, nil
	}
	seen := make(map[int]bool, limit)

	prefix := []byte(historyPrefix + strconv.Itoa(userID) + ":")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			idx := strings.LastIndexByte(key, ':')
			id, err := strconv.Atoi(key[idx+1:])
			if err != nil {
				return fmt.Errorf("history key %q: %w", key, err)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			items = append(items, id)
			if len(items) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// getJSON decodes key into v. A missing key leaves v untouched.
func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// scanPrefix calls fn for every key under prefix with the prefix stripped.
func scanPrefix(txn *badger.Txn, prefix string, fn func(suffix string, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		item := it.Item()
		suffix := strings.TrimPrefix(string(item.Key()), prefix)
		if err := item.Value(func(val []byte) error {
			return fn(suffix, val)
		}); err != nil {
			return err
		}
	}
	return nil
}

var _ UserContextLoader = (*Store)(nil)
