// Package cache caches search results in Redis. Concurrent identical
// searches that miss the cache are collapsed into one execution.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/metrics"
)

const keyPrefix = "search:"

// Store is the key/value backend. *redis.Client implements it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, req executor.Request) (*executor.SearchResult, bool) {
	key := BuildKey(req)
	result, ok := c.lookup(ctx, key)
	if ok {
		c.recordHit()
		c.logger.Debug("cache hit", "query", req.Query, "key", key)
	} else {
		c.recordMiss()
	}
	return result, ok
}

func (c *QueryCache) lookup(ctx context.Context, key string) (*executor.SearchResult, bool) {
	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	// keep numeric keys exact
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var result executor.SearchResult
	if err := dec.Decode(&result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, req executor.Request, result *executor.SearchResult) {
	key := BuildKey(req)
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(result); err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, buf.Bytes(), c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result of req, or runs computeFn once for
// all concurrent callers with the same key and caches its result. Errors are
// not cached.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	req executor.Request,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, req); ok {
		return result, true, nil
	}
	key := BuildKey(req)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.lookup(ctx, key); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, req, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey derives the cache key of req. Queries that parse to the same
// terms share a key regardless of term order, case or stemming.
func BuildKey(req executor.Request) string {
	raw := fmt.Sprintf("%s:limit=%d:order=%s", normalizeQuery(req.Query), req.Limit, req.OrderBy)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

func normalizeQuery(query string) string {
	plan := parser.Parse(query)
	terms := append([]string(nil), plan.Terms...)
	excludes := append([]string(nil), plan.ExcludeTerms...)
	sort.Strings(terms)
	sort.Strings(excludes)
	parts := []string{plan.Type.String(), strings.Join(terms, ",")}
	if len(excludes) > 0 {
		parts = append(parts, "NOT:"+strings.Join(excludes, ","))
	}
	return strings.Join(parts, "|")
}
