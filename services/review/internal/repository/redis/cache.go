package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository"
)

const (
	keyPrefix = "review:"
	genPrefix = "review-gen:"

	// generationTTL bounds how long a fill may take and still be judged
	// against the generation it started from.
	generationTTL = time.Hour
)

// errStaleFill aborts a Set whose generation was bumped during the load.
var errStaleFill = errors.New("review cache fill is stale")

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "review_cache_lookups_total",
	Help: "Review cache lookups by result (hit, miss, error).",
}, []string{"kind", "result"})

var cacheFills = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "review_cache_fills_total",
	Help: "Review cache fills by result (stored, stale).",
}, []string{"kind", "result"})

// ReviewCache implements repository.ReviewCache using Redis. Entries are
// JSON-encoded reviews keyed by kind and id. Each entry has a generation
// counter that Invalidate bumps; a fill carrying an older generation is
// discarded, so a read that loaded a review before a concurrent write
// cannot repopulate the cache after that write's invalidation.
type ReviewCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ repository.ReviewCache = (*ReviewCache)(nil)

// NewReviewCache creates a new Redis-backed review cache.
func NewReviewCache(client *redis.Client, ttl time.Duration) *ReviewCache {
	return &ReviewCache{
		client: client,
		ttl:    ttl,
	}
}

func cacheKey(kind domain.ItemKind, id string) string {
	return keyPrefix + string(kind) + ":" + id
}

func genKey(kind domain.ItemKind, id string) string {
	return genPrefix + string(kind) + ":" + id
}

// Get returns the cached review. On a miss the review is nil and gen is the
// generation to hand back to Set.
func (c *ReviewCache) Get(ctx context.Context, kind domain.ItemKind, id string) (*domain.Review, int64, error) {
	vals, err := c.client.MGet(ctx, cacheKey(kind, id), genKey(kind, id)).Result()
	if err != nil {
		cacheLookups.WithLabelValues(string(kind), "error").Inc()
		return nil, 0, fmt.Errorf("redis get review: %w", err)
	}

	var gen int64
	if raw, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseInt(raw, 10, 64); err != nil {
			cacheLookups.WithLabelValues(string(kind), "error").Inc()
			return nil, 0, fmt.Errorf("parse review generation: %w", err)
		}
	}

	data, ok := vals[0].(string)
	if !ok {
		cacheLookups.WithLabelValues(string(kind), "miss").Inc()
		return nil, gen, nil
	}

	var review domain.Review
	if err := json.Unmarshal([]byte(data), &review); err != nil {
		cacheLookups.WithLabelValues(string(kind), "error").Inc()
		return nil, 0, fmt.Errorf("unmarshal review: %w", err)
	}

	cacheLookups.WithLabelValues(string(kind), "hit").Inc()
	return &review, gen, nil
}

// Set stores a review with the configured TTL, provided the entry's
// generation still equals gen. A stale fill is dropped without error.
func (c *ReviewCache) Set(ctx context.Context, review *domain.Review, gen int64) error {
	data, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}

	key, gk := cacheKey(review.ItemKind, review.ID), genKey(review.ItemKind, review.ID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, gk)

	switch {
	case err == nil:
		cacheFills.WithLabelValues(string(review.ItemKind), "stored").Inc()
		return nil
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		cacheFills.WithLabelValues(string(review.ItemKind), "stale").Inc()
		return nil
	default:
		return fmt.Errorf("redis set review: %w", err)
	}
}

// Invalidate removes the given reviews from the cache and bumps their
// generations in one transaction.
func (c *ReviewCache) Invalidate(ctx context.Context, kind domain.ItemKind, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(kind, id)
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Incr(ctx, genKey(kind, id))
			pipe.Expire(ctx, genKey(kind, id), generationTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate reviews: %w", err)
	}
	return nil
}
