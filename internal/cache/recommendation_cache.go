package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/config"
	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/redis/go-redis/v9"
)

const recommendationKeyPrefix = "replenishment:query"

// RecommendationCache stores JSON encoded query results. Every key lives under
// one prefix so a completed run can drop them all at once.
type RecommendationCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	InvalidateAll(ctx context.Context) error
}

type redisRecommendationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRecommendationCache struct{}

func NewRecommendationCache(cfg config.CacheConfig) (RecommendationCache, error) {
	if !cfg.Enabled {
		return &noopRecommendationCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisRecommendationCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopRecommendationCache() RecommendationCache {
	return &noopRecommendationCache{}
}

func (c *redisRecommendationCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode recommendation cache: %w", err)
	}
	return true, nil
}

func (c *redisRecommendationCache) Set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode recommendation cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRecommendationCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, recommendationKeyPrefix, scanBatchSize)
}

func (n *noopRecommendationCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}

func (n *noopRecommendationCache) Set(ctx context.Context, key string, value interface{}) error {
	return nil
}

func (n *noopRecommendationCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// BuildQueryKey derives a stable key for view and filter. Equivalent filters
// map to the same key regardless of product id order.
func BuildQueryKey(view string, filter domain.RecommendationFilter, extra ...string) string {
	var parts []string
	if filter.CalculationDate != nil {
		parts = append(parts, "date="+filter.CalculationDate.UTC().Format("2006-01-02"))
	}
	if filter.MinADS != nil {
		parts = append(parts, "min_ads="+strconv.FormatFloat(*filter.MinADS, 'f', -1, 64))
	}
	if filter.MinRecommendedQuantity != nil {
		parts = append(parts, "min_qty="+strconv.Itoa(*filter.MinRecommendedQuantity))
	}
	if len(filter.ProductIDs) > 0 {
		ids := append([]int64(nil), filter.ProductIDs...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		strs := make([]string, len(ids))
		for i, id := range ids {
			strs[i] = strconv.FormatInt(id, 10)
		}
		parts = append(parts, "ids="+strings.Join(strs, ","))
	}
	if filter.ActionableOnly {
		parts = append(parts, "actionable")
	}
	if s := strings.ToLower(strings.TrimSpace(filter.Search)); s != "" {
		parts = append(parts, "q="+s)
	}
	parts = append(parts,
		"sort="+domain.NormalizeSortField(filter.SortBy)+":"+domain.NormalizeSortOrder(filter.SortOrder),
	)
	if filter.Limit > 0 {
		parts = append(parts, "limit="+strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		parts = append(parts, "offset="+strconv.Itoa(filter.Offset))
	}
	parts = append(parts, extra...)

	raw := strings.Join(parts, "|")
	hash := sha1.Sum([]byte(raw))
	return fmt.Sprintf("%s:%s:%s", recommendationKeyPrefix, view, hex.EncodeToString(hash[:]))
}
