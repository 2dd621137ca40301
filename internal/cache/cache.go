package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"refhub/finder/internal/domain"

	"github.com/redis/go-redis/v9"
)

type SearchCache interface {
	Get(ctx context.Context, query string, page int) (*domain.SearchResult, bool, error)
	Set(ctx context.Context, query string, page int, result *domain.SearchResult) error
}

type redisSearchCache struct {
	redisClient redis.Cmdable
	keyPrefix   string
	ttl         time.Duration
}

func NewRedisSearchCache(redisClient redis.Cmdable, keyPrefix string, ttl time.Duration) SearchCache {
	return &redisSearchCache{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
	}
}

// Key builds the cache key for a query and page. The query is used verbatim
// since it is echoed in the cached result and its search URL.
func Key(prefix, query string, page int) string {
	return prefix + strconv.Itoa(page) + ":" + query
}

func (c *redisSearchCache) Get(ctx context.Context, query string, page int) (*domain.SearchResult, bool, error) {
	key := Key(c.keyPrefix, query, page)
	val, err := c.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached search %s: %w", key, err)
	}

	var result domain.SearchResult
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached search %s: %w", key, err)
	}

	return &result, true, nil
}

func (c *redisSearchCache) Set(ctx context.Context, query string, page int, result *domain.SearchResult) error {
	key := Key(c.keyPrefix, query, page)
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode search %s: %w", key, err)
	}

	if err := c.redisClient.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache search %s: %w", key, err)
	}
	return nil
}
