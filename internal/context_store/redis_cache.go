package context_store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lewisedginton/travel_context_engine/internal/context_provider"
	"github.com/lewisedginton/travel_context_engine/pkg/logger"
)

// RedisConversationCache wraps another Store and serves recent conversation
// turns out of a Redis list with a TTL. It is a strict read-through/
// write-through proxy: Redis never holds state the backing store does not,
// so a cache miss or Redis outage only costs a round trip to the backing
// store. All non-conversation operations pass through untouched.
type RedisConversationCache struct {
	Store

	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// RedisCacheConfig holds configuration for the conversation cache.
type RedisCacheConfig struct {
	Backing Store
	URL     string
	TTL     time.Duration
	Logger  logger.Logger
}

// NewRedisConversationCache connects to Redis and wraps the backing store.
func NewRedisConversationCache(ctx context.Context, cfg RedisCacheConfig) (*RedisConversationCache, error) {
	if cfg.Backing == nil {
		return nil, fmt.Errorf("backing store cannot be nil")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisConversationCache{
		Store:  cfg.Backing,
		client: client,
		ttl:    ttl,
		log:    cfg.Logger,
	}, nil
}

// GetConversationData serves turns from the Redis list when present, falling
// back to (and repopulating from) the backing store on a miss.
func (c *RedisConversationCache) GetConversationData(ctx context.Context, userID string, limit int) ([]context_provider.ConversationTurn, error) {
	key := c.key(userID)

	raw, err := c.client.LRange(ctx, key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn("Redis conversation read failed, falling back to store",
			logger.UserIDField(userID),
			logger.ErrorField(err))
		return c.Store.GetConversationData(ctx, userID, limit)
	}

	if len(raw) == 0 {
		// Repopulate from the full history so callers with a larger
		// limit are not served a truncated list on the next read.
		turns, err := c.Store.GetConversationData(ctx, userID, 0)
		if err != nil {
			return nil, err
		}
		c.populate(ctx, key, turns)
		if limit > 0 && len(turns) > limit {
			turns = turns[len(turns)-limit:]
		}
		return turns, nil
	}

	turns := make([]context_provider.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var turn context_provider.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			c.log.Warn("Corrupt cached turn, falling back to store",
				logger.UserIDField(userID),
				logger.ErrorField(err))
			return c.Store.GetConversationData(ctx, userID, limit)
		}
		turns = append(turns, turn)
	}

	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

// StoreConversationData writes through to the backing store first, then
// appends to the Redis list and refreshes its TTL.
func (c *RedisConversationCache) StoreConversationData(ctx context.Context, userID string, turn context_provider.ConversationTurn) error {
	if err := c.Store.StoreConversationData(ctx, userID, turn); err != nil {
		return err
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal conversation turn: %w", err)
	}

	key := c.key(userID)
	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		// Backing store already has the turn; drop the cache so the next
		// read repopulates instead of serving a short list.
		c.log.Warn("Redis conversation append failed, invalidating cache",
			logger.UserIDField(userID),
			logger.ErrorField(err))
		c.client.Del(ctx, key)
	}
	return nil
}

// Close releases the Redis client.
func (c *RedisConversationCache) Close() error {
	return c.client.Close()
}

func (c *RedisConversationCache) populate(ctx context.Context, key string, turns []context_provider.ConversationTurn) {
	if len(turns) == 0 {
		return
	}

	items := make([]any, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return
		}
		items = append(items, data)
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.RPush(ctx, key, items...)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Debug("Failed to populate conversation cache",
			logger.StringField("key", key),
			logger.ErrorField(err))
	}
}

func (c *RedisConversationCache) key(userID string) string {
	return "conversation:" + userID
}
