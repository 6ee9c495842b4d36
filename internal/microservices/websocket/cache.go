package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RecentCache holds a contiguous tail of the chat log
type RecentCache interface {
	Push(ctx context.Context, msg ChatMessage) error
	Recent(ctx context.Context, limit int) ([]ChatMessage, error)
	Fill(ctx context.Context, msgs []ChatMessage) error
	Reset(ctx context.Context) error
}

const recentCacheKey = "chat:recent"

type cacheEntry struct {
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type redisRecentCache struct {
	client *redis.Client
	size   int64
}

func NewRedisRecentCache(client *redis.Client, size int) RecentCache {
	return &redisRecentCache{client: client, size: int64(size)}
}

func (c *redisRecentCache) Push(ctx context.Context, msg ChatMessage) error {
	data, err := encodeEntry(msg)
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, recentCacheKey, data)
		pipe.LTrim(ctx, recentCacheKey, -c.size, -1)
		return nil
	})
	return err
}

func (c *redisRecentCache) Recent(ctx context.Context, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		return []ChatMessage{}, nil
	}
	values, err := c.client.LRange(ctx, recentCacheKey, -int64(limit), -1).Result()
	if err != nil {
		return nil, err
	}
	msgs := make([]ChatMessage, 0, len(values))
	for _, v := range values {
		var e cacheEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("decode cached chat message: %w", err)
		}
		msgs = append(msgs, ChatMessage{
			Username:  e.Username,
			Body:      e.Message,
			Kind:      KindMessage,
			Timestamp: e.Timestamp,
		})
	}
	return msgs, nil
}

// Fill replaces the cached tail with msgs (chronological)
func (c *redisRecentCache) Fill(ctx context.Context, msgs []ChatMessage) error {
	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := encodeEntry(m)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recentCacheKey)
		if len(values) > 0 {
			pipe.RPush(ctx, recentCacheKey, values...)
			pipe.LTrim(ctx, recentCacheKey, -c.size, -1)
		}
		return nil
	})
	return err
}

func (c *redisRecentCache) Reset(ctx context.Context) error {
	return c.client.Del(ctx, recentCacheKey).Err()
}

func encodeEntry(m ChatMessage) (string, error) {
	data, err := json.Marshal(cacheEntry{Username: m.Username, Message: m.Body, Timestamp: m.Timestamp})
	if err != nil {
		return "", fmt.Errorf("encode cached chat message: %w", err)
	}
	return string(data), nil
}

// CachedMessageStore serves history from the cache when it holds enough
// entries and always writes through to the durable store first.
// The cache is warmed once before serving; after that every Append is
// pushed in store order, so it stays a contiguous tail of the log. If
// the tail can be neither extended nor dropped, reads bypass the cache
// until the next successful Warm.
type CachedMessageStore struct {
	store  MessageStore
	cache  RecentCache
	size   int
	logger *slog.Logger

	mu       sync.Mutex // serializes store append + cache push
	degraded atomic.Bool
}

func NewCachedMessageStore(store MessageStore, cache RecentCache, size int, logger *slog.Logger) *CachedMessageStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedMessageStore{store: store, cache: cache, size: size, logger: logger}
}

// Warm loads the newest entries from the durable store into the cache
func (s *CachedMessageStore) Warm(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := s.store.Recent(ctx, s.size)
	if err != nil {
		return err
	}
	if err := s.cache.Fill(ctx, msgs); err != nil {
		return fmt.Errorf("warm chat cache: %w", err)
	}
	s.degraded.Store(false)
	s.logger.Info("chat_cache_warmed", "entries", len(msgs))
	return nil
}

func (s *CachedMessageStore) Append(ctx context.Context, username, body string) (ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.store.Append(ctx, username, body)
	if err != nil {
		return ChatMessage{}, err
	}
	if err := s.cache.Push(ctx, msg); err != nil {
		// a gap would break the tail invariant, so drop the whole list
		s.logger.Warn("chat_cache_push_failed", "error", err)
		if err := s.cache.Reset(ctx); err != nil {
			s.degraded.Store(true)
			s.logger.Error("chat_cache_reset_failed", "error", err)
		}
	}
	return msg, nil
}

// Degraded reports whether reads currently bypass the cache
func (s *CachedMessageStore) Degraded() bool {
	return s.degraded.Load()
}

func (s *CachedMessageStore) Recent(ctx context.Context, limit int) ([]ChatMessage, error) {
	if limit <= s.size && !s.degraded.Load() {
		cached, err := s.cache.Recent(ctx, limit)
		if err == nil && len(cached) >= limit {
			return cached, nil
		}
		if err != nil {
			s.logger.Warn("chat_cache_read_failed", "error", err)
		} else {
			s.logger.Debug("chat_cache_miss", "limit", limit, "cached", len(cached))
		}
	}
	return s.store.Recent(ctx, limit)
}

func (s *CachedMessageStore) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}
