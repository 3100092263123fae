package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/FACorreiaa/easystock/internal/types"
)

// SessionCache short-circuits session lookups on hot paths. Entries are never
// kept beyond the session's own expiry, and the cache is always optional:
// a miss or failure falls through to the Credential Store.
type SessionCache interface {
	Get(ctx context.Context, id uuid.UUID) (*types.AuthSession, bool)
	Set(ctx context.Context, s *types.AuthSession)
	Delete(ctx context.Context, ids ...uuid.UUID)
}

func cacheTTL(ttl time.Duration, s *types.AuthSession) time.Duration {
	if remaining := time.Until(s.Session.ExpiresAt); remaining < ttl {
		return remaining
	}
	return ttl
}

// MemorySessionCache keeps sessions in process.
type MemorySessionCache struct {
	c   *cache.Cache
	ttl time.Duration
}

var _ SessionCache = (*MemorySessionCache)(nil)

func NewMemorySessionCache(ttl time.Duration) *MemorySessionCache {
	return &MemorySessionCache{c: cache.New(ttl, 2*ttl), ttl: ttl}
}

func (m *MemorySessionCache) Get(_ context.Context, id uuid.UUID) (*types.AuthSession, bool) {
	v, ok := m.c.Get(id.String())
	if !ok {
		return nil, false
	}
	s, ok := v.(types.AuthSession)
	if !ok {
		return nil, false
	}
	return &s, true
}

func (m *MemorySessionCache) Set(_ context.Context, s *types.AuthSession) {
	ttl := cacheTTL(m.ttl, s)
	if ttl <= 0 {
		return
	}
	m.c.Set(s.Session.ID.String(), *s, ttl)
}

func (m *MemorySessionCache) Delete(_ context.Context, ids ...uuid.UUID) {
	for _, id := range ids {
		m.c.Delete(id.String())
	}
}

// RedisSessionCache shares cached sessions between instances.
type RedisSessionCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ SessionCache = (*RedisSessionCache)(nil)

func NewRedisSessionCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisSessionCache {
	return &RedisSessionCache{rdb: rdb, ttl: ttl, logger: logger}
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

func (c *RedisSessionCache) Get(ctx context.Context, id uuid.UUID) (*types.AuthSession, bool) {
	raw, err := c.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "Session cache read failed", slog.Any("error", err))
		}
		return nil, false
	}
	// The password hash is not serialized, so cached users never carry it.
	var s types.AuthSession
	if err := json.Unmarshal(raw, &s); err != nil {
		c.logger.WarnContext(ctx, "Session cache entry is corrupt", slog.Any("error", err))
		return nil, false
	}
	return &s, true
}

func (c *RedisSessionCache) Set(ctx context.Context, s *types.AuthSession) {
	ttl := cacheTTL(c.ttl, s)
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, sessionKey(s.Session.ID), raw, ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "Session cache write failed", slog.Any("error", err))
	}
}

func (c *RedisSessionCache) Delete(ctx context.Context, ids ...uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.WarnContext(ctx, "Session cache delete failed", slog.Any("error", err))
	}
}
