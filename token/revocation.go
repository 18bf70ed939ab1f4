package token

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/assoc-portal/token/jwt"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RevocationList remembers signed-out access tokens by ID until they would
// have expired anyway.
type RevocationList interface {
	jwt.RevokedChecker
	Add(ctx context.Context, jti string, expiresAt time.Time) error
	Prune(now time.Time)
}

// MemoryRevocationList is the single instance RevocationList.
type MemoryRevocationList struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{revoked: make(map[string]time.Time)}
}

func (l *MemoryRevocationList) Add(_ context.Context, jti string, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[jti] = expiresAt
	return nil
}

func (l *MemoryRevocationList) IsRevoked(jti string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.revoked[jti]
	return ok
}

func (l *MemoryRevocationList) Prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for jti, exp := range l.revoked {
		if now.After(exp) {
			delete(l.revoked, jti)
		}
	}
}

const (
	revokedKeyPrefix = "portal:revoked:"
	redisLookupLimit = 500 * time.Millisecond
)

// RedisRevocationList shares revocations between server instances. Entries
// expire with their token, so Prune has nothing to do.
type RedisRevocationList struct {
	redis   *redis.Client
	nowTime func() time.Time
}

func NewRedisRevocationList(client *redis.Client, nowTime func() time.Time) *RedisRevocationList {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &RedisRevocationList{redis: client, nowTime: nowTime}
}

func (l *RedisRevocationList) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(l.nowTime())
	if ttl <= 0 {
		return nil
	}
	return l.redis.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err()
}

// IsRevoked answers false when Redis cannot be reached: a signed-out token
// stays usable until its own expiry rather than signing everybody out.
func (l *RedisRevocationList) IsRevoked(jti string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), redisLookupLimit)
	defer cancel()
	n, err := l.redis.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		log.Warn().Err(err).Msg("revocation lookup failed")
		return false
	}
	return n > 0
}

func (l *RedisRevocationList) Prune(time.Time) {}
