package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

const (
	generationKey = "leaderboard:generation"
	// minPageTTL keeps every page key expiring; pages of old generations are never deleted otherwise.
	minPageTTL = time.Second
)

// LeaderboardCache decorates a player repository with Redis-cached leaderboard pages.
// Pages are stored as: SET leaderboard:{generation}:{limit}:{offset}:{onlyPerfect} <json>
// Every write bumps the generation so stale pages are never read again and simply expire.
type LeaderboardCache struct {
	client *redis.Client
	inner  app.PlayerRepository
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewLeaderboardCache(client *redis.Client, inner app.PlayerRepository, ttl time.Duration) *LeaderboardCache {
	if ttl < minPageTTL {
		ttl = minPageTTL
	}
	return &LeaderboardCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LeaderboardCache) Create(ctx context.Context, record domain.PlayerRecord) (domain.PlayerRecord, error) {
	created, err := c.inner.Create(ctx, record)
	if err == nil {
		c.invalidate(ctx)
	}
	return created, err
}

func (c *LeaderboardCache) Get(ctx context.Context, id string) (domain.PlayerRecord, error) {
	return c.inner.Get(ctx, id)
}

func (c *LeaderboardCache) Save(ctx context.Context, record domain.PlayerRecord) (domain.PlayerRecord, error) {
	saved, err := c.inner.Save(ctx, record)
	if err == nil {
		c.invalidate(ctx)
	}
	return saved, err
}

func (c *LeaderboardCache) ResetAll(ctx context.Context, at time.Time) (domain.ResetResult, error) {
	result, err := c.inner.ResetAll(ctx, at)
	if err == nil {
		c.invalidate(ctx)
	}
	return result, err
}

func (c *LeaderboardCache) Leaderboard(ctx context.Context, q domain.LeaderboardQuery) ([]domain.PlayerRecord, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		// cache unavailable: serve straight from the store
		return c.inner.Leaderboard(ctx, q)
	}
	key := pageKey(gen, q)
	if records, ok := c.cached(ctx, key); ok {
		return records, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if records, ok := c.cached(ctx, key); ok {
			return records, nil
		}

		records, err := c.inner.Leaderboard(ctx, q)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(records); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.PlayerRecord), nil
}

func (c *LeaderboardCache) cached(ctx context.Context, key string) ([]domain.PlayerRecord, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var records []domain.PlayerRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false
	}
	return records, true
}

func (c *LeaderboardCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// best-effort: a failed bump only delays freshness until the page TTL expires
func (c *LeaderboardCache) invalidate(ctx context.Context) {
	_ = c.client.Incr(ctx, generationKey).Err()
}

func pageKey(gen int64, q domain.LeaderboardQuery) string {
	return fmt.Sprintf("leaderboard:%d:%d:%d:%t", gen, q.Limit, q.Offset, q.OnlyPerfect)
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
