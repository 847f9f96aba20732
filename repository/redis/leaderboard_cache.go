package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/repository"
)

type leaderboardCache struct {
	client  *redislib.Client
	prefix  string
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
}

// NewLeaderboardCache creates a Redis-backed leaderboard cache. Calls go through a
// circuit breaker so a struggling Redis is skipped instead of slowing every read.
func NewLeaderboardCache(client *redislib.Client, ttl time.Duration, logger *zap.Logger) repository.LeaderboardCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "leaderboard-cache",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redislib.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &leaderboardCache{
		client:  client,
		prefix:  "leaderboard:",
		ttl:     ttl,
		breaker: breaker,
	}
}

func (c *leaderboardCache) Generation(ctx context.Context) (int64, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.Get(ctx, c.generationKey()).Int64()
	})
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return result.(int64), nil
}

func (c *leaderboardCache) Get(ctx context.Context, generation int64, window domain.Window) ([]domain.LeaderboardEntry, bool, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.Get(ctx, c.key(generation, window)).Bytes()
	})
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(result.([]byte), &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

func (c *leaderboardCache) Set(ctx context.Context, generation int64, window domain.Window, entries []domain.LeaderboardEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, c.key(generation, window), payload, c.ttl).Err()
	})
	return err
}

// Invalidate bumps the generation. Views stored under older generations are left
// to expire with their TTL.
func (c *leaderboardCache) Invalidate(ctx context.Context) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Incr(ctx, c.generationKey()).Err()
	})
	return err
}

func (c *leaderboardCache) generationKey() string {
	return c.prefix + "gen"
}

func (c *leaderboardCache) key(generation int64, window domain.Window) string {
	return fmt.Sprintf("%s%d:%s", c.prefix, generation, window)
}
