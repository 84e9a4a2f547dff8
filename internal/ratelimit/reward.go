package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/flyerpoint/internal/config"
	"go.uber.org/fx"
)

const keyRewardUser = "reward:user:%s"

// RewardLimiter throttles reward submissions per user. A nil limiter
// allows everything.
type RewardLimiter struct {
	client *redis.Client
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewRewardLimiter(lc fx.Lifecycle, cfg config.Config) (*RewardLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.RewardRate <= 0 || limitCfg.RewardBurst <= 0 {
		return nil, errors.New("reward rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	lc.Append(fx.StopHook(client.Close))

	return &RewardLimiter{
		client: client,
		bucket: NewTokenBucket(client),
		rate:   limitCfg.RewardRate,
		burst:  limitCfg.RewardBurst,
	}, nil
}

func (l *RewardLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowUser takes one token from the user's reward bucket.
func (l *RewardLimiter) AllowUser(ctx context.Context, userID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return &RateLimitResult{Limit: l.burst}, ErrEmptyKey
	}
	return l.bucket.Allow(ctx, RewardKey(userID), l.rate, l.burst)
}

func RewardKey(userID string) string {
	return fmt.Sprintf(keyRewardUser, userID)
}
