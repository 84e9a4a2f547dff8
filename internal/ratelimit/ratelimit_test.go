package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/flyerpoint/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, bucketTTL(0, 10))
	assert.Equal(t, time.Second, bucketTTL(1, 0))
	assert.Equal(t, 20*time.Second, bucketTTL(1, 10))
	assert.Equal(t, time.Second, bucketTTL(100, 10))
	assert.Equal(t, 3*time.Second, bucketTTL(2, 3))
}

func TestScriptNumber(t *testing.T) {
	assert.Equal(t, 1.0, scriptNumber(int64(1)))
	assert.Equal(t, 2.25, scriptNumber("2.25"))
	assert.Equal(t, 0.0, scriptNumber("nope"))
	assert.Equal(t, 0.0, scriptNumber(nil))
}

func TestBucketResultRetryAfter(t *testing.T) {
	res := bucketResult(false, 0, 1_000, 2, 5)
	assert.False(t, res.Allowed)
	assert.Equal(t, 500*time.Millisecond, res.RetryAfter)
	assert.Equal(t, 5, res.Limit)
	assert.Equal(t, time.UnixMilli(1_000).Add(500*time.Millisecond), res.ResetTime)

	res = bucketResult(false, 0.75, 1_000, 1, 5)
	assert.Equal(t, 250*time.Millisecond, res.RetryAfter)
	assert.Equal(t, 0, res.Remaining)

	res = bucketResult(true, 3.6, 1_000, 2, 5)
	assert.True(t, res.Allowed)
	assert.Equal(t, 3, res.Remaining)
	assert.Zero(t, res.RetryAfter)
}

func TestNilLimiterAllows(t *testing.T) {
	var l *RewardLimiter
	assert.False(t, l.Enabled())

	res, err := l.AllowUser(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNewRewardLimiterDisabled(t *testing.T) {
	l, err := NewRewardLimiter(fxtest.NewLifecycle(t), config.Config{})
	require.NoError(t, err)
	assert.Nil(t, l)
}

func TestNewRewardLimiterValidatesConfig(t *testing.T) {
	_, err := NewRewardLimiter(fxtest.NewLifecycle(t), config.Config{
		RateLimit: config.RateLimitConfig{Enabled: true, RedisAddr: " "},
	})
	require.Error(t, err)

	_, err = NewRewardLimiter(fxtest.NewLifecycle(t), config.Config{
		RateLimit: config.RateLimitConfig{Enabled: true, RedisAddr: "localhost:6379", RewardRate: 0, RewardBurst: 1},
	})
	require.Error(t, err)
}

func TestTokenBucketRejectsBadInput(t *testing.T) {
	var tb *TokenBucket
	_, err := tb.Allow(context.Background(), "k", 1, 1)
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Nil(t, NewTokenBucket(nil))
}

func TestRewardKey(t *testing.T) {
	assert.Equal(t, "reward:user:42", RewardKey("42"))
}
