package ratelimit_test

import (
	"testing"
	"time"

	"github.com/lukextesst/user/ratelimit"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := ratelimit.New(10*time.Second, ratelimit.WithNowTime(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Allow("1.2.3.4", ratelimit.ActionGenerate, 3), "request %d", i+1)
	}
	require.False(t, limiter.Allow("1.2.3.4", ratelimit.ActionGenerate, 3))

	t.Run("actions and addresses are independent", func(t *testing.T) {
		require.True(t, limiter.Allow("1.2.3.4", ratelimit.ActionInitiateVerification, 3))
		require.True(t, limiter.Allow("5.6.7.8", ratelimit.ActionGenerate, 3))
	})

	t.Run("window reset", func(t *testing.T) {
		now = now.Add(9 * time.Second)
		require.False(t, limiter.Allow("1.2.3.4", ratelimit.ActionGenerate, 3))

		now = now.Add(time.Second)
		require.True(t, limiter.Allow("1.2.3.4", ratelimit.ActionGenerate, 3))
	})
}

func TestLimiter_InstancesAreIsolated(t *testing.T) {
	a := ratelimit.New(time.Minute)
	b := ratelimit.New(time.Minute)

	require.True(t, a.Allow("1.2.3.4", ratelimit.ActionGenerate, 1))
	require.False(t, a.Allow("1.2.3.4", ratelimit.ActionGenerate, 1))
	require.True(t, b.Allow("1.2.3.4", ratelimit.ActionGenerate, 1))
}
