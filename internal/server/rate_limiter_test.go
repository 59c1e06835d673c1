package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_DisabledAllowsEverything(t *testing.T) {
	rl := newRateLimiter(0, time.Second)
	require.Nil(t, rl)
	for i := 0; i < 100; i++ {
		require.True(t, rl.allow())
	}
}

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	rl := newRateLimiter(2, time.Hour)

	require.True(t, rl.allow())
	require.True(t, rl.allow())
	require.False(t, rl.allow())
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := newRateLimiter(1, 20*time.Millisecond)

	require.True(t, rl.allow())
	require.False(t, rl.allow())
	require.Eventually(t, rl.allow, time.Second, 5*time.Millisecond)
}
