package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_OpensAfterConsecutiveFailures(t *testing.T) {
	g := NewGuard(GuardConfig{Name: "test", MaxFailures: 2, OpenTimeout: time.Minute})
	boom := errors.New("boom")
	calls := 0
	fail := func(context.Context) error {
		calls++
		return boom
	}

	assert.ErrorIs(t, g.Do(context.Background(), fail), boom)
	assert.ErrorIs(t, g.Do(context.Background(), fail), boom)
	assert.True(t, g.Open())
	assert.Equal(t, "open", g.State())

	err := g.Do(context.Background(), fail)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, calls)
}

func TestGuard_SuccessKeepsClosed(t *testing.T) {
	g := NewGuard(GuardConfig{Name: "test", MaxFailures: 1})
	for i := 0; i < 5; i++ {
		require.NoError(t, g.Do(context.Background(), func(context.Context) error { return nil }))
	}
	assert.Equal(t, "closed", g.State())
}

func TestGuard_Timeout(t *testing.T) {
	g := NewGuard(GuardConfig{Name: "test", Timeout: 20 * time.Millisecond})

	err := g.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuard_RateLimited(t *testing.T) {
	g := NewGuard(GuardConfig{Name: "test", RatePerMinute: 1, Burst: 1})
	ok := func(context.Context) error { return nil }

	require.NoError(t, g.Do(context.Background(), ok))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := g.Do(ctx, ok)
	assert.ErrorIs(t, err, ErrRateLimited)
}
