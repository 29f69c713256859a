package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDownstream = errors.New("downstream failed")

// fakeClock lets tests step the breaker's rolling window deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestBreaker(settings Settings) (*Breaker, *fakeClock) {
	b := New(settings)
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	b.now = clock.now
	b.bucketStart = clock.t
	return b, clock
}

func failing(ctx context.Context) error { return errDownstream }
func succeeding(ctx context.Context) error { return nil }

func TestBreakerStartsClosed(t *testing.T) {
	b, _ := newTestBreaker(DefaultSettings("test"))

	stats := b.Stats()

	assert.Equal(t, "closed", stats.State)
	assert.Zero(t, stats.Successes)
	assert.Zero(t, stats.Failures)
}

func TestBreakerPassesCallsThroughWhenClosed(t *testing.T) {
	b, _ := newTestBreaker(DefaultSettings("test"))
	calls := 0

	err := b.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), b.Stats().Successes)
}

func TestBreakerOpensAtErrorThreshold(t *testing.T) {
	settings := DefaultSettings("test")
	settings.MinRequests = 4
	b, _ := newTestBreaker(settings)

	// 2 successes then 2 failures: 50% error rate over the window.
	require.NoError(t, b.Execute(context.Background(), succeeding))
	require.NoError(t, b.Execute(context.Background(), succeeding))
	require.Error(t, b.Execute(context.Background(), failing))
	require.Error(t, b.Execute(context.Background(), failing))

	assert.Equal(t, "open", b.Stats().State)
}

func TestBreakerStaysClosedBelowThreshold(t *testing.T) {
	settings := DefaultSettings("test")
	settings.MinRequests = 4
	b, _ := newTestBreaker(settings)

	require.NoError(t, b.Execute(context.Background(), succeeding))
	require.NoError(t, b.Execute(context.Background(), succeeding))
	require.NoError(t, b.Execute(context.Background(), succeeding))
	require.Error(t, b.Execute(context.Background(), failing))

	assert.Equal(t, "closed", b.Stats().State)
}

func TestBreakerShortCircuitsWhenOpen(t *testing.T) {
	b, _ := newTestBreaker(DefaultSettings("test"))
	require.Error(t, b.Execute(context.Background(), failing))
	require.Equal(t, "open", b.Stats().State)

	calls := 0
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, ErrOpen)
	assert.Zero(t, calls, "open circuit must not reach the downstream")
}

func TestBreakerHalfOpenTrialSuccessCloses(t *testing.T) {
	settings := DefaultSettings("test")
	b, clock := newTestBreaker(settings)
	require.Error(t, b.Execute(context.Background(), failing))
	require.Equal(t, "open", b.Stats().State)

	clock.advance(settings.Cooldown)

	require.NoError(t, b.Execute(context.Background(), succeeding))
	stats := b.Stats()
	assert.Equal(t, "closed", stats.State)
	assert.Zero(t, stats.Failures, "closing after trial resets the window")
}

func TestBreakerHalfOpenTrialFailureReopens(t *testing.T) {
	settings := DefaultSettings("test")
	b, clock := newTestBreaker(settings)
	require.Error(t, b.Execute(context.Background(), failing))

	clock.advance(settings.Cooldown)
	require.Error(t, b.Execute(context.Background(), failing))
	assert.Equal(t, "open", b.Stats().State)

	// The cooldown restarts from the failed trial.
	clock.advance(settings.Cooldown / 2)
	assert.ErrorIs(t, b.Execute(context.Background(), succeeding), ErrOpen)

	clock.advance(settings.Cooldown / 2)
	require.NoError(t, b.Execute(context.Background(), succeeding))
	assert.Equal(t, "closed", b.Stats().State)
}

func TestBreakerWindowExpiresOldFailures(t *testing.T) {
	settings := DefaultSettings("test")
	settings.MinRequests = 2
	b, clock := newTestBreaker(settings)

	require.Error(t, b.Execute(context.Background(), failing))
	clock.advance(settings.Window + time.Second)

	stats := b.Stats()
	assert.Zero(t, stats.Failures, "failures older than the window must not count")

	// A single new failure alone does not meet the 2-request floor.
	require.Error(t, b.Execute(context.Background(), failing))
	assert.Equal(t, "closed", b.Stats().State)
}

func TestBreakerCallTimeoutCountsAsFailure(t *testing.T) {
	settings := DefaultSettings("test")
	settings.CallTimeout = 10 * time.Millisecond
	b := New(settings)

	err := b.Execute(context.Background(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, uint64(1), b.Stats().Failures)
}

func TestBreakerStatsSnapshot(t *testing.T) {
	settings := DefaultSettings("catalogue")
	settings.MinRequests = 10
	b, _ := newTestBreaker(settings)

	require.NoError(t, b.Execute(context.Background(), succeeding))
	require.NoError(t, b.Execute(context.Background(), succeeding))
	require.Error(t, b.Execute(context.Background(), failing))

	stats := b.Stats()
	assert.Equal(t, "catalogue", stats.Name)
	assert.Equal(t, uint64(2), stats.Successes)
	assert.Equal(t, uint64(1), stats.Failures)
}
