package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the circuit is open and calls are being
// short-circuited without reaching the downstream service.
var ErrOpen = errors.New("circuit breaker is open")

// State represents the breaker state machine position.
type State int

const (
	// StateClosed lets calls through and tallies their outcomes.
	StateClosed State = iota
	// StateOpen short-circuits every call until the cooldown elapses.
	StateOpen
	// StateHalfOpen permits a single trial call after the cooldown.
	StateHalfOpen
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Settings configures a Breaker.
type Settings struct {
	// Name identifies the breaker in logs and stats.
	Name string
	// CallTimeout bounds each call; exceeding it counts as a failure.
	CallTimeout time.Duration
	// ErrorThreshold is the failure ratio (0..1] that opens the circuit.
	ErrorThreshold float64
	// Window is the rolling time span over which outcomes are tallied.
	Window time.Duration
	// Buckets is the number of slices the window is divided into.
	Buckets int
	// Cooldown is how long the circuit stays open before a trial call.
	Cooldown time.Duration
	// MinRequests is the minimum number of calls in the window before the
	// threshold is evaluated.
	MinRequests int
}

// DefaultSettings returns the standard tuning: 3s call timeout, 50% error
// threshold over a 10-second window of 10 buckets, 30s cooldown.
func DefaultSettings(name string) Settings {
	return Settings{
		Name:           name,
		CallTimeout:    3 * time.Second,
		ErrorThreshold: 0.5,
		Window:         10 * time.Second,
		Buckets:        10,
		Cooldown:       30 * time.Second,
		MinRequests:    1,
	}
}

// Stats is a read-only snapshot of the breaker.
type Stats struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Successes uint64 `json:"successes"`
	Failures  uint64 `json:"failures"`
}

type bucket struct {
	successes uint64
	failures  uint64
}

// Breaker is a failure-isolating circuit breaker with a bucketed rolling
// window. It is an explicitly constructed instance owned by the
// composition root, safe for concurrent use by all requests.
type Breaker struct {
	settings Settings

	mu          sync.Mutex
	state       State
	buckets     []bucket
	cursor      int
	bucketStart time.Time
	openedAt    time.Time
	trialActive bool

	now func() time.Time
}

// New creates a breaker. Zero-valued settings fall back to DefaultSettings.
func New(settings Settings) *Breaker {
	defaults := DefaultSettings(settings.Name)
	if settings.CallTimeout <= 0 {
		settings.CallTimeout = defaults.CallTimeout
	}
	if settings.ErrorThreshold <= 0 {
		settings.ErrorThreshold = defaults.ErrorThreshold
	}
	if settings.Window <= 0 {
		settings.Window = defaults.Window
	}
	if settings.Buckets <= 0 {
		settings.Buckets = defaults.Buckets
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = defaults.Cooldown
	}
	if settings.MinRequests <= 0 {
		settings.MinRequests = defaults.MinRequests
	}

	b := &Breaker{
		settings: settings,
		buckets:  make([]bucket, settings.Buckets),
		now:      time.Now,
	}
	b.bucketStart = b.now()
	return b
}

// Execute runs fn under the breaker. When the circuit is open the call is
// rejected immediately with ErrOpen and fn is never invoked. Each call is
// bounded by the configured timeout; a timeout counts as a failure exactly
// like any other error.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, b.settings.CallTimeout)
	defer cancel()

	err := fn(callCtx)
	b.afterCall(err == nil)
	return err
}

// Stats returns a snapshot of the current state and the window tallies.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rotate(b.now())

	var successes, failures uint64
	for _, bk := range b.buckets {
		successes += bk.successes
		failures += bk.failures
	}
	return Stats{
		Name:      b.settings.Name,
		State:     b.state.String(),
		Successes: successes,
		Failures:  failures,
	}
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.rotate(now)

	switch b.state {
	case StateOpen:
		if now.Sub(b.openedAt) < b.settings.Cooldown {
			return ErrOpen
		}
		// Cooldown elapsed: move to half-open and admit this call as the
		// single trial.
		b.state = StateHalfOpen
		b.trialActive = true
		return nil
	case StateHalfOpen:
		if b.trialActive {
			return ErrOpen
		}
		b.trialActive = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) afterCall(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.rotate(now)

	if success {
		b.buckets[b.cursor].successes++
	} else {
		b.buckets[b.cursor].failures++
	}

	switch b.state {
	case StateHalfOpen:
		b.trialActive = false
		if success {
			b.state = StateClosed
			b.reset(now)
		} else {
			b.state = StateOpen
			b.openedAt = now
		}
	case StateClosed:
		if !success && b.thresholdExceeded() {
			b.state = StateOpen
			b.openedAt = now
		}
	}
}

// thresholdExceeded reports whether the window failure ratio has reached
// the configured threshold. Callers must hold the lock.
func (b *Breaker) thresholdExceeded() bool {
	var successes, failures uint64
	for _, bk := range b.buckets {
		successes += bk.successes
		failures += bk.failures
	}
	total := successes + failures
	if total < uint64(b.settings.MinRequests) {
		return false
	}
	return float64(failures)/float64(total) >= b.settings.ErrorThreshold
}

// rotate advances the bucket ring to cover now, zeroing buckets whose time
// span has passed out of the window. Callers must hold the lock.
func (b *Breaker) rotate(now time.Time) {
	bucketSpan := b.settings.Window / time.Duration(len(b.buckets))
	elapsed := now.Sub(b.bucketStart)
	if elapsed < bucketSpan {
		return
	}
	steps := int(elapsed / bucketSpan)
	if steps >= len(b.buckets) {
		b.reset(now)
		return
	}
	for i := 0; i < steps; i++ {
		b.cursor = (b.cursor + 1) % len(b.buckets)
		b.buckets[b.cursor] = bucket{}
	}
	b.bucketStart = b.bucketStart.Add(time.Duration(steps) * bucketSpan)
}

// reset clears all window tallies. Callers must hold the lock.
func (b *Breaker) reset(now time.Time) {
	for i := range b.buckets {
		b.buckets[i] = bucket{}
	}
	b.cursor = 0
	b.bucketStart = now
}
