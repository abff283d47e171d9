package core

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	DefaultInitialRetryDelay = 5 * time.Second
	DefaultMaxRetryDelay     = 10 * time.Minute
)

// BackoffPolicy computes rate-limit retry delays with "full jitter":
// the delay for attempt n is uniformly distributed in [0, min(Max, Initial*2^n)).
// The expected delay therefore doubles with each attempt until the cap.
type BackoffPolicy struct {
	// Initial is the uncapped delay bound for the first retry.
	Initial time.Duration
	// Max caps the bound, however many attempts were made.
	Max time.Duration
	// Rand returns a value in [0, 1). Inject a deterministic source in tests.
	Rand func() float64
}

// DefaultBackoffPolicy returns the policy used when the config has none.
func DefaultBackoffPolicy() *BackoffPolicy {
	return &BackoffPolicy{
		Initial: DefaultInitialRetryDelay,
		Max:     DefaultMaxRetryDelay,
		Rand:    lockedFloat64(),
	}
}

// Delay returns how long to wait before retrying after the given number of
// rate-limited attempts. It is never negative.
func (b *BackoffPolicy) Delay(attempt int) time.Duration {
	return time.Duration(b.jitter() * float64(b.Bound(attempt)))
}

// Bound returns the exclusive upper limit of Delay(attempt).
func (b *BackoffPolicy) Bound(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	initial := b.Initial
	if initial <= 0 {
		initial = DefaultInitialRetryDelay
	}
	maxDelay := b.Max
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}
	raw := float64(initial) * math.Pow(2, float64(attempt))
	if raw > float64(maxDelay) || math.IsInf(raw, 1) {
		return maxDelay
	}
	return time.Duration(raw)
}

func (b *BackoffPolicy) jitter() float64 {
	if b.Rand == nil {
		return rand.Float64()
	}
	j := b.Rand()
	switch {
	case j < 0:
		return 0
	case j > 1:
		return 1
	}
	return j
}

// SleepFunc blocks for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// TimerSleep is the default SleepFunc. The timer is always stopped.
func TimerSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// lockedFloat64 returns a goroutine safe random source seeded from the clock.
func lockedFloat64() func() float64 {
	var mu sync.Mutex
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return rnd.Float64()
	}
}
