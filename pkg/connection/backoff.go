package connection

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	// InitialBackoff is the delay before the first retry.
	InitialBackoff = 1 * time.Second

	// MaxBackoff caps the delay between retries.
	MaxBackoff = 60 * time.Second

	// BackoffMultiplier grows the delay after each failed attempt.
	BackoffMultiplier = 2.0

	// JitterFactor bounds the random jitter added on top of the base
	// delay, as a fraction of it.
	JitterFactor = 0.25
)

// BackoffConfig overrides the default retry timing. Zero fields fall back
// to the package defaults.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Backoff produces the delay sequence for reconnection attempts:
// exponential growth from Initial to Max, with random jitter so several
// bridges on one host do not retry in lockstep.
type Backoff struct {
	mu       sync.Mutex
	base     time.Duration
	attempts int
	cfg      BackoffConfig
}

// NewBackoff returns a Backoff with the default timing.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{})
}

// NewBackoffWithConfig returns a Backoff with custom timing.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = InitialBackoff
	}
	if cfg.Max <= 0 {
		cfg.Max = MaxBackoff
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = BackoffMultiplier
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return &Backoff{base: cfg.Initial, cfg: cfg}
}

// Next returns the delay to wait before the upcoming attempt and advances
// the sequence.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.base
	if b.cfg.Jitter > 0 {
		delay += time.Duration(float64(delay) * b.cfg.Jitter * rand.Float64())
	}

	b.attempts++
	if next := time.Duration(float64(b.base) * b.cfg.Multiplier); next < b.cfg.Max {
		b.base = next
	} else {
		b.base = b.cfg.Max
	}
	return delay
}

// Reset rewinds the sequence to its initial delay. Called after a
// successful connection.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.base = b.cfg.Initial
	b.attempts = 0
}

// Attempts reports how many delays have been handed out since the last
// Reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// BackoffSequence lists the base delays (before jitter) the default
// configuration steps through.
func BackoffSequence() []time.Duration {
	return []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
	}
}
