// Package breaker implements the per-persona circuit breaker that guards
// webhook dispatch.
package breaker

import (
	"sync"
	"time"
)

type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 5 * time.Minute
)

type Config struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Snapshot is a point-in-time copy of a breaker's fields.
type Snapshot struct {
	Key              string        `json:"key"`
	State            State         `json:"state"`
	Failures         int           `json:"failures"`
	LastFailureTime  *time.Time    `json:"last_failure_time,omitempty"`
	FailureThreshold int           `json:"failure_threshold"`
	ResetTimeout     time.Duration `json:"reset_timeout"`
}

type Breaker struct {
	mu  sync.Mutex
	key string
	cfg Config

	state           State
	failures        int
	lastFailureTime time.Time
}

func New(key string, cfg Config) *Breaker {
	return &Breaker{key: key, cfg: cfg.withDefaults(), state: StateClosed}
}

// IsOpen reports whether calls must be rejected. An OPEN breaker whose reset
// timeout has elapsed moves to HALF_OPEN here and lets the call through.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return false
	}
	if b.cfg.Now().Sub(b.lastFailureTime) >= b.cfg.ResetTimeout {
		b.state = StateHalfOpen
		return false
	}
	return true
}

func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = StateClosed
}

func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailureTime = b.cfg.Now()
	if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.state = StateOpen
	}
}

// Reset forces the breaker CLOSED and clears its history.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.lastFailureTime = time.Time{}
}

// State reads the stored state without applying the reset-timeout transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Snapshot{
		Key:              b.key,
		State:            b.state,
		Failures:         b.failures,
		FailureThreshold: b.cfg.FailureThreshold,
		ResetTimeout:     b.cfg.ResetTimeout,
	}
	if !b.lastFailureTime.IsZero() {
		t := b.lastFailureTime
		s.LastFailureTime = &t
	}
	return s
}
