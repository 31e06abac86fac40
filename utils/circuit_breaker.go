package utils

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/TrongtrongJ/eventeer/internal/status"
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateHalfOpen:
		return "HALF_OPEN"
	case StateOpen:
		return "OPEN"
	default:
		return "CLOSED"
	}
}

type CircuitConfig struct {
	Threshold    int
	Timeout      time.Duration
	ResetTimeout time.Duration
}

// CircuitBreaker guards one named external dependency. The OPEN to
// HALF_OPEN transition is computed lazily from openedAt on every call
// instead of a background timer, so the breaker self-heals under zero
// traffic and stays deterministic under an injected clock.
type CircuitBreaker struct {
	name   string
	config CircuitConfig

	mutex        sync.Mutex
	state        State
	failureCount int
	openedAt     time.Time
	// trialInFlight ensures only one half-open trial runs against the
	// dependency at a time; concurrent callers short-circuit as if open.
	trialInFlight bool
	now           func() time.Time
}

func NewCircuitBreaker(name string, config CircuitConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:   name,
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// Execute runs fn unless the circuit is open, in which case fallback (or
// ErrCircuitOpen) is returned without attempting the call. A failure during
// a half-open trial re-opens the circuit and also routes to the fallback.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() (any, error), fallback func() (any, error)) (any, error) {
	cb.mutex.Lock()
	state := cb.effectiveState(cb.now())
	if state == StateOpen || (state == StateHalfOpen && cb.trialInFlight) {
		failures := cb.failureCount
		cb.mutex.Unlock()

		slog.Warn("Circuit is not accepting calls, short-circuiting",
			"circuit", cb.name,
			"state", state.String(),
			"failures", failures,
		)
		if fallback != nil {
			return fallback()
		}
		return nil, status.ErrCircuitOpen
	}
	trial := state == StateHalfOpen
	if trial {
		cb.trialInFlight = true
	}
	cb.state = state
	cb.mutex.Unlock()

	result, err := fn()
	if err != nil {
		cb.onFailure(trial)
		if trial && fallback != nil {
			slog.Warn("Executing fallback after half-open trial failure",
				"circuit", cb.name,
				"error", err,
			)
			return fallback()
		}
		return nil, err
	}

	cb.onSuccess(trial)
	return result, nil
}

// effectiveState resolves the lazy OPEN -> HALF_OPEN transition. Callers
// must hold cb.mutex.
func (cb *CircuitBreaker) effectiveState(now time.Time) State {
	if cb.state != StateOpen {
		return cb.state
	}
	elapsed := now.Sub(cb.openedAt)
	if elapsed >= cb.config.ResetTimeout || elapsed >= cb.config.Timeout {
		return StateHalfOpen
	}
	return StateOpen
}

func (cb *CircuitBreaker) onSuccess(trial bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if trial {
		slog.Info("Circuit half-open trial succeeded, closing",
			"circuit", cb.name,
		)
		cb.trialInFlight = false
		cb.state = StateClosed
		cb.failureCount = 0
		return
	}

	// Health recovers slowly even without tripping.
	if cb.state == StateClosed && cb.failureCount > 0 {
		cb.failureCount--
	}
}

func (cb *CircuitBreaker) onFailure(trial bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failureCount++

	if trial {
		cb.trialInFlight = false
		cb.state = StateOpen
		cb.openedAt = cb.now()
		slog.Warn("Circuit half-open trial failed, re-opening",
			"circuit", cb.name,
			"failures", cb.failureCount,
		)
		return
	}

	if cb.state == StateClosed && cb.failureCount >= cb.config.Threshold {
		cb.state = StateOpen
		cb.openedAt = cb.now()
		slog.Error("Circuit breaker OPENED",
			"circuit", cb.name,
			"failures", cb.failureCount,
			"threshold", cb.config.Threshold,
		)
	}
}

// State reports the effective state at the time of the call.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.effectiveState(cb.now())
}

func (cb *CircuitBreaker) FailureCount() int {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.failureCount
}

// CircuitRegistry holds one breaker per named dependency. Breakers are
// created lazily on first use and live for the process lifetime.
type CircuitRegistry struct {
	mutex    sync.Mutex
	circuits map[string]*CircuitBreaker
	defaults CircuitConfig
}

func NewCircuitRegistry(defaults CircuitConfig) *CircuitRegistry {
	return &CircuitRegistry{
		circuits: make(map[string]*CircuitBreaker),
		defaults: defaults,
	}
}

// Get returns the breaker for name, creating it with the registry defaults
// merged with any supplied overrides.
func (r *CircuitRegistry) Get(name string, overrides ...CircuitConfig) *CircuitBreaker {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if cb, ok := r.circuits[name]; ok {
		return cb
	}

	config := r.defaults
	if len(overrides) > 0 {
		o := overrides[0]
		if o.Threshold > 0 {
			config.Threshold = o.Threshold
		}
		if o.Timeout > 0 {
			config.Timeout = o.Timeout
		}
		if o.ResetTimeout > 0 {
			config.ResetTimeout = o.ResetTimeout
		}
	}

	cb := NewCircuitBreaker(name, config)
	r.circuits[name] = cb
	return cb
}

// Execute is a convenience wrapper resolving the breaker by name first.
func (r *CircuitRegistry) Execute(ctx context.Context, name string, fn func() (any, error), fallback func() (any, error)) (any, error) {
	return r.Get(name).Execute(ctx, fn, fallback)
}

// Snapshot reports the current state of every registered circuit.
func (r *CircuitRegistry) Snapshot() map[string]State {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	states := make(map[string]State, len(r.circuits))
	for name, cb := range r.circuits {
		states[name] = cb.State()
	}
	return states
}
