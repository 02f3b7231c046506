// Package resilience guards the remote translation service and the startup
// dials to Postgres, Redis and Kafka: a circuit breaker, backoff retry and
// a deadline wrapper.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned instead of calling through an open breaker.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

type CircuitBreakerConfig struct {
	// FailureThreshold consecutive failures open the breaker. Default 5.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays open before letting a
	// probe through. Default 30s.
	ResetTimeout time.Duration
	// HalfOpenMaxRequests probes may be in flight while half-open. Default 1.
	HalfOpenMaxRequests int
	// OnStateChange runs under the breaker's lock after each transition and
	// must not call back into the breaker.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker stops calling the translation service after repeated
// failures so searches fall back to the dictionary without waiting on
// timeouts. Calls the caller abandoned (context.Canceled), such as a
// superseded keystroke, count as neither success nor failure.
//
// Every transition starts a new generation; results reported for an older
// generation are ignored, so a slow call started before the breaker opened
// cannot close it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	failures   int
	openedAt   time.Time
	probes     int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
		now:    time.Now,
	}
}

func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs fn unless the breaker rejects the call.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	gen, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.report(gen, err)
	return err
}

func (cb *CircuitBreaker) ExecuteContext(ctx context.Context, fn func(ctx context.Context) error) error {
	return cb.Execute(func() error { return fn(ctx) })
}

// GetState reports the state as of now; an open breaker whose reset
// timeout has passed reads as half-open.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advance()
	return cb.state
}

// advance moves an expired open breaker to half-open.
func (cb *CircuitBreaker) advance() {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		cb.setState(StateHalfOpen)
		cb.logger.Info("circuit half-open, probing translation service")
	}
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advance()
	switch cb.state {
	case StateOpen:
		wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt)
		return 0, fmt.Errorf("%w: %s, next probe in %v", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			return 0, fmt.Errorf("%w: %s, probe already in flight", ErrCircuitOpen, cb.name)
		}
		cb.probes++
	}
	return cb.generation, nil
}

func (cb *CircuitBreaker) report(gen uint64, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if gen != cb.generation {
		return
	}
	switch {
	case errors.Is(err, context.Canceled):
		if cb.state == StateHalfOpen {
			cb.probes--
		}
	case err == nil:
		if cb.state == StateHalfOpen {
			cb.setState(StateClosed)
			cb.logger.Info("circuit closed, translation service recovered")
			return
		}
		cb.failures = 0
	default:
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
			cb.logger.Warn("circuit opened", "consecutive_failures", cb.failures, "error", err)
			cb.setState(StateOpen)
		}
	}
}

// setState starts a new generation in state to.
func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	cb.state = to
	cb.generation++
	cb.failures = 0
	cb.probes = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	if from != to && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}
