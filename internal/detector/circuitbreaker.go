package detector

import (
	"fmt"
	"sync"
	"time"

	"github.com/lenswatch/nvr-core/internal/logging"
)

// breakerState is the current state of a circuitBreaker.
type breakerState string

const (
	stateClosed   breakerState = "closed"
	stateOpen     breakerState = "open"
	stateHalfOpen breakerState = "half-open"
)

// CircuitBreakerConfig tunes a circuitBreaker.
type CircuitBreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// DefaultCircuitBreakerConfig opens after 5 consecutive failures and
// probes again one recovery timeout later.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{FailureThreshold: 5, RecoveryTimeout: 30 * time.Second}
}

// circuitBreaker wraps outbound Detector HTTP calls so a failing
// backend is quickly and cheaply rejected instead of blocking the
// frame-sampling loop on repeated timeouts.
type circuitBreaker struct {
	config CircuitBreakerConfig
	logger *logging.Logger
	name   string

	mu              sync.RWMutex
	state           breakerState
	failureCount    int
	lastFailureTime time.Time
}

func newCircuitBreaker(name string, config CircuitBreakerConfig, logger *logging.Logger) *circuitBreaker {
	return &circuitBreaker{config: config, logger: logger, name: name, state: stateClosed}
}

// circuitBreakerError is returned when the breaker refuses to run an
// operation because it is open.
type circuitBreakerError struct {
	Name  string
	State breakerState
}

func (e *circuitBreakerError) Error() string {
	return fmt.Sprintf("circuit breaker %q is %s", e.Name, e.State)
}

func (cb *circuitBreaker) call(operation func() error) error {
	if cb.getState() == stateOpen {
		cb.mu.RLock()
		since := time.Since(cb.lastFailureTime)
		cb.mu.RUnlock()
		if since > cb.config.RecoveryTimeout {
			cb.setState(stateHalfOpen)
		} else {
			return &circuitBreakerError{Name: cb.name, State: stateOpen}
		}
	}

	err := operation()
	if err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

func (cb *circuitBreaker) getState() breakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

func (cb *circuitBreaker) setState(state breakerState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = state
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailureTime = time.Now()
	if cb.failureCount >= cb.config.FailureThreshold {
		cb.state = stateOpen
		if cb.logger != nil {
			cb.logger.WithFields(logging.Fields{
				"circuit_breaker": cb.name,
				"failure_count":   cb.failureCount,
			}).Warn("circuit breaker opened due to failure threshold")
		}
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.state = stateClosed
}
