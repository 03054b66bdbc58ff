package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

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

// ErrOpen is returned when the breaker rejects a call without
// attempting it.
var ErrOpen = errors.New("circuit breaker is open")

type Config struct {
	Name         string
	MaxFailures  int
	ResetTimeout time.Duration
	// HalfOpenMax caps probe calls while half-open.
	HalfOpenMax int
}

// CircuitBreaker guards calls to the payment provider. After
// MaxFailures consecutive failures it opens and rejects calls until
// ResetTimeout elapses, then allows HalfOpenMax probes; one success
// closes it again.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mutex        sync.Mutex
	state        State
	failures     int
	probes       int
	lastFailTime time.Time

	totalRequests int64
	totalFailures int64

	logger *logrus.Logger
}

func New(config Config, logger *logrus.Logger) *CircuitBreaker {
	if config.Name == "" {
		config.Name = "unnamed"
	}
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMax <= 0 {
		config.HalfOpenMax = 1
	}

	return &CircuitBreaker{
		name:         config.Name,
		maxFailures:  config.MaxFailures,
		resetTimeout: config.ResetTimeout,
		halfOpenMax:  config.HalfOpenMax,
		state:        StateClosed,
		logger:       logger,
	}
}

func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mutex.Lock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailTime) > cb.resetTimeout {
			cb.setState(StateHalfOpen)
			cb.probes = 0
		} else {
			cb.mutex.Unlock()
			return ErrOpen
		}
	}

	if cb.state == StateHalfOpen && cb.probes >= cb.halfOpenMax {
		cb.mutex.Unlock()
		return ErrOpen
	}

	cb.totalRequests++
	if cb.state == StateHalfOpen {
		cb.probes++
	}
	cb.mutex.Unlock()

	err := fn()

	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if err != nil {
		cb.totalFailures++
		cb.failures++
		cb.lastFailTime = time.Now()
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.setState(StateOpen)
		}
		return err
	}

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
	}
	return nil
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Metrics() map[string]interface{} {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return map[string]interface{}{
		"name":           cb.name,
		"state":          cb.state.String(),
		"failures":       cb.failures,
		"total_requests": cb.totalRequests,
		"total_failures": cb.totalFailures,
	}
}

// setState must be called with the mutex held.
func (cb *CircuitBreaker) setState(state State) {
	if cb.state == state {
		return
	}
	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"from":            cb.state.String(),
		"to":              state.String(),
	}).Info("Circuit breaker state change")
	cb.state = state
	if state == StateClosed {
		cb.failures = 0
	}
}
