// Package circuitbreaker wraps sony/gobreaker with project defaults so all
// RPC call paths share the same trip/recovery behavior.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/crosschain-arb/internal/apperror"
)

// Config holds circuit breaker settings.
type Config struct {
	Name          string
	MaxRequests   uint32        // requests allowed through while half-open
	Interval      time.Duration // counter reset interval while closed
	Timeout       time.Duration // open -> half-open transition delay
	FailureRatio  float64       // trip when failure ratio exceeds this
	MinRequests   uint32        // minimum requests before ratio applies
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultConfig returns the settings used by all venue RPC breakers.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
	}
}

// CircuitBreaker is a typed wrapper around gobreaker.CircuitBreaker.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New creates a circuit breaker from the given config.
func New[T any](cfg Config) *CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: cfg.OnStateChange,
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn through the breaker. When the breaker is open the call is
// short-circuited into a CIRCUIT_OPEN error so callers can back off.
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	result, err := c.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return result, apperror.New(apperror.CodeCircuitOpen,
				apperror.WithCause(err),
				apperror.WithContext(c.cb.Name()))
		}
		return result, err
	}
	return result, nil
}

// State returns the current breaker state.
func (c *CircuitBreaker[T]) State() gobreaker.State {
	return c.cb.State()
}
