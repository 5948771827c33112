// Package backoff computes retry delays for rescheduled jobs. Strategies
// are stateless and safe for concurrent use; the queue manager consults one
// on every failed attempt, and RETRY_STRATEGY selects which at startup.
package backoff

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before retry attempt n (1-indexed; attempt 1
// is the first retry after the initial failure).
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Strategy names accepted by Parse.
const (
	NameConstant          = "constant"
	NameLinear            = "linear"
	NameExponential       = "exponential"
	NameExponentialJitter = "exponential-jitter"
)

// Parse builds the named strategy from a base delay and cap. Unknown names
// are a configuration error, not a fallback.
func Parse(name string, initial, maxDelay time.Duration) (Strategy, error) {
	switch name {
	case NameConstant:
		return NewConstant(initial), nil
	case NameLinear:
		return NewLinear(initial, maxDelay), nil
	case NameExponential, "":
		return NewExponential(initial, maxDelay), nil
	case NameExponentialJitter:
		return NewExponentialWithJitter(initial, maxDelay), nil
	default:
		return nil, fmt.Errorf("backoff: unknown strategy %q", name)
	}
}

// DefaultStrategy is the queue manager's fallback when none is configured:
// pure exponential, 10s base, 1h cap, so the next retry of a failed job is
// always scheduled at exactly base * 2^(attempt-1).
func DefaultStrategy() Strategy {
	return NewExponential(10*time.Second, 1*time.Hour)
}

func capped(d time.Duration, maxDelay time.Duration) time.Duration {
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}

// Constant retries on a fixed interval.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// Linear grows the delay by Initial per attempt, capped at Max.
type Linear struct {
	Initial time.Duration
	Max     time.Duration
}

// NewLinear creates a linear backoff strategy.
func NewLinear(initial, maxDelay time.Duration) *Linear {
	return &Linear{Initial: initial, Max: maxDelay}
}

func (l *Linear) Delay(attempt int) time.Duration {
	return capped(l.Initial*time.Duration(attempt), l.Max)
}

// Exponential doubles the delay each attempt: Initial * 2^(attempt-1),
// capped at Max.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

func (e *Exponential) Delay(attempt int) time.Duration {
	d := time.Duration(float64(e.Initial) * math.Pow(2, float64(attempt-1)))
	return capped(d, e.Max)
}

// ExponentialWithJitter draws a uniform delay in [0, exponential bound],
// spreading simultaneous retries so they do not stampede a recovering
// dependency.
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponentialWithJitter creates an exponential backoff with full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	bound := capped(time.Duration(float64(e.Initial)*math.Pow(2, float64(attempt-1))), e.Max)
	return time.Duration(rand.Float64() * float64(bound)) //nolint:gosec // jitter intentionally uses non-crypto rand
}
