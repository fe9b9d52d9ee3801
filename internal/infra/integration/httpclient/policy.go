package httpclient

import (
	"net/http"
	"time"
)

// State is a step of the per-request retry state machine:
//
//	Attempting -> Succeeded
//	Attempting -> Backoff -> Attempting
//	Attempting -> Failed(kind)
type State int

const (
	StateAttempting State = iota
	StateBackoff
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateBackoff:
		return "backoff"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is what a single attempt observed. NetErr is set when no HTTP
// response arrived (dial error, timeout, reset).
type Outcome struct {
	StatusCode    int
	NetErr        error
	RetryAfter    time.Duration
	HasRetryAfter bool
}

type Transition struct {
	State State
	Delay time.Duration
	Kind  ErrorKind
}

type RetryPolicy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	DefaultRetryAfter time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		DefaultRetryAfter: 10 * time.Second,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.DefaultRetryAfter <= 0 {
		p.DefaultRetryAfter = d.DefaultRetryAfter
	}
	return p
}

// Next decides the transition after the attempt-th attempt (1-based) ended
// with outcome o.
func (p RetryPolicy) Next(attempt int, o Outcome) Transition {
	p = p.withDefaults()
	canRetry := attempt < p.MaxAttempts

	if o.NetErr != nil {
		if canRetry {
			return Transition{State: StateBackoff, Delay: p.Backoff(attempt)}
		}
		return Transition{State: StateFailed, Kind: KindTransient}
	}

	switch code := o.StatusCode; {
	case code >= 200 && code <= 299:
		return Transition{State: StateSucceeded}
	case code == http.StatusUnauthorized:
		return Transition{State: StateFailed, Kind: KindUnauthorized}
	case code == http.StatusNotFound:
		return Transition{State: StateFailed, Kind: KindNotFound}
	case code == http.StatusTooManyRequests:
		if !canRetry {
			return Transition{State: StateFailed, Kind: KindRateLimited}
		}
		delay := p.DefaultRetryAfter
		if o.HasRetryAfter {
			delay = o.RetryAfter
		}
		return Transition{State: StateBackoff, Delay: delay}
	case code >= 500:
		if canRetry {
			return Transition{State: StateBackoff, Delay: p.Backoff(attempt)}
		}
		return Transition{State: StateFailed, Kind: KindTransient}
	default:
		return Transition{State: StateFailed, Kind: KindMalformed}
	}
}

// Backoff is BaseDelay doubled per prior attempt, capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
