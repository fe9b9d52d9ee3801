package httpclient

import (
	"errors"
	"fmt"
	"time"
)

type ErrorKind int

const (
	KindUnauthorized ErrorKind = iota + 1
	KindNotFound
	KindRateLimited
	KindTransient
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrTransient    = errors.New("transient failure")
	ErrMalformed    = errors.New("malformed request or response")
)

// APIError is the only error type Execute returns for request failures.
// errors.Is matches it against the sentinel of its Kind.
type APIError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Attempts   int
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api: %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s api: %s: %s", e.Provider, e.Kind, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrTransient:
		return e.Kind == KindTransient
	case ErrMalformed:
		return e.Kind == KindMalformed
	}
	return false
}

// KindOf reports the ErrorKind carried by err, or 0 when err is not an APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}
