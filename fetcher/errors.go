package fetcher

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failed users load
type Kind string

const (
	KindWrongStatus Kind = "wrong_status"
	KindNotArray    Kind = "not_array"
	KindUnknown     Kind = "unknown_error"
)

// LoadError is returned when the endpoint answered but the answer is unusable
type LoadError struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *LoadError) Error() string {
	switch {
	case e.Kind == KindWrongStatus:
		return fmt.Sprintf("%s: status %d", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err. Transport failures, timeouts
// included, are KindUnknown; use IsTimeout to single those out.
func KindOf(err error) Kind {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnknown
}

// IsTimeout reports whether err is the watchdog cancelling the request
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
