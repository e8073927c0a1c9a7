package domain

import (
	"errors"
	"fmt"
	"strings"
)

// StatusError is returned when the recommender answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("recommender status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match ErrUpstream.
func (e *StatusError) Unwrap() error { return ErrUpstream }

// TransportError wraps network and timeout failures.
type TransportError struct {
	Op      string
	Err     error
	Timeout bool
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *TransportError) Unwrap() []error {
	if e.Timeout {
		return []error{ErrUpstreamTimeout, e.Err}
	}
	return []error{ErrUpstream, e.Err}
}

// InsufficientDataError lists the upstream field groups that are blank.
type InsufficientDataError struct {
	Missing []string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%v: missing %s", ErrInsufficientData, strings.Join(e.Missing, ", "))
}

// Unwrap lets errors.Is match ErrInsufficientData.
func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// StepValidationError reports the incomplete fields of an intake step.
type StepValidationError struct {
	Step   string
	Fields []string
}

func (e *StepValidationError) Error() string {
	return fmt.Sprintf("%v: step %s incomplete (%s)", ErrValidation, e.Step, strings.Join(e.Fields, ", "))
}

// Unwrap lets errors.Is match ErrValidation.
func (e *StepValidationError) Unwrap() error { return ErrValidation }

// Retryable reports whether a failed recommendation call is worth a user retry.
// Local validation failures are not; upstream and parse failures are.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == 429
	}
	if errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrValidation) || errors.Is(err, ErrInsufficientData) {
		return false
	}
	return true
}
