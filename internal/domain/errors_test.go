package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsUnwrap(t *testing.T) {
	se := &StatusError{StatusCode: 500, Body: "Internal server error"}
	assert.ErrorIs(t, se, ErrUpstream)
	assert.Equal(t, "recommender status 500: Internal server error", se.Error())

	te := &TransportError{Op: "post /recommendations", Err: context.DeadlineExceeded, Timeout: true}
	assert.ErrorIs(t, te, ErrUpstreamTimeout)
	assert.ErrorIs(t, te, context.DeadlineExceeded)
	assert.NotErrorIs(t, te, ErrUpstream)

	refused := errors.New("connection refused")
	te = &TransportError{Op: "get /health", Err: refused}
	assert.ErrorIs(t, te, ErrUpstream)
	assert.ErrorIs(t, te, refused)

	ide := &InsufficientDataError{Missing: []string{"name", "education"}}
	assert.ErrorIs(t, ide, ErrInsufficientData)
	assert.Equal(t, "insufficient data: missing name, education", ide.Error())

	sve := &StepValidationError{Step: "basic", Fields: []string{"name"}}
	assert.ErrorIs(t, fmt.Errorf("op=x: %w", sve), ErrValidation)
	assert.Contains(t, sve.Error(), "step basic incomplete (name)")
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"5xx", &StatusError{StatusCode: 503}, true},
		{"429", &StatusError{StatusCode: 429}, true},
		{"4xx", &StatusError{StatusCode: 422}, false},
		{"unavailable", ErrServiceUnavailable, true},
		{"timeout", &TransportError{Err: errors.New("t"), Timeout: true}, true},
		{"schema", fmt.Errorf("%w: bad", ErrSchemaInvalid), true},
		{"validation", &StepValidationError{Step: "basic"}, false},
		{"insufficient", &InsufficientDataError{}, false},
		{"invalid", ErrInvalidArgument, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}
