package recommender

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
)

// State is a step of one recommendation attempt.
type State string

// Attempt states. Success and Failed are terminal.
const (
	StateIdle           State = "idle"
	StateHealthChecking State = "health_checking"
	StateRequesting     State = "requesting"
	StateSuccess        State = "success"
	StateFailed         State = "failed"
)

// Attempt records how one Run went.
type Attempt struct {
	States   []State
	Response *domain.RecommendationResponse
	Err      error
}

// State returns the state the attempt ended in.
func (a Attempt) State() State {
	if len(a.States) == 0 {
		return StateIdle
	}
	return a.States[len(a.States)-1]
}

// Run checks health and, only when healthy, sends req. An unhealthy service
// fails the attempt with ErrServiceUnavailable without sending anything.
func Run(ctx context.Context, svc domain.RecommendationService, req domain.RecommendationRequest) Attempt {
	a := Attempt{States: []State{StateIdle, StateHealthChecking}}
	if !svc.CheckHealth(ctx) {
		a.States = append(a.States, StateFailed)
		err := domain.ErrServiceUnavailable
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, ctx.Err())
		}
		a.Err = err
		return a
	}
	a.States = append(a.States, StateRequesting)
	resp, err := svc.GetRecommendations(ctx, req)
	if err != nil {
		a.States = append(a.States, StateFailed)
		a.Err = err
		return a
	}
	a.States = append(a.States, StateSuccess)
	a.Response = resp
	return a
}
