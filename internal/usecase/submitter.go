package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
	"github.com/fairyhunter13/internship-recommender/internal/intake"
)

// ErrSuperseded is returned to a submission cancelled by a newer one for the
// same session.
var ErrSuperseded = fmt.Errorf("%w: superseded by a newer submission", domain.ErrConflict)

// ErrCancelled is returned to a submission stopped by Cancel, for example when
// its session is reset or discarded.
var ErrCancelled = fmt.Errorf("%w: submission cancelled", domain.ErrConflict)

// Recommender produces an Outcome for a form.
type Recommender interface {
	Recommend(ctx context.Context, form *intake.FormState) (Outcome, error)
}

type flight struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// Submitter keeps at most one submission in flight per session. A new
// submission cancels the running one and waits for it to exit before it
// starts.
type Submitter struct {
	rec Recommender

	mu       sync.Mutex
	inflight map[string]*flight
}

// NewSubmitter wraps rec.
func NewSubmitter(rec Recommender) *Submitter {
	return &Submitter{rec: rec, inflight: make(map[string]*flight)}
}

// Submit runs rec for sessionID. The form is snapshotted before anything
// else so later edits do not leak into the request.
func (s *Submitter) Submit(ctx context.Context, sessionID string, form *intake.FormState) (Outcome, error) {
	snapshot := form.Clone()
	runCtx, cancel := context.WithCancelCause(ctx)
	f := &flight{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.inflight[sessionID]
	s.inflight[sessionID] = f
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.inflight[sessionID] == f {
			delete(s.inflight, sessionID)
		}
		s.mu.Unlock()
		cancel(nil)
		close(f.done)
	}()

	if prev != nil {
		prev.cancel(ErrSuperseded)
		<-prev.done
		if runCtx.Err() != nil {
			return Outcome{}, s.cause(runCtx)
		}
	}

	out, err := s.rec.Recommend(runCtx, snapshot)
	if err != nil && runCtx.Err() != nil {
		return Outcome{}, s.cause(runCtx)
	}
	return out, err
}

func (s *Submitter) cause(ctx context.Context) error {
	switch c := context.Cause(ctx); {
	case errors.Is(c, ErrSuperseded):
		return ErrSuperseded
	case errors.Is(c, ErrCancelled):
		return ErrCancelled
	}
	return ctx.Err()
}

// InFlight reports whether sessionID has a running submission.
func (s *Submitter) InFlight(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[sessionID]
	return ok
}

// Cancel stops the running submission of sessionID, if any.
func (s *Submitter) Cancel(sessionID string) {
	s.mu.Lock()
	f := s.inflight[sessionID]
	s.mu.Unlock()
	if f != nil {
		f.cancel(ErrCancelled)
	}
}
