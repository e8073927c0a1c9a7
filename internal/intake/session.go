package intake

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
)

// Session is one student's pass through the intake flow. The form is
// single-writer: every mutation and snapshot goes through the session lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	form      *FormState
	current   Step
	updatedAt time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now, form: NewFormState(), current: StepBasicInfo, updatedAt: now}
}

// Update applies fn to the form. Validity is never cached, so the next
// Validity call reflects the change.
func (s *Session) Update(fn func(f *FormState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.form)
	s.updatedAt = time.Now()
}

// Snapshot returns a deep copy of the form.
func (s *Session) Snapshot() *FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Clone()
}

// Current returns the step the student is on.
func (s *Session) Current() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// UpdatedAt returns the time of the last mutation.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Advance moves to the next step when the current one is valid and returns
// the new step. On the last step it stays put.
func (s *Session) Advance() (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.form.ValidateStep(s.current); err != nil {
		return s.current, err
	}
	for i, st := range Steps {
		if st == s.current && i+1 < len(Steps) {
			s.current = Steps[i+1]
			break
		}
	}
	return s.current, nil
}

// Back moves to the previous step; going back is never gated.
func (s *Session) Back() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, st := range Steps {
		if st == s.current && i > 0 {
			s.current = Steps[i-1]
			break
		}
	}
	return s.current
}

// Reset clears the form and returns to the first step.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Reset()
	s.current = StepBasicInfo
	s.updatedAt = time.Now()
}

// Store keeps live sessions in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session), now: time.Now}
}

// Create starts a new session.
func (st *Store) Create() *Session {
	s := newSession(uuid.NewString(), st.now())
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session with id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	return s, nil
}

// Delete discards a session. Deleting an unknown id is a no-op.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than ttl and returns how many went.
func (st *Store) Sweep(ttl time.Duration) int {
	cutoff := st.now().Add(-ttl)
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, s := range st.sessions {
		if s.UpdatedAt().Before(cutoff) {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// RunPeriodic sweeps idle sessions every interval until ctx is done.
func (st *Store) RunPeriodic(ctx context.Context, ttl, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopping")
			return
		case <-ticker.C:
			if n := st.Sweep(ttl); n > 0 {
				slog.Info("expired intake sessions removed", slog.Int("count", n))
			}
		}
	}
}
