package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/internship-recommender/internal/adapter/observability"
	"github.com/fairyhunter13/internship-recommender/internal/adapter/ratelimiter"
	"github.com/fairyhunter13/internship-recommender/internal/config"
	"github.com/fairyhunter13/internship-recommender/internal/domain"
	"github.com/fairyhunter13/internship-recommender/internal/intake"
	"github.com/fairyhunter13/internship-recommender/internal/usecase"
)

// Server aggregates handlers dependencies.
type Server struct {
	Cfg              config.Config
	Sessions         *intake.Store
	Submitter        *usecase.Submitter
	Limiter          ratelimiter.Limiter
	Extractor        domain.TextExtractor
	RedisCheck       func(ctx context.Context) error
	TikaCheck        func(ctx context.Context) error
	RecommenderCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
// limiter and extractor may be nil.
func NewServer(cfg config.Config, sessions *intake.Store, submitter *usecase.Submitter, limiter ratelimiter.Limiter, extractor domain.TextExtractor, redisCheck, tikaCheck, recommenderCheck func(context.Context) error) *Server {
	return &Server{
		Cfg:              cfg,
		Sessions:         sessions,
		Submitter:        submitter,
		Limiter:          limiter,
		Extractor:        extractor,
		RedisCheck:       redisCheck,
		TikaCheck:        tikaCheck,
		RecommenderCheck: recommenderCheck,
	}
}

// sessionView is the JSON shape of a session.
type sessionView struct {
	ID             string               `json:"id"`
	CurrentStep    intake.Step          `json:"current_step"`
	Form           *intake.FormState    `json:"form"`
	Validity       map[intake.Step]bool `json:"validity"`
	NextIncomplete intake.Step          `json:"next_incomplete,omitempty"`
	Submitting     bool                 `json:"submitting"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func (s *Server) view(sess *intake.Session) sessionView {
	form := sess.Snapshot()
	v := sessionView{
		ID:          sess.ID,
		CurrentStep: sess.Current(),
		Form:        form,
		Validity:    form.Validity(),
		CreatedAt:   sess.CreatedAt,
		UpdatedAt:   sess.UpdatedAt(),
	}
	if st, ok := form.FirstInvalidStep(); ok {
		v.NextIncomplete = st
	}
	if s.Submitter != nil {
		v.Submitting = s.Submitter.InFlight(sess.ID)
	}
	return v
}

// acceptsJSON writes 406 and returns false unless the client accepts JSON.
func acceptsJSON(w http.ResponseWriter, r *http.Request) bool {
	a := r.Header.Get("Accept")
	if a == "" || strings.Contains(a, "application/json") || strings.Contains(a, "*/*") {
		return true
	}
	writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]any{"accept": a}}})
	return false
}

// lookupSession resolves the {id} URL parameter, writing the error response
// and returning nil when it fails.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) *intake.Session {
	id := chi.URLParam(r, "id")
	if res := ValidateSessionID(id); !res.Valid {
		writeError(w, r, fmt.Errorf("%w: invalid session id", domain.ErrInvalidArgument), res.Errors)
		return nil
	}
	sess, err := s.Sessions.Get(id)
	if err != nil {
		writeError(w, r, err, nil)
		return nil
	}
	return sess
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	// Cap body size to prevent abuse
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument)
	}
	return nil
}

func (s *Server) publishSessionCount() {
	observability.IntakeSessionsActive.Set(float64(s.Sessions.Len()))
}

// ReadyzHandler returns a readiness handler that probes Redis, Tika and the
// recommender. Unset checks are skipped.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"redis", s.RedisCheck},
			{"tika", s.TikaCheck},
			{"recommender", s.RecommenderCheck},
		}
		checks := make([]check, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				checks = append(checks, check{Name: p.name, OK: false, Details: err.Error()})
				ok = false
				continue
			}
			checks = append(checks, check{Name: p.name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
