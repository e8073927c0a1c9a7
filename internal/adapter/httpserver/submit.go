package httpserver

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
	obsctx "github.com/fairyhunter13/internship-recommender/internal/observability"
)

// SubmitHandler runs the recommendation flow for the session. A submit for a
// session that already has one running cancels the older one, which then
// answers 409.
func (s *Server) SubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		sess := s.lookupSession(w, r)
		if sess == nil {
			return
		}
		ctx := obsctx.WithSession(r.Context(), sess.ID)

		if s.Limiter != nil {
			allowed, retryAfter, err := s.Limiter.Allow(ctx, sess.ID)
			if err != nil {
				LoggerFrom(r).Warn("submit limiter unavailable", "error", err)
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				writeError(w, r, fmt.Errorf("%w: too many submissions", domain.ErrRateLimited), map[string]any{"retry_after_seconds": int(math.Ceil(retryAfter.Seconds()))})
				return
			}
		}

		out, err := s.Submitter.Submit(ctx, sess.ID, sess.Snapshot())
		if err != nil {
			var details any
			var ide *domain.InsufficientDataError
			if !errors.As(err, &ide) && out.Error != "" {
				details = map[string]any{"message": out.Error, "retryable": out.Retryable}
			}
			if r.Context().Err() != nil {
				obsctx.LoggerFromContext(ctx).Info("submit abandoned by client")
				return
			}
			writeError(w, r, err, details)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
