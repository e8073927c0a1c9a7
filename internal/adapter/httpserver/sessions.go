package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/internship-recommender/internal/intake"
)

// CreateSessionHandler starts a new intake session.
func (s *Server) CreateSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		sess := s.Sessions.Create()
		s.publishSessionCount()
		LoggerFrom(r).Info("intake session created", "session_id", sess.ID)
		w.Header().Set("Location", "/v1/sessions/"+sess.ID)
		writeJSON(w, http.StatusCreated, s.view(sess))
	}
}

// GetSessionHandler returns the form and the validity of every step.
func (s *Server) GetSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		sess := s.lookupSession(w, r)
		if sess == nil {
			return
		}
		writeJSON(w, http.StatusOK, s.view(sess))
	}
}

// UpdateStepHandler replaces the answers of one step. Setting answers never
// fails on incomplete data; validity is reported in the response.
func (s *Server) UpdateStepHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		sess := s.lookupSession(w, r)
		if sess == nil {
			return
		}
		step, err := intake.ParseStep(chi.URLParam(r, "step"))
		if err != nil {
			writeError(w, r, err, map[string]any{"steps": intake.Steps})
			return
		}

		var (
			target any
			apply  func(f *intake.FormState)
		)
		switch step {
		case intake.StepBasicInfo:
			v := &intake.BasicInfo{}
			target, apply = v, func(f *intake.FormState) { f.SetBasicInfo(*v) }
		case intake.StepAcademic:
			v := &intake.Academic{}
			target, apply = v, func(f *intake.FormState) { f.SetAcademic(*v) }
		case intake.StepResume:
			v := &intake.ResumeDerived{}
			target, apply = v, func(f *intake.FormState) { f.SetResume(*v) }
		case intake.StepSkills:
			v := &intake.SkillSet{}
			target, apply = v, func(f *intake.FormState) { f.SetSkills(*v) }
		case intake.StepPreferences:
			v := &intake.Preferences{}
			target, apply = v, func(f *intake.FormState) { f.SetPreferences(*v) }
		case intake.StepFairness:
			v := &intake.Fairness{}
			target, apply = v, func(f *intake.FormState) { f.SetFairness(*v) }
		case intake.StepConsent:
			v := &intake.Consent{}
			target, apply = v, func(f *intake.FormState) { f.SetConsent(*v) }
		}
		if err := decodeJSON(w, r, target); err != nil {
			writeError(w, r, err, nil)
			return
		}
		if err := sanitizeFields(target, fieldLimit(step)); err != nil {
			writeError(w, r, err, nil)
			return
		}
		sess.Update(apply)
		writeJSON(w, http.StatusOK, s.view(sess))
	}
}

// NextStepHandler moves forward when the current step is complete.
func (s *Server) NextStepHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.lookupSession(w, r)
		if sess == nil {
			return
		}
		if _, err := sess.Advance(); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, s.view(sess))
	}
}

// PrevStepHandler moves back one step.
func (s *Server) PrevStepHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.lookupSession(w, r)
		if sess == nil {
			return
		}
		sess.Back()
		writeJSON(w, http.StatusOK, s.view(sess))
	}
}

// ResetSessionHandler clears every answer and cancels a running submission.
func (s *Server) ResetSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.lookupSession(w, r)
		if sess == nil {
			return
		}
		if s.Submitter != nil {
			s.Submitter.Cancel(sess.ID)
		}
		sess.Reset()
		writeJSON(w, http.StatusOK, s.view(sess))
	}
}

// DeleteSessionHandler discards a session.
func (s *Server) DeleteSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.lookupSession(w, r)
		if sess == nil {
			return
		}
		if s.Submitter != nil {
			s.Submitter.Cancel(sess.ID)
		}
		s.Sessions.Delete(sess.ID)
		s.publishSessionCount()
		w.WriteHeader(http.StatusNoContent)
	}
}
