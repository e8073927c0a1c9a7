package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/internship-recommender/internal/adapter/observability"
	"github.com/fairyhunter13/internship-recommender/internal/domain"
	"github.com/fairyhunter13/internship-recommender/internal/intake"
	"github.com/fairyhunter13/internship-recommender/internal/resume"
	"github.com/fairyhunter13/internship-recommender/pkg/textx"
)

// allowedExt enforces an allowlist for uploads: .txt, .pdf, .docx
func allowedExt(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".txt") || strings.HasSuffix(n, ".pdf") || strings.HasSuffix(n, ".docx")
}

func allowedMIMEFor(m string, filename string) bool {
	m = strings.ToLower(m)
	// For .txt files, accept any text/* including text/html as some detectors misclassify rich text
	if strings.HasSuffix(strings.ToLower(filename), ".txt") {
		if strings.HasPrefix(m, "text/") {
			return true
		}
	}
	if strings.HasPrefix(m, "text/plain") { // allow parameters such as charset
		return true
	}
	return m == "application/pdf" || m == "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

// extractResumeText returns the plain text of an upload. Plain text is used
// as is; pdf and docx go through the extractor.
func extractResumeText(ctx context.Context, extractor domain.TextExtractor, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".pdf" || ext == ".docx" {
		if extractor == nil {
			return "", fmt.Errorf("%w: %s requires extractor", domain.ErrInvalidArgument, strings.TrimPrefix(ext, "."))
		}
		return extractor.ExtractBytes(ctx, filename, data)
	}
	observability.ObserveResumeExtraction("plain", "ok")
	return textx.NormalizeLines(string(data)), nil
}

type resumeResponse struct {
	Extracted bool                `json:"extracted"`
	Warning   string              `json:"warning,omitempty"`
	Resume    domain.ResumeFields `json:"resume"`
	Session   sessionView         `json:"session"`
}

// ResumeUploadHandler accepts a multipart "resume" file and fills the
// resume-derived fields of the session. Extraction is best effort: when it
// fails the session is left unchanged and the student fills the fields in.
func (s *Server) ResumeUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		sess := s.lookupSession(w, r)
		if sess == nil {
			return
		}
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) || strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "payload too large", Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB}}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		file, header, err := r.FormFile("resume")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: resume file required", domain.ErrInvalidArgument), map[string]string{"field": "resume"})
			return
		}
		defer func() { _ = file.Close() }()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: resume read: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		if !allowedExt(header.Filename) {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "unsupported media type for resume (extension)", Details: map[string]any{"filename": header.Filename}}})
			return
		}
		mt := mimetype.Detect(data)
		if !allowedMIMEFor(mt.String(), header.Filename) {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "unsupported media type for resume (content)", Details: map[string]any{"mime": mt.String(), "filename": header.Filename}}})
			return
		}

		text, err := extractResumeText(r.Context(), s.Extractor, header.Filename, data)
		if err != nil {
			LoggerFrom(r).Warn("resume extraction failed", "session_id", sess.ID, "filename", header.Filename, "error", err)
			writeJSON(w, http.StatusOK, resumeResponse{Warning: "Could not read the resume. Please fill in the fields manually.", Session: s.view(sess)})
			return
		}

		fields := resume.Parse(text)
		extracted := fields.Education != "" || fields.Skills != "" || fields.Experience != ""
		if extracted {
			sess.Update(func(f *intake.FormState) { f.SetResume(mergeResume(f.Resume(), fields)) })
		}
		out := resumeResponse{Extracted: extracted, Resume: fields, Session: s.view(sess)}
		if !extracted {
			out.Warning = "No education, skills or experience sections were found."
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// mergeResume overwrites only the sections the parser found.
func mergeResume(cur intake.ResumeDerived, f domain.ResumeFields) intake.ResumeDerived {
	if f.Education != "" {
		cur.EducationText = f.Education
	}
	if f.Skills != "" {
		cur.SkillsText = f.Skills
	}
	if f.Experience != "" {
		cur.ExperienceText = f.Experience
	}
	return cur
}
