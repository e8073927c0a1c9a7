package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "github.com/fairyhunter13/internship-recommender/internal/adapter/httpserver"
	"github.com/fairyhunter13/internship-recommender/internal/config"
	"github.com/fairyhunter13/internship-recommender/internal/domain"
	"github.com/fairyhunter13/internship-recommender/internal/intake"
	"github.com/fairyhunter13/internship-recommender/internal/usecase"
)

type stubRecommender struct {
	healthy bool
	resp    *domain.RecommendationResponse
	err     error
}

func (s *stubRecommender) CheckHealth(context.Context) bool { return s.healthy }

func (s *stubRecommender) GetRecommendations(_ context.Context, req domain.RecommendationRequest) (*domain.RecommendationResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	r := *s.resp
	r.StudentID = req.StudentID
	return &r, nil
}

// hangingRecommender blocks the health check until the caller gives up.
type hangingRecommender struct {
	started chan struct{}
}

func (h *hangingRecommender) CheckHealth(ctx context.Context) bool {
	close(h.started)
	<-ctx.Done()
	return false
}

func (h *hangingRecommender) GetRecommendations(context.Context, domain.RecommendationRequest) (*domain.RecommendationResponse, error) {
	return nil, errors.New("not reached")
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 12 * time.Second, nil
}

func liveResp() *domain.RecommendationResponse {
	return &domain.RecommendationResponse{
		TotalRecommendations: 1,
		GeneratedAt:          "2024-07-03T09:04:06Z",
		Recommendations: []domain.Recommendation{{
			InternshipID: "INT_1", Title: "Backend Intern", Location: "Bengaluru",
			Stipend: 12000, SuccessProb: 0.65,
			MissingSkills: []string{}, Courses: []domain.Course{}, Reasons: []string{"python match"},
		}},
	}
}

func newTestServer(t *testing.T, svc domain.RecommendationService, sample bool) *httpserver.Server {
	t.Helper()
	cfg := config.Config{MaxUploadMB: 1, AppEnv: "test"}
	rec := usecase.NewRecommendService(usecase.NewBuilder(nil, nil, nil), svc, nil, sample)
	return httpserver.NewServer(cfg, intake.NewStore(), usecase.NewSubmitter(rec), nil, nil, nil, nil, nil)
}

func routes(srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.RequestID())
	r.Post("/v1/sessions", srv.CreateSessionHandler())
	r.Get("/v1/sessions/{id}", srv.GetSessionHandler())
	r.Put("/v1/sessions/{id}/steps/{step}", srv.UpdateStepHandler())
	r.Post("/v1/sessions/{id}/next", srv.NextStepHandler())
	r.Post("/v1/sessions/{id}/back", srv.PrevStepHandler())
	r.Post("/v1/sessions/{id}/reset", srv.ResetSessionHandler())
	r.Post("/v1/sessions/{id}/resume", srv.ResumeUploadHandler())
	r.Post("/v1/sessions/{id}/submit", srv.SubmitHandler())
	r.Delete("/v1/sessions/{id}", srv.DeleteSessionHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec, out := do(t, h, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := out["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "/v1/sessions/"+id, rec.Header().Get("Location"))
	return id
}

func errCode(out map[string]any) string {
	e, _ := out["error"].(map[string]any)
	c, _ := e["code"].(string)
	return c
}

func errDetails(out map[string]any) map[string]any {
	e, _ := out["error"].(map[string]any)
	d, _ := e["details"].(map[string]any)
	return d
}

func TestSessionLifecycle(t *testing.T) {
	h := routes(newTestServer(t, &stubRecommender{healthy: true, resp: liveResp()}, false))
	id := createSession(t, h)

	rec, out := do(t, h, http.MethodGet, "/v1/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "basic", out["current_step"])
	assert.Equal(t, "basic", out["next_incomplete"])
	validity := out["validity"].(map[string]any)
	assert.Equal(t, false, validity["basic"])
	assert.Equal(t, true, validity["academic"])

	rec, out = do(t, h, http.MethodPost, "/v1/sessions/"+id+"/next", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errCode(out))
	assert.Equal(t, "basic", errDetails(out)["step"])
	assert.ElementsMatch(t, []any{"name", "college_name", "year"}, errDetails(out)["fields"])

	rec, out = do(t, h, http.MethodPut, "/v1/sessions/"+id+"/steps/basic", `{"name":"  Asha\u0000 ","college_name":"IIT Bombay","year":"3"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	form := out["form"].(map[string]any)
	assert.Equal(t, "Asha", form["basic_info"].(map[string]any)["name"])
	assert.Equal(t, true, out["validity"].(map[string]any)["basic"])

	rec, out = do(t, h, http.MethodPost, "/v1/sessions/"+id+"/next", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "academic", out["current_step"])

	rec, out = do(t, h, http.MethodPost, "/v1/sessions/"+id+"/back", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "basic", out["current_step"])

	rec, out = do(t, h, http.MethodPost, "/v1/sessions/"+id+"/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", out["form"].(map[string]any)["basic_info"].(map[string]any)["name"])

	rec, _ = do(t, h, http.MethodDelete, "/v1/sessions/"+id, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec, out = do(t, h, http.MethodGet, "/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errCode(out))
}

func TestUpdateStep_Errors(t *testing.T) {
	h := routes(newTestServer(t, &stubRecommender{}, false))
	id := createSession(t, h)

	rec, out := do(t, h, http.MethodPut, "/v1/sessions/"+id+"/steps/hobbies", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", errCode(out))

	rec, _ = do(t, h, http.MethodPut, "/v1/sessions/"+id+"/steps/skills", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = do(t, h, http.MethodGet, "/v1/sessions/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", errCode(out))

	rec, _ = do(t, h, http.MethodGet, "/v1/sessions/6f1f8a1e-8d1c-4a43-9d3e-6f4d1d2b9c10", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStep_LongResumeTextKept(t *testing.T) {
	h := routes(newTestServer(t, &stubRecommender{}, false))
	id := createSession(t, h)

	exp := strings.Repeat("Built REST services and data pipelines. ", 40) + "kubernetes docker"
	body, err := json.Marshal(map[string]string{"experience_text": exp})
	require.NoError(t, err)
	rec, out := do(t, h, http.MethodPut, "/v1/sessions/"+id+"/steps/resume", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored := out["form"].(map[string]any)["resume"].(map[string]any)["experience_text"].(string)
	assert.Equal(t, exp, stored)
	assert.True(t, strings.HasSuffix(stored, "kubernetes docker"))
}

func TestUpdateStep_OverlongFieldRejected(t *testing.T) {
	h := routes(newTestServer(t, &stubRecommender{}, false))
	id := createSession(t, h)

	body, err := json.Marshal(map[string]string{"name": strings.Repeat("a", 1001)})
	require.NoError(t, err)
	rec, out := do(t, h, http.MethodPut, "/v1/sessions/"+id+"/steps/basic", string(body))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", errCode(out))
	assert.Equal(t, "name", errDetails(out)["field"])
	assert.Equal(t, float64(1000), errDetails(out)["max_bytes"])

	body, err = json.Marshal(map[string]string{"skills_text": strings.Repeat("go, ", 20<<10)})
	require.NoError(t, err)
	rec, out = do(t, h, http.MethodPut, "/v1/sessions/"+id+"/steps/resume", string(body))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "skills_text", errDetails(out)["field"])

	// rejected updates leave the form untouched
	_, out = do(t, h, http.MethodGet, "/v1/sessions/"+id, "")
	assert.Equal(t, "", out["form"].(map[string]any)["basic_info"].(map[string]any)["name"])
}

func TestNotAcceptable(t *testing.T) {
	h := routes(newTestServer(t, &stubRecommender{}, false))
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
}

func fillForSubmit(t *testing.T, h http.Handler, id string) {
	t.Helper()
	for step, body := range map[string]string{
		"basic":       `{"name":"Asha","college_name":"IIT Bombay","year":"3"}`,
		"skills":      `{"technical_skills":["Python","SQL"]}`,
		"preferences": `{"location":"Hyderabad","duration":"3 months","workload":"full-time"}`,
	} {
		rec, _ := do(t, h, http.MethodPut, "/v1/sessions/"+id+"/steps/"+step, body)
		require.Equal(t, http.StatusOK, rec.Code, step)
	}
}

func TestSubmit_Live(t *testing.T) {
	h := routes(newTestServer(t, &stubRecommender{healthy: true, resp: liveResp()}, false))
	id := createSession(t, h)
	fillForSubmit(t, h, id)

	rec, out := do(t, h, http.MethodPost, "/v1/sessions/"+id+"/submit", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "live", out["source"])
	assert.True(t, strings.HasPrefix(out["student_id"].(string), "STU_"))
	recs := out["recommendations"].([]any)
	require.Len(t, recs, 1)
	first := recs[0].(map[string]any)
	assert.Equal(t, float64(65), first["match_score"])
	assert.Equal(t, "₹12,000", first["formatted_stipend"])
}

func TestSubmit_InsufficientData(t *testing.T) {
	h := routes(newTestServer(t, &stubRecommender{healthy: true, resp: liveResp()}, true))
	id := createSession(t, h)

	rec, out := do(t, h, http.MethodPost, "/v1/sessions/"+id+"/submit", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INSUFFICIENT_DATA", errCode(out))
	assert.Equal(t, []any{"name", "education", "skills_or_experience"}, errDetails(out)["missing"])
}

func TestSubmit_UnavailableWithoutFallback(t *testing.T) {
	h := routes(newTestServer(t, &stubRecommender{healthy: false}, false))
	id := createSession(t, h)
	fillForSubmit(t, h, id)

	rec, out := do(t, h, http.MethodPost, "/v1/sessions/"+id+"/submit", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", errCode(out))
	assert.Equal(t, true, errDetails(out)["retryable"])
}

func TestSubmit_SampleFallback(t *testing.T) {
	svc := &stubRecommender{healthy: true, err: &domain.StatusError{StatusCode: 500, Body: "Internal server error"}}
	h := routes(newTestServer(t, svc, true))
	id := createSession(t, h)
	fillForSubmit(t, h, id)

	rec, out := do(t, h, http.MethodPost, "/v1/sessions/"+id+"/submit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sample", out["source"])
	assert.Equal(t, true, out["retryable"])
	assert.Contains(t, out["error"], "status 500")
}

func TestSubmit_RateLimited(t *testing.T) {
	srv := newTestServer(t, &stubRecommender{healthy: true, resp: liveResp()}, false)
	srv.Limiter = denyLimiter{}
	h := routes(srv)
	id := createSession(t, h)

	rec, out := do(t, h, http.MethodPost, "/v1/sessions/"+id+"/submit", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", errCode(out))
	assert.Equal(t, "12", rec.Header().Get("Retry-After"))
}

func TestSubmit_CancelledByReset(t *testing.T) {
	svc := &hangingRecommender{started: make(chan struct{})}
	h := routes(newTestServer(t, svc, true))
	id := createSession(t, h)
	fillForSubmit(t, h, id)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/submit", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		done <- rec
	}()
	select {
	case <-svc.started:
	case <-time.After(2 * time.Second):
		t.Fatal("submit never reached the recommender")
	}

	rec, _ := do(t, h, http.MethodPost, "/v1/sessions/"+id+"/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case sub := <-done:
		require.Equal(t, http.StatusConflict, sub.Code, sub.Body.String())
		var out map[string]any
		require.NoError(t, json.Unmarshal(sub.Body.Bytes(), &out))
		assert.Equal(t, "CONFLICT", errCode(out))
	case <-time.After(2 * time.Second):
		t.Fatal("reset did not stop the submission")
	}
}

func upload(t *testing.T, h http.Handler, id, filename string, data []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("resume", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/resume", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestResumeUpload_PlainText(t *testing.T) {
	h := routes(newTestServer(t, &stubRecommender{}, false))
	id := createSession(t, h)

	text := "Asha Rao\nEDUCATION\nB.Tech CSE, NIT Trichy\nSkills: Python, SQL\nInternships\nBackend intern at Acme\n"
	rec, out := upload(t, h, id, "cv.txt", []byte(text))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["extracted"])
	res := out["resume"].(map[string]any)
	assert.Equal(t, "B.Tech CSE, NIT Trichy", res["education"])
	assert.Equal(t, "Python, SQL", res["skills"])
	assert.Equal(t, "Backend intern at Acme", res["experience"])

	form := out["session"].(map[string]any)["form"].(map[string]any)["resume"].(map[string]any)
	assert.Equal(t, "Python, SQL", form["skills_text"])
}

func TestResumeUpload_Rejections(t *testing.T) {
	h := routes(newTestServer(t, &stubRecommender{}, false))
	id := createSession(t, h)

	rec, _ := upload(t, h, id, "cv.exe", []byte("MZ\x90\x00"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec, _ = upload(t, h, id, "cv.docx", []byte("\x00\x01\x02\x03binary"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec, out := upload(t, h, id, "cv.pdf", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["extracted"])
	assert.NotEmpty(t, out["warning"])

	big := bytes.Repeat([]byte("a"), 2<<20)
	rec, out = upload(t, h, id, "cv.txt", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", errCode(out))
}

func TestReadyz(t *testing.T) {
	srv := newTestServer(t, &stubRecommender{}, false)
	srv.RedisCheck = func(context.Context) error { return nil }
	srv.RecommenderCheck = func(context.Context) error { return domain.ErrServiceUnavailable }
	h := routes(srv)

	rec, out := do(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	checks := out["checks"].([]any)
	require.Len(t, checks, 2)
	assert.Equal(t, "redis", checks[0].(map[string]any)["name"])
	assert.Equal(t, false, checks[1].(map[string]any)["ok"])

	srv.RecommenderCheck = nil
	rec, _ = do(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
