package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/internship-recommender/internal/config"
)

func TestSetupLogger_DevAndProd(t *testing.T) {
	var buf bytes.Buffer
	lg := newLogger(&buf, config.Config{AppEnv: "dev", OTELServiceName: "svc"})
	lg.Debug("hello")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "svc", line["service"])
	assert.Equal(t, "dev", line["env"])

	buf.Reset()
	newLogger(&buf, config.Config{AppEnv: "prod"}).Debug("hidden")
	assert.Empty(t, buf.String())
	if SetupLogger(config.Config{AppEnv: "prod"}) == nil {
		t.Fatalf("nil logger")
	}
}

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(config.Config{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if shutdown != nil {
		t.Fatalf("expected nil shutdown when disabled")
	}
	assert.NotNil(t, Tracer())
}

func TestHTTPMetricsMiddleware_Basic(t *testing.T) {
	InitMetrics()
	InitMetrics()
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	mw := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(204) }))
	mw.ServeHTTP(rec, r)
	if rec.Result().StatusCode != 204 {
		t.Fatalf("want 204")
	}
	assert.GreaterOrEqual(t, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/x", "GET", "No Content")), 1.0)
}

func TestMetricHelpers(t *testing.T) {
	before := testutil.ToFloat64(RecommendationsServedTotal.WithLabelValues("cache"))
	ObserveServed("cache")
	assert.Equal(t, before+1, testutil.ToFloat64(RecommendationsServedTotal.WithLabelValues("cache")))

	ObserveRecommenderCall("health", "ok", 10*time.Millisecond)
	ObserveSuccessProb(0.4)
	ObserveSuccessProb(7) // ignored
	ObserveCacheLookup("miss")
	ObserveResumeExtraction("tika", "ok")
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, time.Minute)
	now := time.Now()
	cb.now = func() time.Time { return now }
	boom := errors.New("boom")

	assert.ErrorIs(t, cb.Call(func() error { return boom }, nil), boom)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.ErrorIs(t, cb.Call(func() error { return boom }, nil), boom)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Call(func() error { called = true; return nil }, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Call(func() error { return nil }, nil))
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, 0, cb.GetFailures())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, time.Second)
	now := time.Now()
	cb.now = func() time.Time { return now }
	_ = cb.Call(func() error { return errors.New("x") }, nil)
	require.Equal(t, StateOpen, cb.GetState())

	now = now.Add(2 * time.Second)
	_ = cb.Call(func() error { return errors.New("y") }, nil)
	assert.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_CountableFilter(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, time.Minute)
	ignored := errors.New("client error")
	err := cb.Call(func() error { return ignored }, func(err error) bool { return !errors.Is(err, ignored) })
	assert.ErrorIs(t, err, ignored)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}
