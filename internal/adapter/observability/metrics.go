package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	RecommenderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_requests_total",
			Help: "Total number of recommender calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	RecommenderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_request_duration_seconds",
			Help:    "Recommender call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)
	CircuitBreakerStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)

	RecommendationsServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_served_total",
			Help: "Submissions answered, by source (live, cache, sample, error)",
		},
		[]string{"source"},
	)
	SuccessProbHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_success_prob",
			Help:    "Distribution of success_prob in live responses",
			Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_cache_lookups_total",
			Help: "Recommendation cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	ResumeExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_extractions_total",
			Help: "Resume text extractions by extractor and outcome",
		},
		[]string{"extractor", "outcome"},
	)
	IntakeSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "intake_sessions_active",
			Help: "Number of live intake sessions",
		},
	)
)

var registerOnce sync.Once

// InitMetrics registers every collector with the default registry. Safe to
// call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(RecommenderRequestsTotal)
		prometheus.MustRegister(RecommenderRequestDuration)
		prometheus.MustRegister(CircuitBreakerStatus)
		prometheus.MustRegister(RecommendationsServedTotal)
		prometheus.MustRegister(SuccessProbHistogram)
		prometheus.MustRegister(CacheLookupsTotal)
		prometheus.MustRegister(ResumeExtractionsTotal)
		prometheus.MustRegister(IntakeSessionsActive)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveRecommenderCall records one health or recommendation call.
func ObserveRecommenderCall(operation, outcome string, d time.Duration) {
	RecommenderRequestsTotal.WithLabelValues(operation, outcome).Inc()
	RecommenderRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordCircuitBreakerStatus publishes the state of a named breaker.
func RecordCircuitBreakerStatus(name string, state int) {
	CircuitBreakerStatus.WithLabelValues(name).Set(float64(state))
}

// ObserveServed counts a submission by where its answer came from.
func ObserveServed(source string) {
	RecommendationsServedTotal.WithLabelValues(source).Inc()
}

// ObserveSuccessProb records a model probability, ignoring values outside [0,1].
func ObserveSuccessProb(p float64) {
	if p >= 0 && p <= 1 {
		SuccessProbHistogram.Observe(p)
	}
}

// ObserveCacheLookup counts a cache lookup result.
func ObserveCacheLookup(result string) {
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveResumeExtraction counts a resume extraction.
func ObserveResumeExtraction(extractor, outcome string) {
	ResumeExtractionsTotal.WithLabelValues(extractor, outcome).Inc()
}
