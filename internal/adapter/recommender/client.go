// Package recommender is the HTTP client for the external ML recommendation
// service: GET /health and POST /recommendations.
package recommender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/internship-recommender/internal/adapter/observability"
	"github.com/fairyhunter13/internship-recommender/internal/config"
	"github.com/fairyhunter13/internship-recommender/internal/domain"
	obsctx "github.com/fairyhunter13/internship-recommender/internal/observability"
)

// Timeouts per call. Connect bounds dialing and the TLS handshake; Read bounds
// the wait for response headers and, separately, reading the body.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
}

// Client implements domain.RecommendationService. It never retries; the
// caller decides whether to call again.
type Client struct {
	baseURL     string
	health      *http.Client
	request     *http.Client
	healthRead  time.Duration
	requestRead time.Duration
	breaker     *observability.CircuitBreaker
}

var _ domain.RecommendationService = (*Client)(nil)

// New builds a client with the timeouts from cfg.
func New(cfg config.Config) *Client {
	return NewWithTimeouts(cfg.RecommenderBaseURL,
		Timeouts{Connect: cfg.HealthConnectTimeout, Read: cfg.HealthReadTimeout},
		Timeouts{Connect: cfg.RequestConnectTimeout, Read: cfg.RequestReadTimeout},
		observability.NewCircuitBreaker("recommender", cfg.BreakerFailures, cfg.BreakerCooldown),
	)
}

// NewWithTimeouts builds a client with explicit timeouts. A nil breaker never trips.
func NewWithTimeouts(baseURL string, health, request Timeouts, breaker *observability.CircuitBreaker) *Client {
	if breaker == nil {
		breaker = observability.NewCircuitBreaker("recommender", 1<<30, 0)
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		health:      newHTTPClient(health),
		request:     newHTTPClient(request),
		healthRead:  health.Read,
		requestRead: request.Read,
		breaker:     breaker,
	}
}

func newHTTPClient(t Timeouts) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = (&net.Dialer{Timeout: t.Connect, KeepAlive: 30 * time.Second}).DialContext
	tr.TLSHandshakeTimeout = t.Connect
	tr.ResponseHeaderTimeout = t.Read
	return &http.Client{Transport: otelhttp.NewTransport(tr)}
}

// Breaker exposes the circuit breaker for readiness reporting.
func (c *Client) Breaker() *observability.CircuitBreaker { return c.breaker }

// CheckHealth reports true iff GET /health answers 200. Every failure, an
// open breaker included, reads as unhealthy.
func (c *Client) CheckHealth(ctx context.Context) bool {
	lg := obsctx.LoggerFromContext(ctx)
	start := time.Now()
	var status int
	err := c.breaker.Call(func() error {
		var err error
		status, _, err = c.do(ctx, c.health, c.healthRead, http.MethodGet, "/health", nil)
		if err == nil && status != http.StatusOK {
			err = &domain.StatusError{StatusCode: status}
		}
		return err
	}, countsAgainstBreaker)
	ok := err == nil
	observability.ObserveRecommenderCall("health", outcome(err), time.Since(start))
	if !ok {
		lg.Warn("recommender health check failed", slog.Int("status", status), slog.Any("error", err))
	}
	return ok
}

// GetRecommendations posts req and parses the answer.
//
// Errors: *domain.StatusError for non-200 answers (raw body kept),
// *domain.TransportError for network failures and timeouts, ErrSchemaInvalid
// or ErrDataIntegrity for bodies that break the contract, and
// ErrServiceUnavailable while the breaker is open.
func (c *Client) GetRecommendations(ctx context.Context, req domain.RecommendationRequest) (*domain.RecommendationResponse, error) {
	if req.Skills == nil {
		req.Skills = []string{}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("op=recommender.GetRecommendations: %w", err)
	}
	lg := obsctx.LoggerFromContext(ctx)
	start := time.Now()

	var out *domain.RecommendationResponse
	err = c.breaker.Call(func() error {
		status, body, err := c.do(ctx, c.request, c.requestRead, http.MethodPost, "/recommendations", payload)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return &domain.StatusError{StatusCode: status, Body: string(body)}
		}
		out, err = ParseResponse(body)
		return err
	}, countsAgainstBreaker)
	observability.ObserveRecommenderCall("recommendations", outcome(err), time.Since(start))

	if errors.Is(err, observability.ErrCircuitOpen) {
		return nil, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	if err != nil {
		lg.Error("recommendation request failed", slog.String("student_id", req.StudentID), slog.Any("error", err))
		return nil, err
	}
	for _, r := range out.Recommendations {
		observability.ObserveSuccessProb(r.SuccessProb)
	}
	lg.Info("recommendations received",
		slog.String("student_id", req.StudentID),
		slog.Int("count", out.TotalRecommendations),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

// do performs one call. The body read gets its own deadline of read; the
// connection is released when ctx is cancelled.
func (c *Client) do(ctx context.Context, hc *http.Client, read time.Duration, method, path string, payload []byte) (int, []byte, error) {
	op := method + " " + path
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, &domain.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rid := obsctx.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, &domain.TransportError{Op: op, Err: err, Timeout: isTimeout(err)}
	}
	defer func() { _ = resp.Body.Close() }()

	var timedOut atomic.Bool
	if read > 0 {
		timer := time.AfterFunc(read, func() { timedOut.Store(true); cancel() })
		defer timer.Stop()
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &domain.TransportError{Op: op, Err: err, Timeout: timedOut.Load() || isTimeout(err)}
	}
	return resp.StatusCode, b, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// countsAgainstBreaker trips the breaker on outages only: transport failures
// and 5xx answers. Contract violations and 4xx do not.
func countsAgainstBreaker(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var te *domain.TransportError
	if errors.As(err, &te) {
		return true
	}
	var se *domain.StatusError
	return errors.As(err, &se) && se.StatusCode >= 500
}

func outcome(err error) string {
	var se *domain.StatusError
	var te *domain.TransportError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, observability.ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &te) && te.Timeout:
		return "timeout"
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &se):
		return fmt.Sprintf("status_%d", se.StatusCode)
	case errors.Is(err, domain.ErrDataIntegrity):
		return "data_integrity"
	default:
		return "invalid_body"
	}
}
