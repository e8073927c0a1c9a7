// Package tika extracts resume text through an Apache Tika server.
package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/internship-recommender/internal/adapter/observability"
	"github.com/fairyhunter13/internship-recommender/internal/config"
	"github.com/fairyhunter13/internship-recommender/internal/domain"
	obsctx "github.com/fairyhunter13/internship-recommender/internal/observability"
	"github.com/fairyhunter13/internship-recommender/pkg/textx"
)

// Client is a minimal Apache Tika HTTP client implementing domain.TextExtractor.
// It performs PUT /tika with Accept: text/plain to retrieve extracted text.
// See: https://tika.apache.org/server/ for API details.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cfg        config.Config
}

var _ domain.TextExtractor = (*Client)(nil)

// New constructs a Tika client. Retry timing comes from cfg.
func New(cfg config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.TikaURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		cfg:        cfg,
	}
}

func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetTikaBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// ExtractPath reads the file at path and extracts it. Only files under the
// system temp dir or the working directory are accepted.
func (c *Client) ExtractPath(ctx context.Context, fileName, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("op=tika.ExtractPath: %w", err)
	}
	abs = filepath.Clean(abs)
	wd, _ := os.Getwd()
	if !within(abs, filepath.Clean(os.TempDir())) && !within(abs, filepath.Clean(wd)) {
		return "", fmt.Errorf("%w: disallowed path: %s", domain.ErrInvalidArgument, abs)
	}
	// #nosec G304 -- constrained to temp dir or working dir above
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("op=tika.ExtractPath: %w", err)
	}
	return c.ExtractBytes(ctx, fileName, data)
}

func within(path, base string) bool {
	return path == base || strings.HasPrefix(path, base+string(os.PathSeparator))
}

// ExtractBytes sends data to Tika and returns plain text with one line per
// source line. 5xx responses and transport errors are retried with backoff.
func (c *Client) ExtractBytes(ctx context.Context, fileName string, data []byte) (string, error) {
	lg := obsctx.LoggerFromContext(ctx)
	u := c.baseURL
	if u == "" {
		u = "http://localhost:9998"
	}
	ct := contentTypeFromExt(filepath.Ext(fileName))

	var result string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, u+"/tika", bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "text/plain")
		if ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("tika status %d", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(&domain.StatusError{StatusCode: resp.StatusCode, Body: string(b)})
		}
		result = textx.NormalizeLines(string(b))
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(c.getBackoffConfig(), ctx)); err != nil {
		observability.ObserveResumeExtraction("tika", "error")
		lg.Error("tika extraction failed", slog.String("file", fileName), slog.Any("error", err))
		return "", fmt.Errorf("op=tika.ExtractBytes: %w", err)
	}
	observability.ObserveResumeExtraction("tika", "ok")
	lg.Debug("tika extraction done", slog.String("file", fileName), slog.Int("chars", len(result)))
	return result, nil
}

// Ping reports whether the Tika server answers GET /version.
func (c *Client) Ping(ctx context.Context) error {
	u := c.baseURL
	if u == "" {
		u = "http://localhost:9998"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"/version", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tika status %d", resp.StatusCode)
	}
	return nil
}

func contentTypeFromExt(ext string) string {
	ext = strings.ToLower(ext)
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	default:
		if ext != "" && ext != "." {
			return mime.TypeByExtension(ext)
		}
	}
	return ""
}
