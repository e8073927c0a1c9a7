// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// RecommenderBaseURL is the external ML service exposing /health and /recommendations.
	RecommenderBaseURL    string        `env:"RECOMMENDER_BASE_URL" envDefault:"http://localhost:8000"`
	HealthConnectTimeout  time.Duration `env:"RECOMMENDER_HEALTH_CONNECT_TIMEOUT" envDefault:"10s"`
	HealthReadTimeout     time.Duration `env:"RECOMMENDER_HEALTH_READ_TIMEOUT" envDefault:"15s"`
	RequestConnectTimeout time.Duration `env:"RECOMMENDER_REQUEST_CONNECT_TIMEOUT" envDefault:"15s"`
	RequestReadTimeout    time.Duration `env:"RECOMMENDER_REQUEST_READ_TIMEOUT" envDefault:"30s"`
	BreakerFailures       int           `env:"RECOMMENDER_BREAKER_FAILURES" envDefault:"5"`
	BreakerCooldown       time.Duration `env:"RECOMMENDER_BREAKER_COOLDOWN" envDefault:"30s"`
	FallbackSampleEnabled bool          `env:"FALLBACK_SAMPLE_ENABLED" envDefault:"true"`
	ClassifierTablesPath  string        `env:"CLASSIFIER_TABLES_PATH"`
	SessionTTL            time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	SessionSweepInterval  time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"10m"`

	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	// TikaURL specifies the base URL for the Apache Tika server used for resume text extraction
	TikaURL                    string        `env:"TIKA_URL" envDefault:"http://tika:9998"`
	TikaBackoffMaxElapsedTime  time.Duration `env:"TIKA_BACKOFF_MAX_ELAPSED_TIME" envDefault:"20s"`
	TikaBackoffInitialInterval time.Duration `env:"TIKA_BACKOFF_INITIAL_INTERVAL" envDefault:"500ms"`
	TikaBackoffMaxInterval     time.Duration `env:"TIKA_BACKOFF_MAX_INTERVAL" envDefault:"5s"`
	TikaBackoffMultiplier      float64       `env:"TIKA_BACKOFF_MULTIPLIER" envDefault:"2.0"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"internship-recommender"`

	MaxUploadMB           int64         `env:"MAX_UPLOAD_MB" envDefault:"10"`
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	SubmitPerMin          int           `env:"SUBMIT_PER_MIN" envDefault:"6"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// GetTikaBackoffConfig returns backoff configuration appropriate for the current environment.
// In test environments, uses much shorter timeouts for faster test execution.
func (c Config) GetTikaBackoffConfig() (maxElapsedTime, initialInterval, maxInterval time.Duration, multiplier float64) {
	if c.IsTest() {
		return 2 * time.Second, 50 * time.Millisecond, 500 * time.Millisecond, 2.0
	}
	return c.TikaBackoffMaxElapsedTime, c.TikaBackoffInitialInterval, c.TikaBackoffMaxInterval, c.TikaBackoffMultiplier
}

// SubmitWorstCase is the longest a live submit can take: one health call and
// one recommendation call, each paying connect, header and body deadlines.
func (c Config) SubmitWorstCase() time.Duration {
	return c.HealthConnectTimeout + 2*c.HealthReadTimeout +
		c.RequestConnectTimeout + 2*c.RequestReadTimeout
}

// Origins splits CORSAllowOrigins into a trimmed list.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
