package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
)

// Pinger is the minimal interface of a dependency that can be probed.
type Pinger interface{ Ping(ctx context.Context) error }

// HealthChecker is the recommender's health probe.
type HealthChecker interface{ CheckHealth(ctx context.Context) bool }

// BuildReadinessChecks returns three readiness checks: redis, tika and
// recommender. A nil tika disables the tika check, since only pdf and docx
// uploads need it.
func BuildReadinessChecks(redis Pinger, tika Pinger, rec HealthChecker) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	redisCheck := func(ctx context.Context) error {
		if redis == nil {
			return errors.New("redis not configured")
		}
		return redis.Ping(ctx)
	}
	var tikaCheck func(ctx context.Context) error
	if tika != nil {
		tikaCheck = tika.Ping
	}
	recCheck := func(ctx context.Context) error {
		if rec == nil {
			return errors.New("recommender not configured")
		}
		if !rec.CheckHealth(ctx) {
			return fmt.Errorf("recommender: %w", domain.ErrServiceUnavailable)
		}
		return nil
	}
	return redisCheck, tikaCheck, recCheck
}
