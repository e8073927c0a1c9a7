package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fairyhunter13/internship-recommender/internal/adapter/observability"
	"github.com/fairyhunter13/internship-recommender/internal/adapter/recommender"
	"github.com/fairyhunter13/internship-recommender/internal/display"
	"github.com/fairyhunter13/internship-recommender/internal/domain"
	"github.com/fairyhunter13/internship-recommender/internal/intake"
	obsctx "github.com/fairyhunter13/internship-recommender/internal/observability"
)

// Source says where the recommendations in an Outcome came from.
type Source string

// Outcome sources.
const (
	SourceLive   Source = "live"
	SourceCache  Source = "cache"
	SourceSample Source = "sample"
)

// Outcome is what a submission returns to the client. Error and Retryable
// describe the live failure when Source is not live.
type Outcome struct {
	Source          Source                         `json:"source"`
	StudentID       string                         `json:"student_id"`
	GeneratedAt     string                         `json:"generated_at"`
	Recommendations []domain.DisplayRecommendation `json:"recommendations"`
	Error           string                         `json:"error,omitempty"`
	Retryable       bool                           `json:"retryable"`
}

// RecommendService runs sufficiency check, build, health check, request and
// fallback for one submission.
type RecommendService struct {
	Builder       *Builder
	Service       domain.RecommendationService
	Cache         domain.RecommendationCache
	SampleEnabled bool
}

// NewRecommendService constructs a RecommendService. cache may be nil.
func NewRecommendService(b *Builder, svc domain.RecommendationService, cache domain.RecommendationCache, sampleEnabled bool) *RecommendService {
	return &RecommendService{Builder: b, Service: svc, Cache: cache, SampleEnabled: sampleEnabled}
}

// Recommend returns an Outcome from the live service, the cache or the
// sample set, in that order. It returns an error when the form lacks the
// required data, when ctx ends, or when every source fails.
func (s *RecommendService) Recommend(ctx context.Context, form *intake.FormState) (Outcome, error) {
	ctx, span := observability.Tracer().Start(ctx, "usecase.Recommend")
	defer span.End()
	lg := obsctx.LoggerFromContext(ctx)

	snapshot := form.Clone()
	if err := intake.CheckSufficiency(snapshot); err != nil {
		span.SetStatus(codes.Error, "insufficient data")
		return Outcome{}, err
	}
	req := s.Builder.Build(snapshot)
	key := ProfileKey(req)
	span.SetAttributes(
		attribute.String("student_id", req.StudentID),
		attribute.Int("skills", len(req.Skills)),
		attribute.String("college_tier", req.CollegeTier),
	)

	attempt := recommender.Run(ctx, s.Service, req)
	if attempt.Err == nil {
		if s.Cache != nil {
			if err := s.Cache.Put(ctx, key, attempt.Response); err != nil {
				lg.Warn("recommendation cache write failed", slog.Any("error", err))
			}
		}
		observability.ObserveServed(string(SourceLive))
		return outcomeFrom(SourceLive, attempt.Response), nil
	}

	span.RecordError(attempt.Err)
	if ctx.Err() != nil {
		return Outcome{}, fmt.Errorf("op=usecase.Recommend: %w", ctx.Err())
	}
	msg, retry := FailureMessage(attempt.Err), domain.Retryable(attempt.Err)
	lg.Warn("live recommendations unavailable, trying fallbacks",
		slog.String("state", string(attempt.State())),
		slog.Any("error", attempt.Err))

	if s.Cache != nil {
		cached, err := s.Cache.Get(ctx, key)
		switch {
		case err == nil:
			observability.ObserveServed(string(SourceCache))
			out := outcomeFrom(SourceCache, cached)
			out.StudentID = req.StudentID
			out.Error, out.Retryable = msg, retry
			return out, nil
		case !errors.Is(err, domain.ErrNotFound):
			lg.Warn("recommendation cache read failed", slog.Any("error", err))
		}
	}
	if s.SampleEnabled {
		observability.ObserveServed(string(SourceSample))
		out := outcomeFrom(SourceSample, SampleResponse(req.StudentID, s.Builder.Now()))
		out.Error, out.Retryable = msg, retry
		return out, nil
	}

	observability.ObserveServed("error")
	span.SetStatus(codes.Error, msg)
	return Outcome{StudentID: req.StudentID, Error: msg, Retryable: retry}, attempt.Err
}

func outcomeFrom(src Source, resp *domain.RecommendationResponse) Outcome {
	return Outcome{
		Source:          src,
		StudentID:       resp.StudentID,
		GeneratedAt:     resp.GeneratedAt,
		Recommendations: display.ToDisplayList(resp.Recommendations),
	}
}

// ProfileKey fingerprints the profile fields of req. StudentID is excluded,
// so two submissions of the same profile share a key.
func ProfileKey(req domain.RecommendationRequest) string {
	sk := make([]string, len(req.Skills))
	for i, s := range req.Skills {
		sk[i] = strings.ToLower(strings.TrimSpace(s))
	}
	sort.Strings(sk)
	raw := fmt.Sprintf("%s|%s|%.2f|%s|%s", strings.Join(sk, ","), strings.ToLower(req.Stream), req.CGPA, req.RuralUrban, req.CollegeTier)
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// FailureMessage turns a recommendation failure into text for the student.
func FailureMessage(err error) string {
	var se *domain.StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrServiceUnavailable):
		return "The recommendation service is unavailable right now. Please try again shortly."
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "The recommendation service took too long to respond. Please try again."
	case errors.As(err, &se):
		return fmt.Sprintf("The recommendation service returned an error (status %d).", se.StatusCode)
	case errors.Is(err, domain.ErrSchemaInvalid), errors.Is(err, domain.ErrDataIntegrity):
		return "The recommendation service sent an unexpected response."
	default:
		return "Could not reach the recommendation service. Check your connection and try again."
	}
}
