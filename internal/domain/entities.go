// Package domain holds the core types, error taxonomy and ports of the
// internship recommendation pipeline.
package domain

import (
	"context"
	"errors"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientData   = errors.New("insufficient data")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrUpstream           = errors.New("upstream error")
	ErrUpstreamTimeout    = errors.New("upstream timeout")
	ErrSchemaInvalid      = errors.New("schema invalid")
	ErrDataIntegrity      = errors.New("data integrity")
	ErrConflict           = errors.New("conflict")
	ErrRateLimited        = errors.New("rate limited")
	ErrInternal           = errors.New("internal error")
)

// Rural/urban classification values.
const (
	Rural = "Rural"
	Urban = "Urban"
)

// College tier values.
const (
	Tier1 = "Tier-1"
	Tier2 = "Tier-2"
	Tier3 = "Tier-3"
)

// DefaultStream is sent when neither the stream nor the preferred domain is set.
const DefaultStream = "Computer Science"

// RecommendationRequest is the canonical payload sent to the recommender.
// Invariants: Stream, RuralUrban and CollegeTier are never blank; len(Skills) <= 20.
type RecommendationRequest struct {
	StudentID   string   `json:"student_id"`
	Skills      []string `json:"skills"`
	Stream      string   `json:"stream"`
	CGPA        float64  `json:"cgpa"`
	RuralUrban  string   `json:"rural_urban"`
	CollegeTier string   `json:"college_tier"`
}

// Course is a learning resource attached to a recommendation.
type Course struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Platform string `json:"platform"`
}

// Recommendation is one internship opportunity returned by the recommender.
type Recommendation struct {
	InternshipID     string   `json:"internship_id"`
	Title            string   `json:"title"`
	OrganizationName string   `json:"organization_name"`
	Domain           string   `json:"domain"`
	Location         string   `json:"location"`
	Duration         string   `json:"duration"`
	Stipend          float64  `json:"stipend"`
	SuccessProb      float64  `json:"success_prob"`
	MissingSkills    []string `json:"missing_skills"`
	Courses          []Course `json:"courses"`
	Reasons          []string `json:"reasons"`
	Description      string   `json:"description,omitempty"`
}

// RecommendationResponse is the parsed body of a successful recommendation call.
// Invariant: TotalRecommendations == len(Recommendations).
type RecommendationResponse struct {
	StudentID            string           `json:"student_id"`
	TotalRecommendations int              `json:"total_recommendations"`
	GeneratedAt          string           `json:"generated_at"`
	Recommendations      []Recommendation `json:"recommendations"`
}

// DisplayRecommendation is a Recommendation enriched with presentation fields.
type DisplayRecommendation struct {
	Recommendation
	MatchScore       int    `json:"match_score"`
	MatchLabel       string `json:"match_label"`
	MatchColor       string `json:"match_color"`
	IsUrgent         bool   `json:"is_urgent"`
	IsRemote         bool   `json:"is_remote"`
	FormattedStipend string `json:"formatted_stipend"`
}

// ResumeFields are the best-effort sections pulled out of an uploaded resume.
type ResumeFields struct {
	Education  string `json:"education"`
	Skills     string `json:"skills"`
	Experience string `json:"experience"`
}

// Ports

// RecommendationService is the remote recommender.
type RecommendationService interface {
	CheckHealth(ctx Context) bool
	GetRecommendations(ctx Context, req RecommendationRequest) (*RecommendationResponse, error)
}

// RecommendationCache stores the last good response per profile fingerprint.
type RecommendationCache interface {
	Get(ctx Context, key string) (*RecommendationResponse, error)
	Put(ctx Context, key string, resp *RecommendationResponse) error
}

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	ExtractBytes(ctx Context, fileName string, data []byte) (string, error)
}

// Context is an alias to keep port signatures short.
type Context = context.Context
