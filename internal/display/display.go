// Package display maps recommender output onto the records the client renders.
package display

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
)

// Match labels and their colors, highest bucket first.
const (
	LabelExcellent = "Excellent Match"
	LabelGood      = "Good Match"
	LabelFair      = "Fair Match"
	LabelNeedsWork = "Needs Improvement"

	ColorExcellent = "#2E7D32"
	ColorGood      = "#1976D2"
	ColorFair      = "#F57C00"
	ColorNeedsWork = "#D32F2F"
)

// RupeePrefix is prepended to the formatted stipend.
const RupeePrefix = "₹"

// ToDisplay copies rec and derives the presentation fields.
func ToDisplay(rec domain.Recommendation) domain.DisplayRecommendation {
	p := rec.SuccessProb
	if rec.Description == "" {
		rec.Description = strings.Join(rec.Reasons, ", ")
	}
	label, color := Match(p)
	return domain.DisplayRecommendation{
		Recommendation:   rec,
		MatchScore:       int(math.Round(p * 100)),
		MatchLabel:       label,
		MatchColor:       color,
		IsUrgent:         p > 0.8,
		IsRemote:         strings.Contains(strings.ToLower(rec.Location), "remote"),
		FormattedStipend: FormatStipend(rec.Stipend),
	}
}

// ToDisplayList maps every record, preserving order. The result is never nil.
func ToDisplayList(recs []domain.Recommendation) []domain.DisplayRecommendation {
	out := make([]domain.DisplayRecommendation, 0, len(recs))
	for _, r := range recs {
		out = append(out, ToDisplay(r))
	}
	return out
}

// Match buckets a success probability.
func Match(p float64) (label, color string) {
	switch {
	case p >= 0.8:
		return LabelExcellent, ColorExcellent
	case p >= 0.6:
		return LabelGood, ColorGood
	case p >= 0.4:
		return LabelFair, ColorFair
	default:
		return LabelNeedsWork, ColorNeedsWork
	}
}

// FormatStipend renders a whole-rupee amount with thousands separators.
func FormatStipend(v float64) string {
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	return RupeePrefix + humanize.Comma(int64(math.Round(v)))
}
