// Package normalize maps loosely structured profile text onto the categorical
// values the recommender expects. Every function here is pure and total: bad
// input yields the documented default, never an error.
package normalize

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
)

// DefaultNormalizerCGPA is returned by CGPA when the text cannot be read as a
// positive number. It is not the same literal as the request builder's
// fallback (usecase.DefaultRequestCGPA); both are kept pending product review.
const DefaultNormalizerCGPA = 7.0

// DefaultAcademicStream is returned when no stream keyword matches.
const DefaultAcademicStream = "Engineering"

// StreamRule maps a set of keywords onto one stream. Rules are evaluated in order.
type StreamRule struct {
	Stream   string   `yaml:"stream"`
	Keywords []string `yaml:"keywords"`
}

// Tables holds the keyword lists used by the classifiers.
type Tables struct {
	Streams       []StreamRule `yaml:"streams"`
	MetroCities   []string     `yaml:"metro_cities"`
	Tier1Keywords []string     `yaml:"tier1_keywords"`
	Tier2Keywords []string     `yaml:"tier2_keywords"`
}

// DefaultTables returns the built-in keyword tables.
func DefaultTables() Tables {
	return Tables{
		Streams: []StreamRule{
			{Stream: "Computer Science", Keywords: []string{"computer", "cs", "it"}},
			{Stream: "Electronics", Keywords: []string{"electronics", "ece"}},
			{Stream: "Mechanical", Keywords: []string{"mechanical", "me"}},
			{Stream: "Civil", Keywords: []string{"civil", "ce"}},
			{Stream: "Electrical", Keywords: []string{"electrical", "ee"}},
			{Stream: "Chemical", Keywords: []string{"chemical", "ch"}},
			{Stream: "Biotechnology", Keywords: []string{"biotechnology", "biotech"}},
			{Stream: "Business", Keywords: []string{"business", "mba"}},
			{Stream: "Commerce", Keywords: []string{"commerce", "bcom"}},
			{Stream: "Arts", Keywords: []string{"arts", "ba"}},
			{Stream: "Science", Keywords: []string{"science", "bsc"}},
		},
		MetroCities:   []string{"mumbai", "delhi", "bangalore", "hyderabad", "chennai", "kolkata", "pune", "ahmedabad"},
		Tier1Keywords: []string{"iit", "nit", "iiit"},
		Tier2Keywords: []string{"university", "college"},
	}
}

// Normalizer applies a fixed set of tables. The zero value is not usable; use New.
type Normalizer struct {
	tables Tables
}

// New returns a Normalizer over t. Empty tables fall back to the defaults so a
// partial override never leaves a classifier without keywords.
func New(t Tables) *Normalizer {
	def := DefaultTables()
	if len(t.Streams) == 0 {
		t.Streams = def.Streams
	}
	if len(t.MetroCities) == 0 {
		t.MetroCities = def.MetroCities
	}
	if len(t.Tier1Keywords) == 0 {
		t.Tier1Keywords = def.Tier1Keywords
	}
	if len(t.Tier2Keywords) == 0 {
		t.Tier2Keywords = def.Tier2Keywords
	}
	out := Tables{
		Streams:       make([]StreamRule, 0, len(t.Streams)),
		MetroCities:   lowerAll(t.MetroCities),
		Tier1Keywords: lowerAll(t.Tier1Keywords),
		Tier2Keywords: lowerAll(t.Tier2Keywords),
	}
	for _, r := range t.Streams {
		if strings.TrimSpace(r.Stream) == "" {
			continue
		}
		out.Streams = append(out.Streams, StreamRule{Stream: r.Stream, Keywords: lowerAll(r.Keywords)})
	}
	return &Normalizer{tables: out}
}

// Tables returns a copy of the tables in use.
func (n *Normalizer) Tables() Tables {
	t := n.tables
	t.Streams = append([]StreamRule(nil), n.tables.Streams...)
	t.MetroCities = append([]string(nil), n.tables.MetroCities...)
	t.Tier1Keywords = append([]string(nil), n.tables.Tier1Keywords...)
	t.Tier2Keywords = append([]string(nil), n.tables.Tier2Keywords...)
	return t
}

// AcademicStream returns the first stream whose keyword occurs in text.
func (n *Normalizer) AcademicStream(text string) string {
	s := strings.ToLower(text)
	if strings.TrimSpace(s) == "" {
		return DefaultAcademicStream
	}
	for _, r := range n.tables.Streams {
		if containsAny(s, r.Keywords) {
			return r.Stream
		}
	}
	return DefaultAcademicStream
}

// CGPA reads a percentage (or percentage-like) string and buckets it onto a
// 10-point scale. The bucketing is coarse: only the tier it lands in matters.
func (n *Normalizer) CGPA(text string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if r == '%' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v <= 0 || v != v {
		return DefaultNormalizerCGPA
	}
	switch {
	case v >= 90:
		return 9.0
	case v >= 80:
		return 8.0
	case v >= 70:
		return 7.0
	case v >= 60:
		return 6.0
	case v >= 50:
		return 5.0
	default:
		return v / 10
	}
}

// RuralUrban classifies a location as Urban when it names a metro city.
func (n *Normalizer) RuralUrban(location string) string {
	if containsAny(strings.ToLower(location), n.tables.MetroCities) {
		return domain.Urban
	}
	return domain.Rural
}

// CollegeTier classifies a college by name.
func (n *Normalizer) CollegeTier(college string) string {
	s := strings.ToLower(college)
	switch {
	case containsAny(s, n.tables.Tier1Keywords):
		return domain.Tier1
	case containsAny(s, n.tables.Tier2Keywords):
		return domain.Tier2
	default:
		return domain.Tier3
	}
}

var std = New(DefaultTables())

// Default returns the Normalizer built from DefaultTables.
func Default() *Normalizer { return std }

// MapAcademicStream classifies education text with the default tables.
func MapAcademicStream(educationText string) string { return std.AcademicStream(educationText) }

// ExtractCGPA buckets a percentage or CGPA string with the default rules.
func ExtractCGPA(text string) float64 { return std.CGPA(text) }

// MapLocationToRuralUrban classifies a location with the default metro list.
func MapLocationToRuralUrban(location string) string { return std.RuralUrban(location) }

// MapCollegeToTier classifies a college name with the default keywords.
func MapCollegeToTier(college string) string { return std.CollegeTier(college) }

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
