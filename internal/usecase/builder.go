// Package usecase contains the recommendation pipeline services.
package usecase

import (
	"strconv"
	"strings"
	"time"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
	"github.com/fairyhunter13/internship-recommender/internal/intake"
	"github.com/fairyhunter13/internship-recommender/internal/normalize"
	"github.com/fairyhunter13/internship-recommender/internal/skills"
)

// DefaultRequestCGPA is sent when neither CGPA nor percentage is usable.
// It differs from normalize.DefaultNormalizerCGPA (7.0); both values are in
// production use and are kept apart until product settles on one.
const DefaultRequestCGPA = 8.0

// studentIDLayout renders as yyyyMMddHHmmss.
const studentIDLayout = "20060102150405"

// Builder turns a FormState into a RecommendationRequest.
type Builder struct {
	Normalizer *normalize.Normalizer
	Extractor  *skills.Extractor
	Now        func() time.Time
}

// NewBuilder wires a Builder; nil collaborators fall back to the defaults.
func NewBuilder(n *normalize.Normalizer, e *skills.Extractor, now func() time.Time) *Builder {
	if n == nil {
		n = normalize.Default()
	}
	if e == nil {
		e = skills.New(skills.DefaultDictionaries())
	}
	if now == nil {
		now = time.Now
	}
	return &Builder{Normalizer: n, Extractor: e, Now: now}
}

// Build derives every request field from f without mutating it. It never
// fails; each field falls through its chain to a default.
func (b *Builder) Build(f *intake.FormState) domain.RecommendationRequest {
	basic, acad, prefs := f.BasicInfo(), f.Academic(), f.Preferences()
	return domain.RecommendationRequest{
		StudentID:   "STU_" + b.Now().Format(studentIDLayout),
		Skills:      b.skills(f),
		Stream:      firstNonBlank(acad.Stream, acad.PreferredDomain, domain.DefaultStream),
		CGPA:        b.cgpa(acad),
		RuralUrban:  b.ruralUrban(prefs),
		CollegeTier: b.collegeTier(acad.CollegeTier, basic.CollegeName),
	}
}

func (b *Builder) skills(f *intake.FormState) []string {
	set := f.Skills()
	if out := explicitSkills(set.Technical); len(out) > 0 {
		return out
	}
	if out := explicitSkills(set.Legacy); len(out) > 0 {
		return out
	}
	r := f.Resume()
	return b.Extractor.Extract(r.SkillsText, r.ExperienceText, r.EducationText)
}

// explicitSkills keeps the student's spelling; only blanks and
// case-insensitive repeats are dropped.
func explicitSkills(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range intake.NonBlank(in) {
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if len(out) == skills.MaxSkills {
			break
		}
	}
	return out
}

func (b *Builder) cgpa(a intake.Academic) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(a.CGPA), 64); err == nil && v > 0 && v <= 10 {
		return v
	}
	if !intake.Blank(a.Percentage) {
		return b.Normalizer.CGPA(a.Percentage)
	}
	return DefaultRequestCGPA
}

func (b *Builder) ruralUrban(p intake.Preferences) string {
	switch strings.ToLower(strings.TrimSpace(p.RuralUrban)) {
	case "rural":
		return domain.Rural
	case "urban":
		return domain.Urban
	}
	return b.Normalizer.RuralUrban(firstNonBlank(p.CurrentLocation, p.Location))
}

func (b *Builder) collegeTier(override, college string) string {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(override), " ", "-")) {
	case "tier-1", "tier1":
		return domain.Tier1
	case "tier-2", "tier2":
		return domain.Tier2
	case "tier-3", "tier3":
		return domain.Tier3
	}
	return b.Normalizer.CollegeTier(college)
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
