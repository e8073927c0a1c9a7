// Package intake holds the multi-step registration form and the sessions that
// accumulate it. Setters never validate; validity is a separate, recomputed
// predicate per step.
package intake

import (
	"encoding/json"
	"strings"
)

// BasicInfo is the identity step.
type BasicInfo struct {
	Name        string `json:"name" validate:"notblank"`
	StudentRef  string `json:"student_ref"`
	CollegeName string `json:"college_name" validate:"notblank"`
	Year        string `json:"year" validate:"notblank"`
}

// Academic carries grades and discipline. CollegeTier, when set, overrides
// the tier derived from the college name.
type Academic struct {
	Percentage      string `json:"percentage"`
	CGPA            string `json:"cgpa"`
	Stream          string `json:"stream"`
	PreferredDomain string `json:"preferred_domain"`
	CollegeTier     string `json:"college_tier"`
}

// ResumeDerived holds best-effort text pulled out of an uploaded resume.
type ResumeDerived struct {
	EducationText  string `json:"education_text"`
	SkillsText     string `json:"skills_text"`
	ExperienceText string `json:"experience_text"`
}

// SkillSet holds explicitly entered skills. Legacy is the older single list
// kept for clients that never moved to Technical.
type SkillSet struct {
	Technical []string `json:"technical_skills"`
	Legacy    []string `json:"skills"`
}

// Preferences are the internship preferences. RuralUrban, when set, overrides
// the classification derived from the locations.
type Preferences struct {
	Location        string `json:"location" validate:"notblank"`
	CurrentLocation string `json:"current_location"`
	Duration        string `json:"duration" validate:"notblank"`
	Workload        string `json:"workload" validate:"notblank"`
	RuralUrban      string `json:"rural_urban"`
}

// Fairness holds accessibility and background answers.
type Fairness struct {
	BackgroundCategory string `json:"background_category"`
	Language           string `json:"language"`
}

// Consent records how the student may be contacted.
type Consent struct {
	Channel string `json:"channel" validate:"notblank"`
	Allow   bool   `json:"allow" validate:"required"`
}

// FormState accumulates one student's answers. Strings default to "" and
// slices to empty, never nil.
type FormState struct {
	basic       BasicInfo
	academic    Academic
	resume      ResumeDerived
	skills      SkillSet
	preferences Preferences
	fairness    Fairness
	consent     Consent
}

// NewFormState returns an empty form.
func NewFormState() *FormState {
	f := &FormState{}
	f.Reset()
	return f
}

// Reset clears every field back to its sentinel.
func (f *FormState) Reset() {
	*f = FormState{skills: SkillSet{Technical: []string{}, Legacy: []string{}}}
}

// Step group accessors. The groups hold only strings and bools, so values are
// returned and stored by copy; setters replace the whole group and never
// validate.
func (f *FormState) BasicInfo() BasicInfo         { return f.basic }
func (f *FormState) Academic() Academic           { return f.academic }
func (f *FormState) Resume() ResumeDerived        { return f.resume }
func (f *FormState) Preferences() Preferences     { return f.preferences }
func (f *FormState) Fairness() Fairness           { return f.fairness }
func (f *FormState) Consent() Consent             { return f.consent }
func (f *FormState) SetBasicInfo(v BasicInfo)     { f.basic = v }
func (f *FormState) SetAcademic(v Academic)       { f.academic = v }
func (f *FormState) SetResume(v ResumeDerived)    { f.resume = v }
func (f *FormState) SetPreferences(v Preferences) { f.preferences = v }
func (f *FormState) SetFairness(v Fairness)       { f.fairness = v }
func (f *FormState) SetConsent(v Consent)         { f.consent = v }

// Skills returns a copy of the skill lists.
func (f *FormState) Skills() SkillSet {
	return SkillSet{Technical: cloneStrings(f.skills.Technical), Legacy: cloneStrings(f.skills.Legacy)}
}

// SetSkills stores copies of both lists.
func (f *FormState) SetSkills(v SkillSet) {
	f.skills = SkillSet{Technical: cloneStrings(v.Technical), Legacy: cloneStrings(v.Legacy)}
}

// Clone returns a deep copy, used to hand the builder a stable snapshot.
func (f *FormState) Clone() *FormState {
	c := *f
	c.skills = f.Skills()
	return &c
}

type formJSON struct {
	BasicInfo   BasicInfo     `json:"basic_info"`
	Academic    Academic      `json:"academic"`
	Resume      ResumeDerived `json:"resume"`
	Skills      SkillSet      `json:"skills"`
	Preferences Preferences   `json:"preferences"`
	Fairness    Fairness      `json:"fairness"`
	Consent     Consent       `json:"consent"`
}

// MarshalJSON renders the form grouped by step.
func (f *FormState) MarshalJSON() ([]byte, error) {
	return json.Marshal(formJSON{
		BasicInfo:   f.basic,
		Academic:    f.academic,
		Resume:      f.resume,
		Skills:      f.Skills(),
		Preferences: f.preferences,
		Fairness:    f.fairness,
		Consent:     f.consent,
	})
}

// UnmarshalJSON accepts the grouped form; missing groups stay empty.
func (f *FormState) UnmarshalJSON(b []byte) error {
	var in formJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	f.Reset()
	f.basic = in.BasicInfo
	f.academic = in.Academic
	f.resume = in.Resume
	f.SetSkills(in.Skills)
	f.preferences = in.Preferences
	f.fairness = in.Fairness
	f.consent = in.Consent
	return nil
}

// Blank reports whether s is empty after trimming.
func Blank(s string) bool { return strings.TrimSpace(s) == "" }

// NonBlank returns the trimmed entries of in that are not blank.
func NonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
