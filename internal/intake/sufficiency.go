package intake

import "github.com/fairyhunter13/internship-recommender/internal/domain"

// Field groups required before a recommendation request can be built.
const (
	RequiredName               = "name"
	RequiredEducation          = "education"
	RequiredSkillsOrExperience = "skills_or_experience"
)

// CheckSufficiency returns a *domain.InsufficientDataError naming every
// required group that is blank. Education is satisfied by resume education
// text or any academic answer; skills by any skill entry, resume skills text
// or experience text.
func CheckSufficiency(f *FormState) error {
	var missing []string
	if Blank(f.basic.Name) {
		missing = append(missing, RequiredName)
	}
	if Blank(f.resume.EducationText) && Blank(f.basic.CollegeName) &&
		Blank(f.academic.Stream) && Blank(f.academic.PreferredDomain) {
		missing = append(missing, RequiredEducation)
	}
	if len(NonBlank(f.skills.Technical)) == 0 && len(NonBlank(f.skills.Legacy)) == 0 &&
		Blank(f.resume.SkillsText) && Blank(f.resume.ExperienceText) {
		missing = append(missing, RequiredSkillsOrExperience)
	}
	if len(missing) > 0 {
		return &domain.InsufficientDataError{Missing: missing}
	}
	return nil
}
