package intake

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
)

// Step identifies one screen of the intake flow.
type Step string

// Intake steps in navigation order.
const (
	StepBasicInfo   Step = "basic"
	StepAcademic    Step = "academic"
	StepResume      Step = "resume"
	StepSkills      Step = "skills"
	StepPreferences Step = "preferences"
	StepFairness    Step = "fairness"
	StepConsent     Step = "consent"
)

// Steps lists every step in order.
var Steps = []Step{StepBasicInfo, StepAcademic, StepResume, StepSkills, StepPreferences, StepFairness, StepConsent}

// ParseStep resolves a step name.
func ParseStep(s string) (Step, error) {
	for _, st := range Steps {
		if string(st) == strings.ToLower(strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown step %q", domain.ErrInvalidArgument, s)
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New()
		_ = vld.RegisterValidation("notblank", validators.NotBlank)
		vld.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return vld
}

// ValidateStep checks the required fields of step against the current form.
// It returns a *domain.StepValidationError naming the incomplete fields.
func (f *FormState) ValidateStep(step Step) error {
	var target any
	switch step {
	case StepBasicInfo:
		target = f.basic
	case StepPreferences:
		target = f.preferences
	case StepConsent:
		target = f.consent
	case StepSkills:
		s := f.skills
		if len(NonBlank(s.Technical)) == 0 && len(NonBlank(s.Legacy)) == 0 {
			return &domain.StepValidationError{Step: string(step), Fields: []string{"technical_skills"}}
		}
		return nil
	case StepAcademic, StepResume, StepFairness:
		return nil
	default:
		return fmt.Errorf("%w: unknown step %q", domain.ErrInvalidArgument, step)
	}
	err := getValidator().Struct(target)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &domain.StepValidationError{Step: string(step), Fields: fields}
}

// StepValid reports whether step may be left.
func (f *FormState) StepValid(step Step) bool { return f.ValidateStep(step) == nil }

// Validity evaluates every step against the current form.
func (f *FormState) Validity() map[Step]bool {
	out := make(map[Step]bool, len(Steps))
	for _, st := range Steps {
		out[st] = f.StepValid(st)
	}
	return out
}

// FirstInvalidStep returns the earliest step that blocks forward navigation.
func (f *FormState) FirstInvalidStep() (Step, bool) {
	for _, st := range Steps {
		if !f.StepValid(st) {
			return st, true
		}
	}
	return "", false
}
