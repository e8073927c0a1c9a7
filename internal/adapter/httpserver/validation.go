package httpserver

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
	"github.com/fairyhunter13/internship-recommender/internal/intake"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidateSessionID checks that id is a UUID as issued by the session store.
func ValidateSessionID(id string) ValidationResult {
	if id == "" {
		return ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Field:   "id",
					Code:    "REQUIRED",
					Message: "Session ID is required",
				},
			},
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		return ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Field:   "id",
					Code:    "INVALID_FORMAT",
					Message: "Session ID must be a UUID",
				},
			},
		}
	}
	return ValidationResult{Valid: true}
}

// Byte caps for step answers. Resume-derived text is free form and feeds
// keyword matching, so it gets the larger cap.
const (
	maxFieldLen = 1000
	maxTextLen  = 64 << 10
)

// FieldTooLongError reports a step answer over its byte cap.
type FieldTooLongError struct {
	Field    string
	MaxBytes int
}

func (e *FieldTooLongError) Error() string {
	return fmt.Sprintf("field %s exceeds %d bytes", e.Field, e.MaxBytes)
}

func (e *FieldTooLongError) Unwrap() error { return domain.ErrInvalidArgument }

// SanitizeString strips null bytes, surrounding space and invalid UTF-8.
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	return input
}

// fieldLimit is the byte cap for string answers of step.
func fieldLimit(step intake.Step) int {
	if step == intake.StepResume {
		return maxTextLen
	}
	return maxFieldLen
}

// sanitizeFields runs SanitizeString over every string and []string field of
// the struct v points to. A value longer than limit is rejected, never cut.
func sanitizeFields(v any, limit int) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return nil
	}
	rv = rv.Elem()
	clean := func(i int, f reflect.Value) error {
		out := SanitizeString(f.String())
		if len(out) > limit {
			return &FieldTooLongError{Field: jsonName(rv.Type().Field(i)), MaxBytes: limit}
		}
		f.SetString(out)
		return nil
	}
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch {
		case f.Kind() == reflect.String:
			if err := clean(i, f); err != nil {
				return err
			}
		case f.Kind() == reflect.Slice && f.Type().Elem().Kind() == reflect.String:
			for j := 0; j < f.Len(); j++ {
				if err := clean(i, f.Index(j)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	if name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]; name != "" && name != "-" {
		return name
	}
	return f.Name
}
