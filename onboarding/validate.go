package onboarding

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// sectionSteps maps a draft section to the wizard step that edits it. Consents are
// accepted on the review step.
var sectionSteps = map[string]Step{
	"profile":  StepProfile,
	"document": StepDocument,
	"selfie":   StepSelfie,
	"address":  StepAddress,
	"consents": StepReview,
}

// Validator checks drafts against their struct tags and reports field errors keyed by
// "section.field", the same keys the backend uses.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names so error keys match the wire format
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})

	return &Validator{validate: v}
}

// Draft returns every field error in d, or nil when d is complete.
func (v *Validator) Draft(d Draft) map[string]string {
	err := v.validate.Struct(d)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return map[string]string{"draft": err.Error()}
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		// Namespace is "Draft.section.field"
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		fieldErrors[key] = message(fe)
	}
	return fieldErrors
}

// Step returns the field errors of the sections edited on step.
func (v *Validator) Step(d Draft, step Step) map[string]string {
	var out map[string]string
	for key, msg := range v.Draft(d) {
		if s, ok := StepOf(key); ok && s == step {
			if out == nil {
				out = make(map[string]string)
			}
			out[key] = msg
		}
	}
	return out
}

// StepOf returns the wizard step that edits the field named by key.
func StepOf(key string) (Step, bool) {
	section, _, _ := strings.Cut(key, ".")
	step, ok := sectionSteps[section]
	return step, ok
}

// FirstStep returns the earliest step referenced by fieldErrors.
func FirstStep(fieldErrors map[string]string) (Step, bool) {
	found := false
	first := LastStep
	for key := range fieldErrors {
		if s, ok := StepOf(key); ok && (!found || s < first) {
			first, found = s, true
		}
	}
	return first, found
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "alphanum":
		return "Letters and digits only"
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "datetime":
		return "Must be a date in YYYY-MM-DD format"
	default:
		return fmt.Sprintf("Failed %s validation", fe.Tag())
	}
}
