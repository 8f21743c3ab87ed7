// Package validation provides input validation for histedit.
// It has no dependencies on other histedit packages to avoid import cycles.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// pathSafeRegex matches alphanumeric characters, underscores, and hyphens only.
// Used to validate IDs that will be used in file paths.
var pathSafeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validate is shared; validator.Validate caches struct metadata and is safe
// for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their json name so errors match the CLI flags and JSON output.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	//nolint:errcheck // tag name is a constant and the function is non-nil
	_ = v.RegisterValidation("gitident", validateGitIdent)
	return v
}

// validateGitIdent checks a value that will be written into a git
// "Name <email> time zone" header. Angle brackets and line breaks would
// corrupt the header; blank values would produce an unreadable signature.
func validateGitIdent(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.TrimSpace(s) == "" {
		return false
	}
	return !strings.ContainsAny(s, "<>\n\r\x00")
}

// FieldError describes one field that failed validation.
type FieldError struct {
	Field string
	Tag   string
	Param string
	Value string
}

// Reason returns a short human readable explanation of the failed rule.
func (e FieldError) Reason() string {
	switch e.Tag {
	case "gitident":
		return "must be non-empty and must not contain '<', '>' or line breaks"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		return "must be at least " + e.Param
	case "max", "lte":
		return "must be at most " + e.Param
	default:
		return "failed " + e.Tag + " validation"
	}
}

// Struct validates s against its `validate` struct tags and returns one
// FieldError per failing field. A nil slice means s is valid.
func Struct(s any) ([]FieldError, error) {
	err := validate.Struct(s)
	if err == nil {
		return nil, nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil, fmt.Errorf("validating %T: %w", s, err)
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("validating %T: %w", s, err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
			Value: valueString(fe.Value()),
		})
	}
	return fields, nil
}

func valueString(v any) string {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return ""
	}
	return fmt.Sprint(rv.Interface())
}

// ValidateOperationID validates that an operation ID is non-empty and safe
// to use as a file name.
func ValidateOperationID(id string) error {
	if id == "" {
		return errors.New("operation ID cannot be empty")
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("invalid operation ID %q: contains path separators", id)
	}
	if !pathSafeRegex.MatchString(id) {
		return fmt.Errorf("invalid operation ID %q: must be alphanumeric with underscores/hyphens only", id)
	}
	return nil
}
