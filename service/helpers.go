package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"jatrackr/core"

	"github.com/go-playground/validator/v10"
)

// ============================================================================
// Shared Helper Functions
// ============================================================================

// newValidator returns a validator that reports JSON field names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError converts validator output into a core.ErrValidation error
// listing every failing field.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", core.ErrValidation, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s must be a valid %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", core.ErrValidation, strings.Join(msgs, "; "))
}

// validUsername allows letters, digits and _ - . @
func validUsername(username string) bool {
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case '_', '-', '.', '@':
			continue
		}
		return false
	}
	return true
}

// requireID rejects empty or oversized identifiers before they reach storage
func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s is required", core.ErrValidation, kind)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: %s too long: %d characters (max %d)", core.ErrValidation, kind, len(id), maxIDLength)
	}
	return nil
}
