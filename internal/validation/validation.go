// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"clipshare/internal/models"

	"github.com/microcosm-cc/bluemonday"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.$-]+$`)
	textPolicy    = bluemonday.StrictPolicy()
)

// Messages shared by more than one request validator.
const (
	MsgInvalidEmail    = "Invalid email!"
	MsgInvalidPassword = "Password must have at least 8 characters!"
)

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	if !emailRegex.MatchString(email) || strings.Contains(email, "..") {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidatePassword requires more than eight characters.
func ValidatePassword(password string) error {
	if len(password) <= 8 {
		return fmt.Errorf("password must be longer than 8 characters")
	}
	if len(password) > 128 {
		return fmt.Errorf("password must not exceed 128 characters")
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}
	if len(username) > 40 {
		return fmt.Errorf("username must not exceed 40 characters")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, dots, underscores, hyphens and $")
	}
	return nil
}

// SanitizeText strips all markup from user supplied text and trims it.
func SanitizeText(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

// Fields collects field-level failures in the order they are found.
type Fields struct {
	errs []models.FieldError
}

// Required records msg for field when value is nil.
func (f *Fields) Required(field string, value *string, msg string) {
	if value == nil {
		f.Add(field, msg)
	}
}

// OneOf records a failure for field when value is missing or outside allowed.
func (f *Fields) OneOf(field string, value *string, allowed ...string) {
	if value != nil {
		for _, a := range allowed {
			if *value == a {
				return
			}
		}
	}
	f.Add(field, fmt.Sprintf("Invalid enum value. Expected '%s'", strings.Join(allowed, "' | '")))
}

// Add records a failure.
func (f *Fields) Add(field, msg string) {
	f.errs = append(f.errs, models.FieldError{Field: field, Message: msg})
}

// Err returns the collected failures as a validation error, or nil.
func (f *Fields) Err() error {
	if len(f.errs) == 0 {
		return nil
	}
	return models.NewFieldValidationError(f.errs)
}
