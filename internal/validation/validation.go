package validation

import (
	"fmt"
	"regexp"
	"strings"

	"guardianlink/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// allowedGrades is the accepted grade set: "6".."12" plus "college"
var allowedGrades = map[string]bool{
	"6": true, "7": true, "8": true, "9": true,
	"10": true, "11": true, "12": true,
	"college": true,
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateChildDescriptor checks the fields of one child registration request
func ValidateChildDescriptor(d models.ChildDescriptor) error {
	nickname := strings.TrimSpace(d.Nickname)
	if len(nickname) < 2 || len(nickname) > 50 {
		return ValidationError{Field: "nickname", Message: "nickname must be between 2 and 50 characters"}
	}
	if d.Age < 6 || d.Age > 18 {
		return ValidationError{Field: "age", Message: "age must be between 6 and 18"}
	}
	if !allowedGrades[d.Grade] {
		return ValidationError{Field: "grade", Message: `grade must be one of "6".."12" or "college"`}
	}
	return nil
}

// ValidateConsentFlags checks that the mandatory consent flags are
// accepted. childDataUsage is required unless the acting account's role
// is child.
func ValidateConsentFlags(flags models.ConsentFlags, role string) error {
	if !flags.RequiredAccepted() {
		return ValidationError{Field: "consent", Message: "you must accept both the privacy policy and the terms of service"}
	}
	if role != models.RoleChild && !flags.ChildDataUsage {
		return ValidationError{Field: "childDataUsage", Message: "child data usage consent is required"}
	}
	return nil
}
