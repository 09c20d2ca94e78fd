package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9 \-().]+$`)
)

const (
	MinNameLength = 2
	MaxNameLength = 50
	MaxChildAge   = 18
	MaxTags       = 20
)

// AgeGroups lists the accepted child age groups
var AgeGroups = []string{"0-2", "3-5", "6-8", "9-12", "13-18"}

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

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	n := utf8.RuneCountInString(name)
	if n < MinNameLength {
		return ValidationError{Field: "name", Message: fmt.Sprintf("name must be at least %d characters", MinNameLength)}
	}
	if n > MaxNameLength {
		return ValidationError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", MaxNameLength)}
	}
	return nil
}

// ValidatePhone accepts an empty value or a loosely formatted phone number
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if !phoneRegex.MatchString(phone) || digits < 3 || digits > 15 {
		return ValidationError{Field: "phone_number", Message: "invalid phone number"}
	}
	return nil
}

// ValidateAge checks an optional child age
func ValidateAge(age *int) error {
	if age == nil {
		return nil
	}
	if *age < 0 || *age > MaxChildAge {
		return ValidationError{Field: "age", Message: fmt.Sprintf("age must be between 0 and %d", MaxChildAge)}
	}
	return nil
}

// ValidateAgeGroup checks an optional age group against AgeGroups
func ValidateAgeGroup(group string) error {
	if group == "" || slices.Contains(AgeGroups, group) {
		return nil
	}
	return ValidationError{Field: "age_group", Message: "age group must be one of " + strings.Join(AgeGroups, ", ")}
}

// NormalizeTags trims, lower-cases and de-duplicates tags, keeping first-seen order
func NormalizeTags(field string, tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	if len(out) > MaxTags {
		return nil, ValidationError{Field: field, Message: fmt.Sprintf("at most %d entries allowed", MaxTags)}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
