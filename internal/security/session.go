package security

import (
	"github.com/google/uuid"
)

// GenerateID creates a new UUID used for child profiles and request tracing
func GenerateID() string {
	return uuid.New().String()
}

// IsValidID reports whether id parses as a UUID
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
