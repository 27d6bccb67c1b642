package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewBatchID returns a random batch identifier.
func NewBatchID() string {
	return uuid.NewString()
}

// ValidBatchID reports whether s looks like an id from NewBatchID.
func ValidBatchID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}

// NewAccessKey returns a random 32 character hex key for stored credentials.
func NewAccessKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
