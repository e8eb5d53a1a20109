package idhash

import "github.com/google/uuid"

// NewRunID returns a fresh random identifier for a sweep run.
func NewRunID() string {
	return uuid.NewString()
}

// IsRunID reports whether s parses as a run identifier.
func IsRunID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
