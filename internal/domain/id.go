package domain

import "github.com/google/uuid"

// NewHandle generates a UUIDv7 string for new job handles.
func NewHandle() string {
	return uuid.Must(uuid.NewV7()).String()
}
