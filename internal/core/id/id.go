// Package id generates the identifiers of sales, lines, movements and catalog rows.
// IDs are UUIDv7, so they sort by creation time and index well as primary keys.
package id

import (
	"github.com/google/uuid"
)

// ID is the identifier type of every persisted row.
type ID = uuid.UUID

// New returns a UUIDv7. It falls back to a random v4 when the clock read fails.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse validates and converts a path or body value.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns the zero ID.
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether v is the zero ID.
func IsNil(v ID) bool {
	return v == uuid.Nil
}
