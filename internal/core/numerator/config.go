// Package numerator provides domain contracts for document auto-numbering.
package numerator

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultPadWidth is the zero-padded width of the sequence part.
const DefaultPadWidth = 6

// Config holds numbering configuration for one document family.
type Config struct {
	// Prefix added to all numbers (e.g., "FAC", "PAY-CHEQUE")
	Prefix string

	// IncludeYear adds year to the number and scopes the sequence to it
	IncludeYear bool

	// PadWidth is the minimum sequence width
	PadWidth int
}

// DefaultConfig returns the yearly, 6-digit configuration used by sales documents.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    DefaultPadWidth,
	}
}

// Period returns the sequence scope for the given moment ("2026" or "all").
func (c Config) Period(t time.Time) string {
	if c.IncludeYear {
		return strconv.Itoa(t.Year())
	}
	return "all"
}

// Format renders a sequence value: PREFIX-YYYY-000001.
func (c Config) Format(t time.Time, seq int64) string {
	width := c.PadWidth
	if width <= 0 {
		width = DefaultPadWidth
	}
	if c.IncludeYear {
		return fmt.Sprintf("%s-%d-%0*d", c.Prefix, t.Year(), width, seq)
	}
	return fmt.Sprintf("%s-%0*d", c.Prefix, width, seq)
}
