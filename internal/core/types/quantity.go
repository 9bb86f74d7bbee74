package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Quantity is a fixed-point quantity with 4 decimal places (scale = 1e4).
// Stored as a scaled BIGINT so counters can be incremented atomically in SQL.
type Quantity int64

const QuantityScale int64 = 10_000

const quantityExp = -4

// NewQuantity returns a whole-unit quantity.
func NewQuantity(units int64) Quantity { return Quantity(units * QuantityScale) }

// NewQuantityFromFloat64 rounds v to the quantity scale.
func NewQuantityFromFloat64(v float64) Quantity {
	return Quantity(math.Round(v * float64(QuantityScale)))
}

// NewQuantityFromDecimal truncates d to the quantity scale.
func NewQuantityFromDecimal(d decimal.Decimal) Quantity {
	return Quantity(d.Shift(-quantityExp).Truncate(0).IntPart())
}

// ParseQuantity parses a decimal string, rejecting non-finite input.
func ParseQuantity(s string) (Quantity, error) {
	return parseQuantityString(s)
}

func (q Quantity) Int64Scaled() int64 { return int64(q) }

func (q Quantity) Float64() float64 { return float64(q) / float64(QuantityScale) }

// Decimal returns the exact decimal value of q.
func (q Quantity) Decimal() decimal.Decimal { return decimal.New(int64(q), quantityExp) }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Neg() Quantity { return -q }

// String returns a decimal string with 4 fractional digits.
func (q Quantity) String() string {
	v := int64(q)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%04d", sign, v/QuantityScale, v%QuantityScale)
}

// MarshalJSON encodes Quantity as a JSON number, preserving 4 digits.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	s := string(data)
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	parsed, err := parseQuantityString(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func parseQuantityString(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse quantity: %w", err)
		}
		if math.IsInf(f, 0) || math.IsNaN(f) || math.Abs(f) > float64(math.MaxInt64/QuantityScale) {
			return 0, fmt.Errorf("quantity out of range: %s", s)
		}
		return NewQuantityFromFloat64(f), nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse quantity: %w", err)
	}
	if d.Abs().GreaterThan(decimal.NewFromInt(math.MaxInt64 / QuantityScale)) {
		return 0, fmt.Errorf("quantity out of range: %s", s)
	}
	return NewQuantityFromDecimal(d), nil
}

// Value stores the scaled integer.
func (q Quantity) Value() (driver.Value, error) {
	return int64(q), nil
}

// Scan reads a scaled BIGINT column.
func (q *Quantity) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*q = 0
	case int64:
		*q = Quantity(v)
	case int32:
		*q = Quantity(v)
	default:
		return fmt.Errorf("scan quantity: unsupported type %T", src)
	}
	return nil
}
