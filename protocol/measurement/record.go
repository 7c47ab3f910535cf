package measurement

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Separator splits the key from the value in a measurement line
const Separator = ";"

// ErrNotFinite is the cause of a ValueError for NaN and infinite values
var ErrNotFinite = errors.New("value is not a finite number")

// Record is a single parsed measurement line
type Record struct {
	Key   string
	Value float64
}

// FormatError is returned when a line does not contain a key and a value field
type FormatError struct {
	Line string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed line %q: expected <key>%s<value>", e.Line, Separator)
}

// ValueError is returned when the value field is not a valid 64-bit float
type ValueError struct {
	Line  string
	Field string
	Err   error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid value %q in line %q: %v", e.Field, e.Line, e.Err)
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

// ParseLine splits a raw line on the first separator and parses the value.
// The whole remainder after the first separator is the value field.
// NaN and infinite values are rejected with a ValueError wrapping ErrNotFinite.
func ParseLine(line string) (Record, error) {
	key, field, found := strings.Cut(line, Separator)
	if !found || key == "" {
		return Record{}, &FormatError{Line: line}
	}

	value, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return Record{}, &ValueError{Line: line, Field: field, Err: err}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Record{}, &ValueError{Line: line, Field: field, Err: ErrNotFinite}
	}

	return Record{Key: key, Value: value}, nil
}
