package kinship

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidInput is wrapped by every *InvalidInputError.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is wrapped by every *NotFoundError.
	ErrNotFound = errors.New("member not found")
)

// InvalidInputError reports a malformed serial number. It is a client error
// and never retried.
type InvalidInputError struct {
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid serNo %q: %s", e.Value, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

type NotFoundError struct {
	SerNo int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("member %d not found", e.SerNo)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InconsistentGraphError describes a data quality problem that was skipped.
// It is recovered internally and only logged.
type InconsistentGraphError struct {
	SerNo  int64
	Ref    int64
	Reason string
}

func (e *InconsistentGraphError) Error() string {
	if e.Ref != 0 {
		return fmt.Sprintf("inconsistent graph at member %d (ref %d): %s", e.SerNo, e.Ref, e.Reason)
	}
	return fmt.Sprintf("inconsistent graph at member %d: %s", e.SerNo, e.Reason)
}

// RuleNotFoundError records that no rule labelled a shape and the generation
// fallback was used instead.
type RuleNotFoundError struct {
	Shape        ShapeKey
	Via          string
	TargetGender Gender
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("no relation rule for shape %s (via %q, target %s)", e.Shape, e.Via, e.TargetGender)
}

// ParseSerNo validates a raw serial number before any lookup. Only plain
// positive base-10 integers are accepted.
func ParseSerNo(raw string) (int64, error) {
	if raw == "" {
		return 0, &InvalidInputError{Value: raw, Reason: "empty"}
	}
	if strings.TrimSpace(raw) != raw {
		return 0, &InvalidInputError{Value: raw, Reason: "surrounding whitespace"}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &InvalidInputError{Value: raw, Reason: "not an integer"}
	}
	if n <= 0 {
		return 0, &InvalidInputError{Value: raw, Reason: "must be positive"}
	}
	return n, nil
}
