package models

import (
	"errors"
	"fmt"
)

// ErrValidationRejected marks a candidate that failed an admission filter.
// It is counted, never surfaced.
var ErrValidationRejected = errors.New("candidate rejected")

// DecodeError is a malformed quoted-printable or base64 section. The raw text
// is kept and the scan continues.
type DecodeError struct {
	Encoding string
	Part     string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s part %q: %v", e.Encoding, e.Part, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ParseBoundaryError is an ambiguous message split in an mbox archive.
type ParseBoundaryError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseBoundaryError) Error() string {
	return fmt.Sprintf("ambiguous boundary at line %d (%s): %q", e.Line, e.Reason, e.Text)
}

// InvariantViolation is a broken data-quality invariant that must go to review.
type InvariantViolation struct {
	Invariant string
	Key       string
	Emails    []string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant %s violated for %s by %d contacts", e.Invariant, e.Key, len(e.Emails))
}

// MergeConflict records a disagreement between two sources for one field.
type MergeConflict struct {
	Email    string
	Field    string
	Kept     string
	Rejected string
	Reason   string
}

func (e *MergeConflict) Error() string {
	return fmt.Sprintf("merge conflict on %s.%s: kept %q over %q (%s)", e.Email, e.Field, e.Kept, e.Rejected, e.Reason)
}
