package store

import (
	"fmt"
	"time"

	"ticketflow/internal/manifest"
)

// Kind classifies a store error so the pipeline can map it to the right
// review-queue reason without string matching.
type Kind string

const (
	KindForeignKey      Kind = "FOREIGN_KEY_ERROR"
	KindValidation      Kind = "VALIDATION_ERROR"
	KindDuplicateTicket Kind = "DUPLICATE_TICKET"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
)

// DuplicateMatch describes the surviving original of a duplicate ticket.
type DuplicateMatch struct {
	OriginalID     int64
	OriginalDate   time.Time
	OriginalFileID string
	DaysApart      int
	VendorMatched  bool // false when the original has no vendor recorded
}

// Error is the store's typed error. Exactly one of Manifest and Duplicate is
// populated for validation and duplicate kinds respectively.
type Error struct {
	Kind    Kind
	Message string

	Manifest  *manifest.Result
	Duplicate *DuplicateMatch

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
