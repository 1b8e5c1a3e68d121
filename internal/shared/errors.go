package shared

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrValidation marks input rejected before any persistence.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock is returned when a sale exceeds the live stock quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrPersistence wraps store failures translated for the caller.
	ErrPersistence = errors.New("persistence failure")
	// ErrPartialFailure signals that the primary record was saved but a follow-up step failed.
	ErrPartialFailure = errors.New("saved with follow-up failures")
)

// ValidationError carries the offending field alongside a readable message.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// ValidationErrors aggregates several field failures; the first one is reported as the message.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e))
	for _, v := range e {
		parts = append(parts, v.Error())
	}
	return strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrValidation.
func (e ValidationErrors) Unwrap() error { return ErrValidation }

// PersistenceError holds a user-facing message for a failed store operation.
type PersistenceError struct {
	Op      string
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap exposes both the kind and the underlying cause.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// TranslatePgError converts low level PostgreSQL errors into PersistenceError.
// Errors that already carry a domain kind are returned untouched.
func TranslatePgError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrPersistence) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &PersistenceError{Op: op, Message: "a record with the same unique value already exists", Err: err}
		case "23503":
			return &PersistenceError{Op: op, Message: "the record is referenced by, or refers to, a missing record", Err: err}
		case "23514":
			return &PersistenceError{Op: op, Message: "the value violates a stored constraint", Err: err}
		}
	}
	return &PersistenceError{Op: op, Message: "the data store rejected the operation", Err: err}
}

// FollowUp describes a secondary step that failed after the primary record committed.
type FollowUp struct {
	Step      string `json:"step"`
	ProductID *int64 `json:"product_id,omitempty"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// PartialFailure reports follow-ups needing manual attention for a saved record.
type PartialFailure struct {
	RecordID  int64
	FollowUps []FollowUp
}

func (e *PartialFailure) Error() string {
	steps := make([]string, 0, len(e.FollowUps))
	for _, f := range e.FollowUps {
		steps = append(steps, fmt.Sprintf("%s (%s)", f.Step, f.Message))
	}
	return fmt.Sprintf("record %d saved, follow-up failed: %s", e.RecordID, strings.Join(steps, ", "))
}

// Unwrap lets errors.Is match ErrPartialFailure.
func (e *PartialFailure) Unwrap() error { return ErrPartialFailure }

// UserSafeMessage returns a message suitable for display.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var persist *PersistenceError
	if errors.As(err, &persist) {
		return persist.Message
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrPartialFailure):
		return err.Error()
	}
	return "unexpected error"
}
