package domain

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError indicates malformed or semantically invalid input. It is
// always rejected before any persistence happens.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError creates a ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// BookingWindow describes one occupied interval, used to report conflicts
// back to the client in a displayable form.
type BookingWindow struct {
	Ref  string    `json:"ref"`
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ConflictError indicates the requested stay overlaps one or more active
// bookings. Windows carries every conflicting interval.
type ConflictError struct {
	Message string
	Windows []BookingWindow
}

func (e *ConflictError) Error() string { return e.Message }

// NewConflictError creates a ConflictError with the conflicting windows.
func NewConflictError(message string, windows []BookingWindow) *ConflictError {
	return &ConflictError{Message: message, Windows: windows}
}

// InvalidTransitionError indicates a booking state transition that the state
// machine does not permit. The booking is left unchanged.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// NewInvalidTransitionError creates an InvalidTransitionError.
func NewInvalidTransitionError(from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}

// NotCancellableError indicates a cancellation attempt outside the
// cancellation window or from an ineligible status.
type NotCancellableError struct {
	Reason string
}

func (e *NotCancellableError) Error() string { return e.Reason }

// NewNotCancellableError creates a NotCancellableError.
func NewNotCancellableError(reason string) *NotCancellableError {
	return &NotCancellableError{Reason: reason}
}

// NotFoundError indicates a referenced resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFoundError creates a NotFoundError for the given resource.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ErrRaceRetryable marks storage-level collisions (duplicate booking number,
// optimistic lock failure) that the caller should retry internally rather
// than surface.
var ErrRaceRetryable = errors.New("retryable storage race")

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
