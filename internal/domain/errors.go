package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrOwnerNotReady     = errors.New("owner payout account cannot accept charges")
	ErrNotHeld           = errors.New("escrow is not held")
	ErrIntentMismatch    = errors.New("payment intent does not match the recorded intent")
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrExternalService   = errors.New("external service error")
	ErrRateLimited       = errors.New("rate limit exceeded")
)

// TransitionError reports an illegal booking status change.
type TransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ExternalError wraps a failed payment processor (or other remote) call.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ExternalError) Is(target error) bool {
	return target == ErrExternalService
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// External wraps err as an ExternalError for operation op.
func External(op string, err error) error {
	return &ExternalError{Op: op, Err: err}
}

// Invalid returns a validation error with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns a not-found error naming the entity.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}
