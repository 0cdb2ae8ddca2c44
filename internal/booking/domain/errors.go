package domain

import (
	"errors"
	"fmt"
)

// Sentinel kinds; match with errors.Is.
var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrGuardFailed       = errors.New("guard_failed")
	ErrConflict          = errors.New("conflict")
	ErrExternalFailure   = errors.New("external_failure")
)

// Guard failure codes.
const (
	GuardCodeEventNotPublished   = "event_not_published"
	GuardCodeCapacityExceeded    = "capacity_exceeded"
	GuardCodeInvalidPhone        = "invalid_phone"
	GuardCodeHoldExpired         = "hold_expired"
	GuardCodePaymentNotVerified  = "payment_not_verified"
	GuardCodePaymentAmountNotMet = "payment_amount_not_met"
	GuardCodeEventNotFinished    = "event_not_finished"
	GuardCodeActorNotAuthorized  = "actor_not_authorized"
	GuardCodeNoRefundablePayment = "no_refundable_payment"
)

// Error is a typed lifecycle failure. Kind is one of the sentinels above.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func NewNotFoundError(message string) *Error {
	return &Error{Kind: ErrNotFound, Message: message}
}

func NewInvalidTransitionError(message string) *Error {
	return &Error{Kind: ErrInvalidTransition, Message: message}
}

func NewGuardError(code, message string) *Error {
	return &Error{Kind: ErrGuardFailed, Code: code, Message: message}
}

func NewConflictError(message string) *Error {
	return &Error{Kind: ErrConflict, Message: message}
}

func NewExternalError(message string) *Error {
	return &Error{Kind: ErrExternalFailure, Message: message}
}

// Code extracts the guard or error code, if err carries one.
func Code(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code
	}
	return ""
}
