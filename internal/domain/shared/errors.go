// Package shared contains common domain types, errors and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// Infrastructure errors
	ErrInternal           = errors.New("internal error")
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "matching", "profile", "user"
	Op      string // Operation that failed, e.g., "Create", "Respond"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// User domain errors
var (
	ErrUserNotFound    = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUserNotActive   = NewDomainError("user", "CheckStatus", ErrInvalidState, "user is not active")
	ErrInvalidUserID   = NewDomainError("user", "Validate", ErrInvalidID, "invalid user ID")
	ErrInvalidGender   = NewDomainError("user", "Validate", ErrInvalidInput, "invalid gender")
	ErrUsersAreBlocked = NewDomainError("user", "CheckBlock", ErrInvalidState, "users have a block relationship")
)

// Profile domain errors
var (
	ErrVectorNotFound    = NewDomainError("profile", "Find", ErrNotFound, "profile vector not found")
	ErrVectorInvalid     = NewDomainError("profile", "Validate", ErrInvalidEntity, "profile vector failed consistency check")
	ErrIncompleteBattery = NewDomainError("profile", "Validate", ErrInvalidInput, "questionnaire battery is incomplete")
	ErrInvalidLikert     = NewDomainError("profile", "Validate", ErrValueOutOfRange, "likert answer must be between 1 and 5")
)

// Matching domain errors
var (
	ErrProposalNotFound   = NewDomainError("matching", "Find", ErrNotFound, "proposal not found")
	ErrBatchAlreadyExists = NewDomainError("matching", "CreateBatch", ErrAlreadyExists, "batch already exists for this round")
	ErrProposalTerminal   = NewDomainError("matching", "Respond", ErrInvalidState, "proposal is in a terminal state")
	ErrInvalidWeekKey     = NewDomainError("matching", "Validate", ErrInvalidFormat, "malformed week key")
	ErrInvalidRound       = NewDomainError("matching", "Validate", ErrInvalidInput, "invalid round")
	ErrInvalidAction      = NewDomainError("matching", "Respond", ErrInvalidInput, "invalid response action")
	ErrInvalidScore       = NewDomainError("matching", "Validate", ErrValueOutOfRange, "score must be between 0 and 100")
)

// External service errors
var (
	ErrConversationService = NewDomainError("conversation", "EnsureChannel", ErrExternalService, "conversation service call failed")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsInvalidState checks if the error is an invalid-state error.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrStateTransition)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsRetryable checks if the operation can be retried. Retrying the matching
// write paths is always safe because of the batch/proposal idempotency
// guarantees.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
