package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Common domain errors
	ErrNotFound               = errors.New("entity not found")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrSignatureVerification  = errors.New("webhook signature verification failed")
	ErrUnexpectedWebhookEvent = errors.New("unexpected event type for this webhook")
	ErrSourceNotChargeable    = errors.New("source is not in a chargeable state")
	ErrNotSubscriptionOwner   = errors.New("subscription belongs to a different account")
	ErrGatewayUnavailable     = errors.New("payment gateway unavailable")
	ErrOperationFailed        = errors.New("operation failed")
	ErrReadDatabaseRow        = errors.New("failed to read database row")
	ErrInvalidExecContext     = errors.New("invalid database execution context")
)

// FieldError is a single violated constraint on a checkout request field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError reports every violated field of a checkout request at once,
// so the caller sees the full list rather than the first failure.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return strings.Join(parts, ", ")
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidArgument).
func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns the error only when at least one field failed.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
