package domain

import "fmt"

// Error types for consistent error handling across the tracker.

// ErrValidation indicates user input violates a precondition
// (non-positive amount, negative resulting goal balance, missing field).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrPersistence indicates the persistence collaborator failed a read or write.
type ErrPersistence struct {
	Collection string
	Op         string
	Err        error
}

func (e *ErrPersistence) Error() string {
	return fmt.Sprintf("persistence error [%s/%s]: %v", e.Collection, e.Op, e.Err)
}

func (e *ErrPersistence) Unwrap() error {
	return e.Err
}

// ErrInvalidGoal indicates a goal with a non-positive target amount.
type ErrInvalidGoal struct {
	GoalID string
	Target string
}

func (e *ErrInvalidGoal) Error() string {
	return fmt.Sprintf("invalid goal %s: target amount must be positive, got %s", e.GoalID, e.Target)
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrConflict indicates a concurrent write changed the record first.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrUnauthorized indicates a missing or invalid caller identity.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
