package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidState        = errors.New("operation not permitted in current state")
	ErrInsufficientCredit  = errors.New("amount exceeds outstanding balance")
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
	ErrNotFound            = errors.New("resource not found")
	ErrDatabase            = errors.New("database operation failed")
	ErrCache               = errors.New("cache operation failed")
)

// Error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeInsufficientCredit  = "INSUFFICIENT_CREDIT"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeCacheError          = "CACHE_ERROR"
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetail attaches a structured detail used by the API layer to render
// a precise message.
func (e *BusinessError) WithDetail(key string, value interface{}) *BusinessError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// As returns the BusinessError wrapped in err, if any.
func As(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func WrapValidation(field, message string) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		fmt.Sprintf("%s: %s", field, message),
		ErrValidation,
	).WithDetail("field", field)
}

func WrapOutOfRange(field string, value interface{}, min, max interface{}) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		fmt.Sprintf("%s must be between %v and %v, got %v", field, min, max, value),
		ErrValidation,
	).WithDetail("field", field).
		WithDetail("value", value).
		WithDetail("min", min).
		WithDetail("max", max)
}

func WrapInvalidState(entity, current, required string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidState,
		fmt.Sprintf("%s is %s, operation requires %s", entity, current, required),
		ErrInvalidState,
	).WithDetail("entity", entity).
		WithDetail("current_state", current).
		WithDetail("required_state", required)
}

func WrapInsufficientCredit(requested, available string) *BusinessError {
	return NewBusinessError(
		ErrCodeInsufficientCredit,
		fmt.Sprintf("Amount %s exceeds outstanding balance %s", requested, available),
		ErrInsufficientCredit,
	).WithDetail("requested", requested).
		WithDetail("available", available)
}

func WrapConcurrencyConflict(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrencyConflict,
		"concurrent modification, please retry",
		fmt.Errorf("%w: %v", ErrConcurrencyConflict, err),
	)
}

func WrapNotFound(entity, id string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("%s with ID %s not found", entity, id),
		ErrNotFound,
	).WithDetail("entity", entity).
		WithDetail("id", id)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		fmt.Errorf("%w: %v", ErrDatabase, err),
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		fmt.Errorf("%w: %v", ErrCache, err),
	)
}
