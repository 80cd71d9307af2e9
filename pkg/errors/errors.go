package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common application errors with proper types for error handling

var (
	// ErrValidation indicates missing or malformed input
	ErrValidation = errors.New("invalid request")

	// ErrNotFound indicates a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrExpired indicates a deadline has passed (distinct from not found)
	ErrExpired = errors.New("expired")

	// ErrRateLimited indicates the caller exceeded its request budget
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrUnauthorized indicates missing or invalid authentication
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyUsed indicates a single-use credential was already spent
	ErrAlreadyUsed = errors.New("already used")

	// ErrNotConsumed indicates a login token has not been confirmed yet
	ErrNotConsumed = errors.New("not consumed")

	// ErrConflict indicates a conflict with existing data
	ErrConflict = errors.New("conflict")

	// ErrDependency indicates a persistence or mail dispatch failure
	ErrDependency = errors.New("dependency failure")
)

// Error codes returned in the JSON error envelope
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeExpired        = "EXPIRED"
	CodeRateLimit      = "RATE_LIMIT"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeAlreadyUsed    = "ALREADY_USED"
	CodeNotConsumed    = "NOT_CONSUMED"
	CodeConflict       = "CONFLICT"
	CodeInternal       = "INTERNAL_ERROR"
)

type classification struct {
	target error
	status int
	code   string
}

// Order matters: the first matching sentinel wins.
var classifications = []classification{
	{ErrValidation, http.StatusBadRequest, CodeInvalidRequest},
	{ErrNotFound, http.StatusNotFound, CodeNotFound},
	{ErrExpired, http.StatusBadRequest, CodeExpired},
	{ErrRateLimited, http.StatusTooManyRequests, CodeRateLimit},
	{ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{ErrAlreadyUsed, http.StatusConflict, CodeAlreadyUsed},
	{ErrNotConsumed, http.StatusConflict, CodeNotConsumed},
	{ErrConflict, http.StatusConflict, CodeConflict},
	{ErrDependency, http.StatusInternalServerError, CodeInternal},
}

// Classify maps an error to its HTTP status and envelope code.
// Unknown errors are reported as internal errors.
func Classify(err error) (int, string) {
	for _, c := range classifications {
		if errors.Is(err, c.target) {
			return c.status, c.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// ValidationError creates a validation error with context
func ValidationError(field, reason string) error {
	return fmt.Errorf("%s: %s: %w", field, reason, ErrValidation)
}

// NotFoundError creates a not found error with context
func NotFoundError(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// DependencyError wraps a failure of an external collaborator
func DependencyError(operation string, err error) error {
	return fmt.Errorf("%s: %w: %w", operation, ErrDependency, err)
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}
