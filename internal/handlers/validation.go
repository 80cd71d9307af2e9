package handlers

import (
	"errors"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ParseValidationErrors converts validator errors to user-friendly format
func ParseValidationErrors(err error) []ValidationError {
	var result []ValidationError

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			result = append(result, ValidationError{
				Field:   lowerFirst(fieldError.Field()),
				Message: getErrorMessage(fieldError),
			})
		}
	}

	return result
}

// lowerFirst turns struct field names into their JSON spelling (RequestID -> requestID)
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must not exceed " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "alphanum":
		return fe.Field() + " must contain only letters and numbers"
	case "url":
		return "Invalid URL format"
	case "uuid":
		return fe.Field() + " must be a UUID"
	case "datetime":
		return fe.Field() + " must be a date in the form " + fe.Param()
	case "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "printascii":
		return fe.Field() + " must contain printable characters only"
	default:
		return fe.Field() + " is invalid"
	}
}
