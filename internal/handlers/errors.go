package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
)

// ErrorBody is the error half of the response envelope
type ErrorBody struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Details []ValidationError `json:"details,omitempty"`
}

// ErrorResponse is the failure envelope shared by every endpoint
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError classifies err and writes the envelope. Internal failures never
// expose their cause to the client.
func respondError(c *gin.Context, err error) {
	attachError(c, err)

	status, code := apperrors.Classify(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "Something went wrong. Please try again."
	}

	c.JSON(status, ErrorResponse{
		Error: ErrorBody{Message: message, Code: code},
	})
}

// respondBindError reports a request body or query that failed binding
func respondBindError(c *gin.Context, err error) {
	attachError(c, err)

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: ErrorBody{Message: "Request body too large", Code: apperrors.CodeInvalidRequest},
		})
		return
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorBody{
			Message: "Validation failed",
			Code:    apperrors.CodeInvalidRequest,
			Details: ParseValidationErrors(err),
		},
	})
}

// respondUnauthorized is used by API handlers reached without a session
func respondUnauthorized(c *gin.Context) {
	respondError(c, apperrors.ErrUnauthorized)
}
