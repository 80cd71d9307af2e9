package repository

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"no rows", pgx.ErrNoRows, "NOT_FOUND"},
		{"malformed uuid", fmt.Errorf("failed to delete ingredient: %w", &pgconn.PgError{Code: "22P02"}), "NOT_FOUND"},
		{"unique violation", &pgconn.PgError{Code: "23505"}, "INTERNAL_ERROR"},
		{"connection failure", errors.New("connection refused"), "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, code := apperrors.Classify(notFound(tt.err, "ingredient"))
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestNotFound_MalformedIDIs404(t *testing.T) {
	err := notFound(&pgconn.PgError{Code: pgInvalidTextRepresentation}, "meal plan")

	status, _ := apperrors.Classify(err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
