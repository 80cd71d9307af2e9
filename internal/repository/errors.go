package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations
const pgUniqueViolation = "23505"

// pgForeignKeyViolation is the SQLSTATE for foreign key violations
const pgForeignKeyViolation = "23503"

// pgInvalidTextRepresentation is raised when an id is not a valid UUID literal
const pgInvalidTextRepresentation = "22P02"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresentation
}

// notFound maps pgx.ErrNoRows and malformed ids to the application sentinel
// and leaves other errors alone
func notFound(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return apperrors.NotFoundError(resource)
	}
	return err
}
