package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// PostgreSQL SQLSTATE codes the repositories care about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// Translate maps a pgx error onto an apperr kind. entity names the row type
// for user-facing messages ("clinic", "appointment").
func Translate(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(op, "%s not found", entity)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return &apperr.Error{Kind: apperr.KindConflict, Op: op, Message: entity + " already exists", Err: err}
		case codeForeignKeyViolation:
			// Deletes report "is still referenced"; inserts and updates report
			// a missing parent row.
			if strings.Contains(pgErr.Detail, "still referenced") {
				return &apperr.Error{Kind: apperr.KindConflict, Op: op, Message: entity + " is referenced by other records", Err: err}
			}
			return &apperr.Error{Kind: apperr.KindNotFound, Op: op, Message: "referenced record not found", Err: err}
		case codeCheckViolation:
			return &apperr.Error{Kind: apperr.KindValidation, Op: op, Message: entity + " violates a field constraint", Err: err}
		}
	}
	return apperr.Store(op, err)
}
