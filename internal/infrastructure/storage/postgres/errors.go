package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"bizzplus/internal/core/apperror"
)

// SQLSTATE codes the server uses when it aborts a transaction.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"

	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"

	codeNumericOutOfRange = "22003"
)

// IsTransactionAbort reports whether err carries a SQLSTATE that means the
// database rolled the transaction back on its own.
func IsTransactionAbort(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled:
		return true
	}
	return false
}

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally restricted to one constraint name.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// classifyError converts raw driver errors into application errors.
// Application errors pass through untouched.
func classifyError(err error) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}
	if IsTransactionAbort(err) {
		return apperror.NewTransactionAbort(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperror.NewDuplicate(pgErr.TableName, pgErr.ConstraintName, pgErr.Detail).WithCause(err)
		case codeForeignKeyViolation:
			return apperror.NewValidation("referenced entity does not exist").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case codeCheckViolation:
			return apperror.NewValidation("value violates a constraint").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case codeNumericOutOfRange:
			return apperror.NewValidation("numeric value out of range").
				WithDetail("column", pgErr.ColumnName).
				WithCause(err)
		}
	}
	return err
}
