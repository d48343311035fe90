package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/billease/billease/internal/shared"
)

// PostgreSQL SQLSTATE codes the store surfaces as domain kinds.
const (
	codeForeignKeyViolation  = "23503"
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// Classify maps store failures onto shared error kinds. Errors that already
// carry a kind, and unknown errors, are returned unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if shared.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.E(shared.KindNotFound, op, "row").Wrap(err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeForeignKeyViolation:
		return shared.E(shared.KindReferentialIntegrity, op, pgErr.TableName).Withf("constraint %s", pgErr.ConstraintName).Wrap(err)
	case codeUniqueViolation:
		return shared.E(shared.KindValidation, op, pgErr.TableName).Withf("duplicate value violates %s", pgErr.ConstraintName).Wrap(err)
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return shared.E(shared.KindConcurrencyConflict, op, pgErr.TableName).Withf("concurrent update lost").Wrap(err)
	}
	return err
}
