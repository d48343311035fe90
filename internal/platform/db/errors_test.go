package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/billease/billease/internal/shared"
)

func TestClassify(t *testing.T) {
	require.NoError(t, Classify("op", nil))

	err := Classify("items.Get", pgx.ErrNoRows)
	require.True(t, errors.Is(err, shared.ErrNotFound))
	require.ErrorIs(t, err, pgx.ErrNoRows)

	cases := map[string]*shared.Error{
		codeForeignKeyViolation:  shared.ErrReferentialIntegrity,
		codeUniqueViolation:      shared.ErrValidation,
		codeSerializationFailure: shared.ErrConcurrencyConflict,
		codeDeadlockDetected:     shared.ErrConcurrencyConflict,
		codeLockNotAvailable:     shared.ErrConcurrencyConflict,
	}
	for code, want := range cases {
		pgErr := &pgconn.PgError{Code: code, TableName: "items"}
		err := Classify("op", fmt.Errorf("exec: %w", pgErr))
		require.True(t, errors.Is(err, want), code)
	}

	plain := errors.New("network down")
	require.Equal(t, plain, Classify("op", plain))

	classified := shared.E(shared.KindInvalidTransition, "documents.Confirm", "document", 1)
	require.Same(t, classified, Classify("op", classified))
}
