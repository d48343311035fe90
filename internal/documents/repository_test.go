package documents

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// The credit guard folds documents after locking the party row, so the
// transaction must see rows committed by the previous lock holder.
func TestDocumentTransactionsReadCommitted(t *testing.T) {
	require.Equal(t, pgx.ReadCommitted, txLevel)
}
