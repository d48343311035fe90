package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type captureExec struct {
	args []any
	err  error
}

func (c *captureExec) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	c.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), c.err
}

func TestAuditLoggerRecord(t *testing.T) {
	exec := &captureExec{}
	fixed := time.Date(2024, 4, 1, 9, 0, 0, 0, time.FixedZone("IST", 19800))
	l := &AuditLogger{db: exec, now: func() time.Time { return fixed }}

	actor := Identity{UserID: 3, Role: RoleAccountant, CompanyID: 9}
	require.NoError(t, l.Record(context.Background(), AuditLog{Actor: actor, Action: "document:confirm", Entity: "sales_invoice", EntityID: 12}))
	require.Len(t, exec.args, 8)
	require.Equal(t, int64(3), exec.args[0])
	require.Equal(t, "accountant", exec.args[1])
	require.Equal(t, int64(9), exec.args[2])
	require.Equal(t, []byte("{}"), exec.args[6])
	require.Equal(t, fixed.UTC(), exec.args[7])

	err := l.Record(context.Background(), AuditLog{Actor: actor, Entity: "sales_invoice"})
	require.True(t, errors.Is(err, ErrValidation))

	exec.err = errors.New("conn closed")
	require.ErrorIs(t, l.Record(context.Background(), AuditLog{Action: "a", Entity: "e"}), exec.err)

	var nilLogger *AuditLogger
	require.Error(t, nilLogger.Record(context.Background(), AuditLog{Action: "a", Entity: "e"}))
	require.Error(t, NewAuditLogger(nil).Record(context.Background(), AuditLog{Action: "a", Entity: "e"}))
}
