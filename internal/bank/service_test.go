package bank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/billease/billease/internal/shared"
)

type memoryStore struct {
	bank   []Transaction
	ledger []LedgerEntry
	nextID int64
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	snapshot := append([]Transaction(nil), m.bank...)
	next := m.nextID
	if err := fn(ctx, m); err != nil {
		m.bank = snapshot
		m.nextID = next
		return err
	}
	return nil
}

func (m *memoryStore) InsertTransaction(_ context.Context, t Transaction) (int64, error) {
	m.nextID++
	t.ID = m.nextID
	m.bank = append(m.bank, t)
	return t.ID, nil
}

func (m *memoryStore) OpenTransactions(_ context.Context, companyID int64, account string, _, _ time.Time) ([]Transaction, error) {
	var out []Transaction
	for _, t := range m.bank {
		if t.CompanyID == companyID && t.BankAccount == account && !t.Reconciled {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryStore) OpenLedger(context.Context, int64, time.Time, time.Time) ([]LedgerEntry, error) {
	matched := map[int64]bool{}
	for _, t := range m.bank {
		if t.MatchedLedgerID != nil {
			matched[*t.MatchedLedgerID] = true
		}
	}
	var out []LedgerEntry
	for _, l := range m.ledger {
		if !matched[l.ID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryStore) MarkReconciled(_ context.Context, _ int64, match Match) error {
	for i := range m.bank {
		if m.bank[i].ID != match.BankID {
			continue
		}
		if m.bank[i].Reconciled {
			return shared.E(shared.KindConcurrencyConflict, "memory", "bank_transaction", match.BankID)
		}
		at := match.ReconciledDate
		ledgerID := match.LedgerID
		m.bank[i].Reconciled = true
		m.bank[i].ReconciledDate = &at
		m.bank[i].MatchedLedgerID = &ledgerID
		return nil
	}
	return shared.E(shared.KindNotFound, "memory", "bank_transaction", match.BankID)
}

type recordingEnqueuer struct {
	companyID int64
	input     ReconcileInput
	calls     int
}

func (e *recordingEnqueuer) EnqueueReconcile(_ context.Context, companyID int64, in ReconcileInput) error {
	e.calls++
	e.companyID = companyID
	e.input = in
	return nil
}

var accountant = shared.Identity{UserID: 7, Role: shared.RoleAccountant, CompanyID: 1}

func newTestService(store *memoryStore, enq Enqueuer) *Service {
	svc := NewService(store, enq, nil, nil, nil, 0)
	svc.now = func() time.Time { return time.Date(2024, 4, 30, 15, 4, 0, 0, time.UTC) }
	return svc
}

func statement() ImportInput {
	return ImportInput{
		BankAccount: " HDFC-001 ",
		Transactions: []TransactionInput{
			{Date: day1, Amount: decimal.RequireFromString("500"), Type: Credit, Reference: "UTR-1"},
			{Date: day1, Amount: decimal.RequireFromString("500"), Type: Credit, Reference: "UTR-2"},
			{Date: day2, Amount: decimal.RequireFromString("777.77"), Type: Credit},
		},
	}
}

func TestImportThenReconcileMarksMatchedRows(t *testing.T) {
	store := &memoryStore{ledger: []LedgerEntry{
		ledgerRow(10, day1, "500", "UTR-1"),
		ledgerRow(11, day1, "500", "UTR-2"),
	}}
	svc := newTestService(store, nil)

	rows, err := svc.Import(context.Background(), accountant, statement())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "HDFC-001", rows[0].BankAccount)

	res, queued, err := svc.Reconcile(context.Background(), accountant, ReconcileInput{BankAccount: "HDFC-001"})
	require.NoError(t, err)
	require.False(t, queued)
	require.Len(t, res.Matches, 2)
	require.Len(t, res.UnmatchedBank, 1)
	require.Empty(t, res.UnmatchedLedger)

	wantDate := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
	for _, row := range store.bank[:2] {
		require.True(t, row.Reconciled)
		require.Equal(t, wantDate, *row.ReconciledDate)
	}
	require.False(t, store.bank[2].Reconciled)

	again, _, err := svc.Reconcile(context.Background(), accountant, ReconcileInput{BankAccount: "HDFC-001"})
	require.NoError(t, err)
	require.Empty(t, again.Matches)
	require.Len(t, again.UnmatchedBank, 1)
}

func TestReconcileDryRunLeavesRowsOpen(t *testing.T) {
	store := &memoryStore{ledger: []LedgerEntry{ledgerRow(10, day1, "500", "UTR-1")}}
	svc := newTestService(store, nil)
	_, err := svc.Import(context.Background(), accountant, statement())
	require.NoError(t, err)

	viewer := shared.Identity{UserID: 9, Role: shared.RoleUser, CompanyID: 1}
	res, _, err := svc.Reconcile(context.Background(), viewer, ReconcileInput{BankAccount: "HDFC-001", DryRun: true})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	for _, row := range store.bank {
		require.False(t, row.Reconciled)
	}

	_, _, err = svc.Reconcile(context.Background(), viewer, ReconcileInput{BankAccount: "HDFC-001"})
	require.True(t, errors.Is(err, shared.ErrForbidden))
}

func TestReconcileManualPairFailureRollsBack(t *testing.T) {
	store := &memoryStore{ledger: []LedgerEntry{ledgerRow(10, day1, "500", "UTR-1")}}
	svc := newTestService(store, nil)
	_, err := svc.Import(context.Background(), accountant, statement())
	require.NoError(t, err)

	_, _, err = svc.Reconcile(context.Background(), accountant, ReconcileInput{
		BankAccount: "HDFC-001",
		Manual:      []ManualPair{{BankID: 3, LedgerID: 10}},
	})
	require.True(t, errors.Is(err, shared.ErrValidation))
	for _, row := range store.bank {
		require.False(t, row.Reconciled)
	}
}

func TestReconcileAsyncEnqueues(t *testing.T) {
	enq := &recordingEnqueuer{}
	svc := newTestService(&memoryStore{}, enq)

	_, queued, err := svc.Reconcile(context.Background(), accountant, ReconcileInput{BankAccount: "HDFC-001", Async: true})
	require.NoError(t, err)
	require.True(t, queued)
	require.Equal(t, 1, enq.calls)
	require.Equal(t, int64(1), enq.companyID)
	require.Equal(t, "HDFC-001", enq.input.BankAccount)
}

func TestImportValidation(t *testing.T) {
	svc := newTestService(&memoryStore{}, nil)

	in := statement()
	in.Transactions[1].Amount = decimal.Zero
	_, err := svc.Import(context.Background(), accountant, in)
	require.True(t, errors.Is(err, shared.ErrValidation))

	in = statement()
	in.Transactions[0].Type = "sideways"
	_, err = svc.Import(context.Background(), accountant, in)
	require.True(t, errors.Is(err, shared.ErrValidation))

	_, err = svc.Import(context.Background(), accountant, ImportInput{BankAccount: "HDFC-001"})
	require.True(t, errors.Is(err, shared.ErrValidation))

	_, _, err = svc.Reconcile(context.Background(), accountant, ReconcileInput{BankAccount: "HDFC-001", From: day2, To: day1})
	require.True(t, errors.Is(err, shared.ErrValidation))
}
