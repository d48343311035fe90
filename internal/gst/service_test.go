package gst

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/billease/billease/internal/shared"
)

type memoryStore struct {
	companyGSTIN string
	records      []Record
	invoices     []InvoiceRef
	uncaptured   []Invoice
	nextID       int64
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	snapshot := append([]Record(nil), m.records...)
	if err := fn(ctx, m); err != nil {
		m.records = snapshot
		return err
	}
	return nil
}

func (m *memoryStore) CompanyGSTIN(context.Context, int64) (string, error) { return m.companyGSTIN, nil }

func (m *memoryStore) InsertRecord(_ context.Context, rec Record) (int64, error) {
	m.nextID++
	rec.ID = m.nextID
	m.records = append(m.records, rec)
	return rec.ID, nil
}

func (m *memoryStore) RecordByInvoice(_ context.Context, _ int64, invoiceID int64) (Record, error) {
	for _, r := range m.records {
		if r.InvoiceID == invoiceID {
			return r, nil
		}
	}
	return Record{}, shared.E(shared.KindNotFound, "memory", "gstr1", invoiceID)
}

func (m *memoryStore) DeleteRecord(_ context.Context, id int64) error {
	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memoryStore) PeriodRecords(_ context.Context, _ int64, period string) ([]Record, error) {
	var out []Record
	for _, r := range m.records {
		if r.Period == period {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) PeriodInvoices(context.Context, int64, shared.FilingPeriod) ([]InvoiceRef, error) {
	return m.invoices, nil
}

func (m *memoryStore) CompaniesWithUncaptured(ctx context.Context, period shared.FilingPeriod) ([]int64, error) {
	seen := map[int64]bool{}
	var ids []int64
	invoices, _ := m.UncapturedInvoices(ctx, 0, period)
	for _, inv := range invoices {
		if !seen[inv.CompanyID] {
			seen[inv.CompanyID] = true
			ids = append(ids, inv.CompanyID)
		}
	}
	return ids, nil
}

func (m *memoryStore) UncapturedInvoices(context.Context, int64, shared.FilingPeriod) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.uncaptured {
		if _, err := m.RecordByInvoice(context.Background(), inv.CompanyID, inv.InvoiceID); err != nil {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memoryStore) MarkFiled(_ context.Context, _ int64, period string) (int64, error) {
	var n int64
	for i := range m.records {
		if m.records[i].Period == period && m.records[i].Status == StatusDraft {
			m.records[i].Status = StatusFiled
			n++
		}
	}
	return n, nil
}

var (
	controller = shared.Identity{UserID: 2, Role: shared.RoleController, CompanyID: 1}
	april      = time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
)

func aprilStore() *memoryStore {
	st := &memoryStore{companyGSTIN: "29ABCDE1234F1Z5"}
	st.uncaptured = []Invoice{
		{CompanyID: 1, InvoiceID: 1, InvoiceNo: "SI-1", InvoiceDate: april, PartyGSTIN: "27PQRDE1234F1Z5", TaxableValue: amt("1000"), TaxAmount: amt("180")},
		{CompanyID: 1, InvoiceID: 2, InvoiceNo: "SI-2", InvoiceDate: april, PartyGSTIN: "29PQRDE1234F1Z5", TaxableValue: amt("500"), TaxAmount: amt("90")},
	}
	st.invoices = []InvoiceRef{{ID: 1, Status: shared.StatusConfirmed}, {ID: 2, Status: shared.StatusPaid}}
	return st
}

func TestCompileThenFile(t *testing.T) {
	st := aprilStore()
	svc := NewService(st, nil, nil, nil, nil)
	ctx := context.Background()

	n, err := svc.Compile(ctx, 1, "04-2024")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = svc.Compile(ctx, 1, "04-2024")
	require.NoError(t, err)
	require.Zero(t, n)

	sum, err := svc.Summary(ctx, controller, "04-2024")
	require.NoError(t, err)
	require.Equal(t, "180.00", sum.IGST.StringFixed(2))
	require.Equal(t, "45.00", sum.CGST.StringFixed(2))
	require.Equal(t, "270.00", sum.TotalTax.StringFixed(2))

	filed, err := svc.File(ctx, controller, "04-2024")
	require.NoError(t, err)
	require.Equal(t, StatusFiled, filed.Status)

	_, err = svc.File(ctx, controller, "04-2024")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestCompileAllAndCompileFor(t *testing.T) {
	st := aprilStore()
	svc := NewService(st, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.CompileFor(ctx, shared.Identity{Role: shared.RoleManager, CompanyID: 1}, "04-2024")
	require.ErrorIs(t, err, shared.ErrForbidden)

	n, err := svc.CompileAll(ctx, "04-2024")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = svc.CompileFor(ctx, controller, "04-2024")
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = svc.CompileAll(ctx, "13-2024")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestFileRejectsDraftInvoice(t *testing.T) {
	st := aprilStore()
	svc := NewService(st, nil, nil, nil, nil)
	ctx := context.Background()
	_, err := svc.Compile(ctx, 1, "04-2024")
	require.NoError(t, err)

	st.invoices = append(st.invoices, InvoiceRef{ID: 3, Status: shared.StatusDraft})
	_, err = svc.File(ctx, controller, "04-2024")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	for _, r := range st.records {
		require.Equal(t, StatusDraft, r.Status)
	}
}

func TestFileRequiresLedgerRole(t *testing.T) {
	svc := NewService(aprilStore(), nil, nil, nil, nil)
	_, err := svc.File(context.Background(), shared.Identity{Role: shared.RoleManager, CompanyID: 1}, "04-2024")
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Summary(context.Background(), controller, "2024-04")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestFileHeldLockIsConflict(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	st := aprilStore()
	locker := shared.NewLocker(rdb, time.Minute)
	svc := NewService(st, locker, nil, nil, nil)
	ctx := context.Background()
	_, err := svc.Compile(ctx, 1, "04-2024")
	require.NoError(t, err)

	require.NoError(t, mr.Set(shared.FilingLockKey(1, "04-2024"), "other-replica"))
	_, err = svc.File(ctx, controller, "04-2024")
	require.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	mr.Del(shared.FilingLockKey(1, "04-2024"))
	_, err = svc.File(ctx, controller, "04-2024")
	require.NoError(t, err)
}

func TestWithdraw(t *testing.T) {
	st := aprilStore()
	ctx := context.Background()
	rec, err := Capture(ctx, st, st.uncaptured[0])
	require.NoError(t, err)
	require.Equal(t, "04-2024", rec.Period)

	require.NoError(t, Withdraw(ctx, st, 1, 1))
	require.Empty(t, st.records)
	require.NoError(t, Withdraw(ctx, st, 1, 1))

	_, err = Capture(ctx, st, st.uncaptured[1])
	require.NoError(t, err)
	st.records[0].Status = StatusFiled
	require.ErrorIs(t, Withdraw(ctx, st, 1, 2), shared.ErrInvalidTransition)
}

func TestFiledPeriodStaysFiled(t *testing.T) {
	st := aprilStore()
	svc := NewService(st, nil, nil, nil, nil)
	ctx := context.Background()
	_, err := svc.Compile(ctx, 1, "04-2024")
	require.NoError(t, err)
	_, err = svc.File(ctx, controller, "04-2024")
	require.NoError(t, err)

	late := Invoice{CompanyID: 1, InvoiceID: 3, InvoiceNo: "SI-3", InvoiceDate: april, TaxableValue: amt("200"), TaxAmount: amt("36")}
	_, err = Capture(ctx, st, late)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	st.uncaptured = append(st.uncaptured, late)
	_, err = svc.Compile(ctx, 1, "04-2024")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	require.Len(t, st.records, 2)

	sum, err := svc.Summary(ctx, controller, "04-2024")
	require.NoError(t, err)
	require.Equal(t, StatusFiled, sum.Status)
}
