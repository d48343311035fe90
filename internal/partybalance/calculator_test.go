package partybalance

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/billease/billease/internal/shared"
)

func amt(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type memorySource struct {
	accounts map[int64]Account
	entries  map[int64][]Entry
	locked   []int64
}

func newMemorySource() *memorySource {
	return &memorySource{accounts: map[int64]Account{}, entries: map[int64][]Entry{}}
}

func (m *memorySource) Account(_ context.Context, _ int64, partyID int64) (Account, error) {
	a, ok := m.accounts[partyID]
	if !ok {
		return Account{}, shared.E(shared.KindNotFound, "memory", "party", partyID)
	}
	return a, nil
}

func (m *memorySource) PartyEntries(_ context.Context, _ int64, partyID int64) ([]Entry, error) {
	return append([]Entry(nil), m.entries[partyID]...), nil
}

func (m *memorySource) LockParty(ctx context.Context, companyID, partyID int64) error {
	m.locked = append(m.locked, partyID)
	_, err := m.Account(ctx, companyID, partyID)
	return err
}

var day = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

func scenario() *memorySource {
	src := newMemorySource()
	src.accounts[1] = Account{PartyID: 1, Name: "Acme", OpeningBalance: amt("1000"), CreditLimit: amt("1500")}
	src.entries[1] = []Entry{
		{Kind: KindInvoice, DocumentID: 10, Number: "SI-1", Date: day, Status: shared.StatusPartiallyPaid, GrandTotal: amt("500"), Paid: amt("200")},
	}
	return src
}

func TestOutstandingOpeningPlusUnpaidInvoice(t *testing.T) {
	src := scenario()
	b, err := Outstanding(context.Background(), src, 1, 1)
	require.NoError(t, err)
	require.Equal(t, "1300.00", b.Outstanding.StringFixed(2))

	again, err := Outstanding(context.Background(), src, 1, 1)
	require.NoError(t, err)
	require.True(t, b.Outstanding.Equal(again.Outstanding))
}

func TestCreditNoteReducesOutstanding(t *testing.T) {
	src := scenario()
	src.entries[1] = append(src.entries[1], Entry{Kind: KindCreditNote, DocumentID: 11, Date: day.AddDate(0, 0, 1), Status: shared.StatusConfirmed, GrandTotal: amt("100")})
	b, err := Outstanding(context.Background(), src, 1, 1)
	require.NoError(t, err)
	require.Equal(t, "1200.00", b.Outstanding.StringFixed(2))
}

func TestUnpostedDocumentsIgnored(t *testing.T) {
	src := scenario()
	src.entries[1] = append(src.entries[1],
		Entry{Kind: KindInvoice, DocumentID: 12, Status: shared.StatusDraft, GrandTotal: amt("999")},
		Entry{Kind: KindInvoice, DocumentID: 13, Status: shared.StatusCancelled, GrandTotal: amt("999")},
		Entry{Kind: KindDebitNote, DocumentID: 14, Status: shared.StatusDraft, GrandTotal: amt("50")},
		Entry{Kind: KindDebitNote, DocumentID: 15, Status: shared.StatusConfirmed, GrandTotal: amt("25.5")},
	)
	b, err := Outstanding(context.Background(), src, 1, 1)
	require.NoError(t, err)
	require.Equal(t, "1325.50", b.Outstanding.StringFixed(2))
}

func TestOutstandingUnknownParty(t *testing.T) {
	_, err := Outstanding(context.Background(), newMemorySource(), 1, 9)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCheckCreditLimit(t *testing.T) {
	b := Balance{PartyID: 1, Outstanding: amt("1300"), CreditLimit: amt("1500")}
	require.NoError(t, CheckCreditLimit("test", b, amt("200")))

	err := CheckCreditLimit("test", b, amt("200.01"))
	require.ErrorIs(t, err, shared.ErrCreditLimitExceeded)
	var se *shared.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, []int64{1}, se.IDs)

	unlimited := Balance{PartyID: 1, Outstanding: amt("1300")}
	require.NoError(t, CheckCreditLimit("test", unlimited, amt("1000000")))
}

func TestEnsureWithinLimitLocksParty(t *testing.T) {
	src := scenario()
	err := EnsureWithinLimit(context.Background(), src, 1, 1, amt("300"))
	require.ErrorIs(t, err, shared.ErrCreditLimitExceeded)
	require.Equal(t, []int64{1}, src.locked)
}

func TestBuildStatementEndsAtOutstanding(t *testing.T) {
	src := scenario()
	src.entries[1] = append(src.entries[1],
		Entry{Kind: KindDebitNote, DocumentID: 20, Number: "DN-1", Date: day.AddDate(0, 0, 3), Status: shared.StatusConfirmed, GrandTotal: amt("40")},
		Entry{Kind: KindCreditNote, DocumentID: 21, Number: "CN-1", Date: day.AddDate(0, 0, 2), Status: shared.StatusConfirmed, GrandTotal: amt("100")},
		Entry{Kind: KindInvoice, DocumentID: 22, Number: "SI-2", Date: day, Status: shared.StatusDraft, GrandTotal: amt("70")},
	)
	acct := src.accounts[1]
	lines := BuildStatement(acct, src.entries[1])
	require.Len(t, lines, 4)
	require.Equal(t, "opening_balance", lines[0].Kind)
	require.Equal(t, "CN-1", lines[2].Number)
	require.Equal(t, "DN-1", lines[3].Number)

	b, err := Outstanding(context.Background(), src, 1, 1)
	require.NoError(t, err)
	require.True(t, b.Outstanding.Equal(lines[len(lines)-1].Balance))
}
