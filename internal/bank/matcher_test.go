package bank

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/billease/billease/internal/shared"
)

var (
	day1 = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	day2 = day1.AddDate(0, 0, 1)
	asOf = time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
)

func bankRow(id int64, date time.Time, amount, ref string) Transaction {
	return Transaction{ID: id, Date: date, Amount: decimal.RequireFromString(amount), Type: Credit, Reference: ref}
}

func ledgerRow(id int64, date time.Time, amount, ref string) LedgerEntry {
	return LedgerEntry{ID: id, Date: date, Amount: decimal.RequireFromString(amount), Type: Credit, Reference: ref}
}

func opts() Options {
	return Options{DateTolerance: 72 * time.Hour, AsOf: asOf}
}

func TestReconcileMatchesReferencesAndLeavesUniqueAmountOpen(t *testing.T) {
	bank := []Transaction{
		bankRow(1, day1, "500", "UTR-1"),
		bankRow(2, day1, "500", "UTR-2"),
		bankRow(3, day2, "777.77", ""),
	}
	ledger := []LedgerEntry{
		ledgerRow(10, day1, "500", "utr-2 "),
		ledgerRow(11, day1, "500", "UTR-1"),
	}

	res, err := Reconcile(bank, ledger, opts())
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)
	require.Equal(t, int64(1), res.Matches[0].BankID)
	require.Equal(t, int64(11), res.Matches[0].LedgerID)
	require.Equal(t, int64(2), res.Matches[1].BankID)
	require.Equal(t, int64(10), res.Matches[1].LedgerID)
	for _, m := range res.Matches {
		require.Equal(t, TierReference, m.Tier)
		require.Equal(t, asOf, m.ReconciledDate)
	}
	require.Len(t, res.UnmatchedBank, 1)
	require.Equal(t, int64(3), res.UnmatchedBank[0].ID)
	require.Empty(t, res.UnmatchedLedger)
	require.Empty(t, res.Candidates)
}

func TestReconcileSameAmountSameDayIsCandidate(t *testing.T) {
	bank := []Transaction{bankRow(1, day1, "500", ""), bankRow(2, day1, "500", "")}
	ledger := []LedgerEntry{ledgerRow(10, day1, "500", ""), ledgerRow(11, day1, "500", "")}

	res, err := Reconcile(bank, ledger, opts())
	require.NoError(t, err)
	require.Empty(t, res.Matches)
	require.Len(t, res.Candidates, 2)
	require.Equal(t, []int64{10, 11}, res.Candidates[0].LedgerIDs)
	require.Len(t, res.UnmatchedLedger, 2)
}

func TestReconcileDateWindow(t *testing.T) {
	bank := []Transaction{bankRow(1, day1.AddDate(0, 0, 3), "250", "")}

	res, err := Reconcile(bank, []LedgerEntry{ledgerRow(10, day1, "250", "")}, opts())
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	require.Equal(t, TierDate, res.Matches[0].Tier)

	res, err = Reconcile(bank, []LedgerEntry{ledgerRow(10, day1.AddDate(0, 0, -1), "250", "")}, opts())
	require.NoError(t, err)
	require.Empty(t, res.Matches)
	require.Empty(t, res.Candidates)
	require.Len(t, res.UnmatchedBank, 1)
}

func TestReconcileNeverMatchesAcrossDirections(t *testing.T) {
	debit := bankRow(1, day1, "100", "REF")
	debit.Type = Debit

	res, err := Reconcile([]Transaction{debit}, []LedgerEntry{ledgerRow(10, day1, "100", "REF")}, opts())
	require.NoError(t, err)
	require.Empty(t, res.Matches)
}

func TestReconcileManualPairsResolveAmbiguity(t *testing.T) {
	bank := []Transaction{bankRow(1, day1, "500", ""), bankRow(2, day1, "500", "")}
	ledger := []LedgerEntry{ledgerRow(10, day1, "500", ""), ledgerRow(11, day1, "500", "")}
	o := opts()
	o.Manual = []ManualPair{{BankID: 1, LedgerID: 11}}

	res, err := Reconcile(bank, ledger, o)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	require.Equal(t, TierManual, res.Matches[0].Tier)
	require.Equal(t, int64(11), res.Matches[0].LedgerID)
	require.Len(t, res.Candidates, 1)
	require.Equal(t, int64(2), res.Candidates[0].BankID)
	require.Equal(t, []int64{10}, res.Candidates[0].LedgerIDs)
}

func TestReconcileManualPairErrors(t *testing.T) {
	bank := []Transaction{bankRow(1, day1, "500", "R"), bankRow(2, day1, "90", "")}
	ledger := []LedgerEntry{ledgerRow(10, day1, "500", "R"), ledgerRow(11, day1, "80", "")}

	o := opts()
	o.Manual = []ManualPair{{BankID: 99, LedgerID: 10}}
	_, err := Reconcile(bank, ledger, o)
	require.True(t, errors.Is(err, shared.ErrNotFound))

	o.Manual = []ManualPair{{BankID: 1, LedgerID: 10}}
	_, err = Reconcile(bank, ledger, o)
	require.True(t, errors.Is(err, shared.ErrValidation))

	o.Manual = []ManualPair{{BankID: 2, LedgerID: 11}}
	_, err = Reconcile(bank, ledger, o)
	require.True(t, errors.Is(err, shared.ErrValidation))
}
