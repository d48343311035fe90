package stock

import (
	"context"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/billease/billease/internal/shared"
)

func qty(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestFoldOpeningPurchaseSale(t *testing.T) {
	entries := []Entry{
		{Source: SourcePurchase, DocumentID: 1, Status: shared.StatusCompleted, Quantity: qty("50")},
		{Source: SourceSale, DocumentID: 2, Status: shared.StatusConfirmed, Quantity: qty("30")},
	}
	require.True(t, Fold(qty("100"), entries).Equal(qty("120")))
}

func TestFoldExcludesDraftPendingCancelled(t *testing.T) {
	entries := []Entry{
		{Source: SourcePurchase, Status: shared.StatusPending, Quantity: qty("40")},
		{Source: SourcePurchase, Status: shared.StatusCancelled, Quantity: qty("5")},
		{Source: SourceSale, Status: shared.StatusDraft, Quantity: qty("10")},
		{Source: SourceSale, Status: shared.StatusCancelled, Quantity: qty("7")},
		{Source: SourceSale, Status: shared.StatusPaid, Quantity: qty("1.5")},
		{Source: SourcePurchase, Status: shared.StatusPartiallyReceived, Quantity: qty("2.25")},
		{Source: SourceMovement, Quantity: qty("-3")},
	}
	require.Equal(t, "7.75", Fold(qty("10"), entries).StringFixed(2))
}

func TestFoldRoundsToTwoPlaces(t *testing.T) {
	entries := []Entry{{Source: SourceMovement, Quantity: qty("0.005")}}
	require.Equal(t, "1.01", Fold(qty("1"), entries).StringFixed(2))
}

func TestFoldMatchesIndependentSum(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	statuses := []shared.DocumentStatus{
		shared.StatusDraft, shared.StatusConfirmed, shared.StatusPartiallyPaid, shared.StatusPaid,
		shared.StatusCancelled, shared.StatusPending, shared.StatusPartiallyReceived, shared.StatusCompleted,
	}
	for run := 0; run < 200; run++ {
		opening := decimal.NewFromInt(int64(rng.Intn(500)))
		purchased, sold, adjusted := decimal.Zero, decimal.Zero, decimal.Zero
		var entries []Entry
		n := rng.Intn(30)
		for i := 0; i < n; i++ {
			q := decimal.New(int64(rng.Intn(10000)), -2)
			status := statuses[rng.Intn(len(statuses))]
			switch rng.Intn(3) {
			case 0:
				entries = append(entries, Entry{Source: SourcePurchase, Status: status, Quantity: q})
				if status == shared.StatusPartiallyReceived || status == shared.StatusCompleted {
					purchased = purchased.Add(q)
				}
			case 1:
				entries = append(entries, Entry{Source: SourceSale, Status: status, Quantity: q})
				if status == shared.StatusConfirmed || status == shared.StatusPartiallyPaid || status == shared.StatusPaid {
					sold = sold.Add(q)
				}
			default:
				if rng.Intn(2) == 0 {
					q = q.Neg()
				}
				entries = append(entries, Entry{Source: SourceMovement, Quantity: q})
				adjusted = adjusted.Add(q)
			}
		}
		want := opening.Add(purchased).Sub(sold).Add(adjusted)
		require.True(t, want.Equal(Fold(opening, entries)), "run %d: want %s got %s", run, want, Fold(opening, entries))
	}
}

func TestOnHandUnknownItem(t *testing.T) {
	repo := newMemoryRepo()
	_, err := OnHand(context.Background(), repo, 1, 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
