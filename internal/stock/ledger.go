package stock

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/billease/billease/internal/platform/money"
	"github.com/billease/billease/internal/shared"
)

// LedgerSource reads the rows the calculator folds over. Implementations must
// return NotFound for an unknown item.
type LedgerSource interface {
	ItemOpening(ctx context.Context, companyID, itemID int64) (Opening, error)
	ItemEntries(ctx context.Context, companyID, itemID int64) ([]Entry, error)
}

// Counts reports whether an entry contributes to stock on hand. Sales lines
// count once their invoice is posted; purchase lines once goods are received.
// Draft, pending and cancelled documents never count. Movements always count.
func Counts(e Entry) bool {
	switch e.Source {
	case SourcePurchase:
		return shared.IsReceived(e.Status)
	case SourceSale:
		return shared.IsPosted(e.Status)
	case SourceMovement:
		return true
	}
	return false
}

// Fold computes opening + purchased - sold + adjustments, rounded to the
// ledger precision.
func Fold(opening decimal.Decimal, entries []Entry) decimal.Decimal {
	total := opening
	for _, e := range entries {
		if !Counts(e) {
			continue
		}
		switch e.Source {
		case SourcePurchase, SourceMovement:
			total = total.Add(e.Quantity)
		case SourceSale:
			total = total.Sub(e.Quantity)
		}
	}
	return money.Round(total)
}

// OnHand recomputes stock for one item from the rows in src.
func OnHand(ctx context.Context, src LedgerSource, companyID, itemID int64) (decimal.Decimal, error) {
	opening, err := src.ItemOpening(ctx, companyID, itemID)
	if err != nil {
		return decimal.Zero, err
	}
	entries, err := src.ItemEntries(ctx, companyID, itemID)
	if err != nil {
		return decimal.Zero, err
	}
	return Fold(opening.OpeningStock, entries), nil
}
