package partybalance

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/billease/billease/internal/platform/money"
	"github.com/billease/billease/internal/shared"
)

// LedgerSource reads the rows the calculator folds over. Account must return
// NotFound for an unknown party.
type LedgerSource interface {
	Account(ctx context.Context, companyID, partyID int64) (Account, error)
	PartyEntries(ctx context.Context, companyID, partyID int64) ([]Entry, error)
}

// GuardSource is a LedgerSource that can hold the party row for the rest of
// the transaction.
type GuardSource interface {
	LedgerSource
	LockParty(ctx context.Context, companyID, partyID int64) error
}

// effect returns the signed contribution of an entry to the outstanding
// balance. Only posted documents contribute.
func effect(e Entry) decimal.Decimal {
	if !shared.IsPosted(e.Status) {
		return decimal.Zero
	}
	switch e.Kind {
	case KindInvoice:
		return e.GrandTotal.Sub(e.Paid)
	case KindCreditNote:
		return e.GrandTotal.Neg()
	case KindDebitNote:
		return e.GrandTotal
	}
	return decimal.Zero
}

// Fold computes opening + unpaid invoices - credit notes + debit notes.
func Fold(opening decimal.Decimal, entries []Entry) decimal.Decimal {
	total := opening
	for _, e := range entries {
		total = total.Add(effect(e))
	}
	return money.Round(total)
}

// Outstanding recomputes the balance of one party from the rows in src.
func Outstanding(ctx context.Context, src LedgerSource, companyID, partyID int64) (Balance, error) {
	acct, err := src.Account(ctx, companyID, partyID)
	if err != nil {
		return Balance{}, err
	}
	entries, err := src.PartyEntries(ctx, companyID, partyID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{PartyID: partyID, Outstanding: Fold(acct.OpeningBalance, entries), CreditLimit: acct.CreditLimit}, nil
}

// CheckCreditLimit rejects an addition that would push outstanding past the
// party's limit. A limit of zero or less means unlimited.
func CheckCreditLimit(op string, b Balance, addition decimal.Decimal) error {
	if !b.CreditLimit.IsPositive() {
		return nil
	}
	projected := money.Round(b.Outstanding.Add(addition))
	if projected.GreaterThan(b.CreditLimit) {
		return shared.E(shared.KindCreditLimitExceeded, op, "party", b.PartyID).
			Withf("projected outstanding %s exceeds credit limit %s", projected.StringFixed(2), b.CreditLimit.StringFixed(2))
	}
	return nil
}

// EnsureWithinLimit locks the party, recomputes its outstanding and applies
// CheckCreditLimit. Callers run it inside the transaction that posts the
// document so concurrent confirmations for the same party serialize.
func EnsureWithinLimit(ctx context.Context, src GuardSource, companyID, partyID int64, addition decimal.Decimal) error {
	if err := src.LockParty(ctx, companyID, partyID); err != nil {
		return err
	}
	b, err := Outstanding(ctx, src, companyID, partyID)
	if err != nil {
		return err
	}
	return CheckCreditLimit("partybalance.EnsureWithinLimit", b, addition)
}

// BuildStatement lists posted documents in date order with a running balance
// that ends at the party's outstanding amount.
func BuildStatement(acct Account, entries []Entry) []StatementLine {
	posted := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if shared.IsPosted(e.Status) {
			posted = append(posted, e)
		}
	}
	sort.SliceStable(posted, func(i, j int) bool {
		if !posted[i].Date.Equal(posted[j].Date) {
			return posted[i].Date.Before(posted[j].Date)
		}
		return posted[i].DocumentID < posted[j].DocumentID
	})

	balance := money.Round(acct.OpeningBalance)
	lines := make([]StatementLine, 0, len(posted)+1)
	lines = append(lines, StatementLine{Kind: "opening_balance", Balance: balance})
	for _, e := range posted {
		line := StatementLine{Date: e.Date, Kind: string(e.Kind), DocumentID: e.DocumentID, Number: e.Number}
		switch e.Kind {
		case KindInvoice:
			line.Debit = e.GrandTotal
			line.Credit = e.Paid
		case KindCreditNote:
			line.Credit = e.GrandTotal
		case KindDebitNote:
			line.Debit = e.GrandTotal
		}
		balance = money.Round(balance.Add(line.Debit).Sub(line.Credit))
		line.Balance = balance
		lines = append(lines, line)
	}
	return lines
}
