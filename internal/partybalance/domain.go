// Package partybalance derives party outstanding balances and enforces credit
// limits by folding over invoices and notes.
package partybalance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/billease/billease/internal/shared"
)

// EntryKind identifies which document table an Entry was read from.
type EntryKind string

const (
	KindInvoice    EntryKind = "sales_invoice"
	KindCreditNote EntryKind = "credit_note"
	KindDebitNote  EntryKind = "debit_note"
)

// Account is the carried-forward state of a party.
type Account struct {
	PartyID        int64
	Name           string
	CreditLimit    decimal.Decimal
	OpeningBalance decimal.Decimal
}

// Entry is one balance-affecting document header for a party.
type Entry struct {
	Kind       EntryKind
	DocumentID int64
	Number     string
	Date       time.Time
	Status     shared.DocumentStatus
	GrandTotal decimal.Decimal
	Paid       decimal.Decimal
}

// Balance is the response of the outstanding calculation.
type Balance struct {
	PartyID     int64           `json:"party_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

// StatementLine is one row of a party statement.
type StatementLine struct {
	Date       time.Time       `json:"date"`
	Kind       string          `json:"kind"`
	DocumentID int64           `json:"document_id,omitempty"`
	Number     string          `json:"number,omitempty"`
	Debit      decimal.Decimal `json:"debit"`
	Credit     decimal.Decimal `json:"credit"`
	Balance    decimal.Decimal `json:"balance"`
}
