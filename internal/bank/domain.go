// Package bank stores bank statement rows and reconciles them against
// payments recorded in the ledger.
package bank

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of the bank account a row moves.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// Transaction is one bank statement row.
type Transaction struct {
	ID              int64           `json:"id"`
	CompanyID       int64           `json:"company_id"`
	BankAccount     string          `json:"bank_account"`
	Date            time.Time       `json:"date"`
	Description     string          `json:"description,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Type            Direction       `json:"type"`
	Balance         decimal.Decimal `json:"balance"`
	Reference       string          `json:"reference,omitempty"`
	Reconciled      bool            `json:"reconciled"`
	ReconciledDate  *time.Time      `json:"reconciled_date,omitempty"`
	MatchedLedgerID *int64          `json:"matched_ledger_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// LedgerEntry is an internal movement of money that should appear on the
// bank statement.
type LedgerEntry struct {
	ID        int64           `json:"id"`
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Type      Direction       `json:"type"`
	Reference string          `json:"reference,omitempty"`
}

// Tier records which rule produced a match.
type Tier string

const (
	TierReference Tier = "reference"
	TierDate      Tier = "date_window"
	TierManual    Tier = "manual"
)

// ManualPair is a caller supplied pairing.
type ManualPair struct {
	BankID   int64 `json:"bank_id" validate:"required,gt=0"`
	LedgerID int64 `json:"ledger_id" validate:"required,gt=0"`
}

// Match pairs one bank row with one ledger entry.
type Match struct {
	BankID         int64           `json:"bank_id"`
	LedgerID       int64           `json:"ledger_id"`
	Amount         decimal.Decimal `json:"amount"`
	Tier           Tier            `json:"tier"`
	ReconciledDate time.Time       `json:"reconciled_date"`
}

// Candidate is an ambiguous pairing left for a person to decide.
type Candidate struct {
	BankID    int64   `json:"bank_id"`
	LedgerIDs []int64 `json:"ledger_ids"`
}

// Result is the outcome of a reconciliation pass.
type Result struct {
	Matches         []Match       `json:"matches"`
	UnmatchedBank   []Transaction `json:"unmatched_bank"`
	UnmatchedLedger []LedgerEntry `json:"unmatched_ledger"`
	Candidates      []Candidate   `json:"candidates"`
}

// TransactionInput is one imported statement row.
type TransactionInput struct {
	Date        time.Time       `json:"date" validate:"required"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        Direction       `json:"type" validate:"required,oneof=credit debit"`
	Balance     decimal.Decimal `json:"balance"`
	Reference   string          `json:"reference" validate:"max=100"`
}

// ImportInput is a bank statement upload.
type ImportInput struct {
	BankAccount  string             `json:"bank_account" validate:"required,max=100"`
	Transactions []TransactionInput `json:"transactions" validate:"required,min=1,dive"`
}

// ReconcileInput selects the rows of one account to reconcile.
type ReconcileInput struct {
	BankAccount   string       `json:"bank_account" validate:"required,max=100"`
	From          time.Time    `json:"from"`
	To            time.Time    `json:"to"`
	ToleranceDays *int         `json:"tolerance_days" validate:"omitempty,min=0,max=31"`
	Manual        []ManualPair `json:"manual" validate:"dive"`
	DryRun        bool         `json:"dry_run"`
	Async         bool         `json:"async"`
}
