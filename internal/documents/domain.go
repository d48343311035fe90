// Package documents implements sales invoices, purchase orders and debit and
// credit notes as one header-with-lines document parameterised by Kind.
package documents

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/billease/billease/internal/shared"
)

// Line is an ordered line item exclusively owned by its document.
type Line struct {
	ID               int64           `json:"id"`
	DocumentID       int64           `json:"document_id"`
	LineNo           int             `json:"line_no"`
	ItemID           int64           `json:"item_id"`
	Description      string          `json:"description,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	Rate             decimal.Decimal `json:"rate"`
	Discount         decimal.Decimal `json:"discount"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	Total            decimal.Decimal `json:"total"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
}

// Document is the common header of every kind.
type Document struct {
	ID                 int64                 `json:"id"`
	CompanyID          int64                 `json:"company_id"`
	Kind               Kind                  `json:"kind"`
	Number             string                `json:"number"`
	Date               time.Time             `json:"date"`
	DueDate            *time.Time            `json:"due_date,omitempty"`
	PartyID            int64                 `json:"party_id"`
	ReferenceInvoiceID *int64                `json:"reference_invoice_id,omitempty"`
	Reason             string                `json:"reason,omitempty"`
	TotalAmount        decimal.Decimal       `json:"total_amount"`
	TaxAmount          decimal.Decimal       `json:"tax_amount"`
	DiscountAmount     decimal.Decimal       `json:"discount_amount"`
	GrandTotal         decimal.Decimal       `json:"grand_total"`
	PaidAmount         decimal.Decimal       `json:"paid_amount"`
	BalanceAmount      decimal.Decimal       `json:"balance_amount"`
	Status             shared.DocumentStatus `json:"status"`
	Notes              string                `json:"notes,omitempty"`
	CreatedBy          int64                 `json:"created_by"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
	Lines              []Line                `json:"lines"`
}

// LineInput is a requested line; amounts are derived.
type LineInput struct {
	ItemID      int64           `json:"item_id" validate:"required,gt=0"`
	Description string          `json:"description" validate:"max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Discount    decimal.Decimal `json:"discount"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// Input creates a document or replaces a draft. Supplied totals are optional
// and must agree with the totals computed from the lines.
type Input struct {
	Number             string           `json:"number" validate:"max=100"`
	Date               time.Time        `json:"date"`
	DueDate            *time.Time       `json:"due_date"`
	PartyID            int64            `json:"party_id" validate:"required,gt=0"`
	ReferenceInvoiceID *int64           `json:"reference_invoice_id"`
	Reason             string           `json:"reason" validate:"max=100"`
	DiscountAmount     decimal.Decimal  `json:"discount_amount"`
	TotalAmount        *decimal.Decimal `json:"total_amount"`
	TaxAmount          *decimal.Decimal `json:"tax_amount"`
	GrandTotal         *decimal.Decimal `json:"grand_total"`
	Notes              string           `json:"notes"`
	Lines              []LineInput      `json:"lines" validate:"dive"`
	IdempotencyKey     string           `json:"idempotency_key,omitempty" validate:"max=128"`
}

// ReceiveLine books quantity against one purchase order line.
type ReceiveLine struct {
	LineID   int64           `json:"line_id" validate:"required,gt=0"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ReceiveInput books goods against a purchase order.
type ReceiveInput struct {
	Lines []ReceiveLine `json:"lines" validate:"required,min=1,dive"`
}

// Payment is money received against a sales invoice.
type Payment struct {
	ID         int64           `json:"id"`
	CompanyID  int64           `json:"company_id"`
	DocumentID int64           `json:"document_id"`
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"payment_date"`
	Method     string          `json:"method,omitempty"`
	Reference  string          `json:"reference,omitempty"`
	CreatedBy  int64           `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PaymentInput records a payment.
type PaymentInput struct {
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"payment_date"`
	Method    string          `json:"method" validate:"max=50"`
	Reference string          `json:"reference" validate:"max=255"`
}

// PartyRef is the part of a party a document needs.
type PartyRef struct {
	ID    int64
	Type  string
	GSTIN string
}

// ListFilter narrows document listings.
type ListFilter struct {
	Status  shared.DocumentStatus
	PartyID int64
}

// DeleteResult reports what a delete removed.
type DeleteResult struct {
	DocumentID   int64 `json:"document_id"`
	LinesDeleted int   `json:"lines_deleted"`
}
