// Package gst captures per-invoice GSTR1 records and aggregates them into
// filing period summaries.
package gst

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/billease/billease/internal/shared"
)

// RecordStatus is the filing state of a GSTR1 record.
type RecordStatus string

const (
	StatusDraft RecordStatus = "draft"
	StatusFiled RecordStatus = "filed"
)

// Record is the tax snapshot of one invoice. The IGST versus CGST/SGST split
// is fixed when the record is written and never recomputed.
type Record struct {
	ID           int64           `json:"id"`
	CompanyID    int64           `json:"company_id"`
	InvoiceID    int64           `json:"invoice_id"`
	Period       string          `json:"period"`
	GSTIN        string          `json:"gstin,omitempty"`
	InvoiceNo    string          `json:"invoice_no"`
	InvoiceDate  time.Time       `json:"invoice_date"`
	TaxableValue decimal.Decimal `json:"taxable_value"`
	IGST         decimal.Decimal `json:"igst"`
	CGST         decimal.Decimal `json:"cgst"`
	SGST         decimal.Decimal `json:"sgst"`
	TotalTax     decimal.Decimal `json:"total_tax"`
	Status       RecordStatus    `json:"status"`
	IRN          string          `json:"irn,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Invoice carries the facts of a posted sales invoice needed to build a Record.
type Invoice struct {
	CompanyID    int64
	InvoiceID    int64
	InvoiceNo    string
	InvoiceDate  time.Time
	PartyGSTIN   string
	TaxableValue decimal.Decimal
	TaxAmount    decimal.Decimal
}

// InvoiceRef is a sales invoice dated inside a filing period.
type InvoiceRef struct {
	ID        int64
	InvoiceNo string
	Status    shared.DocumentStatus
}

// Summary is the GSTR1 aggregate of a period.
type Summary struct {
	Period       string          `json:"period"`
	Status       RecordStatus    `json:"status,omitempty"`
	Invoices     int             `json:"invoices"`
	TaxableValue decimal.Decimal `json:"taxable_value"`
	IGST         decimal.Decimal `json:"igst"`
	CGST         decimal.Decimal `json:"cgst"`
	SGST         decimal.Decimal `json:"sgst"`
	TotalTax     decimal.Decimal `json:"total_tax"`
	Records      []Record        `json:"records,omitempty"`
}
