package gst

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/billease/billease/internal/platform/money"
	"github.com/billease/billease/internal/shared"
)

var two = decimal.NewFromInt(2)

// StateCode returns the two character state prefix of a GSTIN, or "" when
// the GSTIN is too short to carry one.
func StateCode(gstin string) string {
	gstin = strings.TrimSpace(gstin)
	if len(gstin) < 2 {
		return ""
	}
	return gstin[:2]
}

// Split holds the component taxes of one invoice.
type Split struct {
	IGST decimal.Decimal
	CGST decimal.Decimal
	SGST decimal.Decimal
}

// SplitTax assigns tax to IGST for inter-state supplies and halves it into
// CGST and SGST otherwise. Missing state codes are treated as intra-state.
// SGST absorbs the rounding remainder so the parts always sum to tax.
func SplitTax(companyGSTIN, partyGSTIN string, tax decimal.Decimal) Split {
	tax = money.Round(tax)
	seller, buyer := StateCode(companyGSTIN), StateCode(partyGSTIN)
	if seller != "" && buyer != "" && seller != buyer {
		return Split{IGST: tax, CGST: decimal.Zero, SGST: decimal.Zero}
	}
	cgst := money.Round(tax.Div(two))
	return Split{IGST: decimal.Zero, CGST: cgst, SGST: tax.Sub(cgst)}
}

// NewRecord builds the draft record for a posted invoice.
func NewRecord(companyGSTIN string, inv Invoice) Record {
	split := SplitTax(companyGSTIN, inv.PartyGSTIN, inv.TaxAmount)
	return Record{
		CompanyID:    inv.CompanyID,
		InvoiceID:    inv.InvoiceID,
		Period:       shared.PeriodOf(inv.InvoiceDate).String(),
		GSTIN:        inv.PartyGSTIN,
		InvoiceNo:    inv.InvoiceNo,
		InvoiceDate:  inv.InvoiceDate,
		TaxableValue: money.Round(inv.TaxableValue),
		IGST:         split.IGST,
		CGST:         split.CGST,
		SGST:         split.SGST,
		TotalTax:     money.Round(inv.TaxAmount),
		Status:       StatusDraft,
	}
}

// Aggregate sums the stored records of a period. It never re-derives tax
// from invoice lines. The summary is filed once every record is filed.
func Aggregate(period string, records []Record) Summary {
	s := Summary{Period: period, Records: records}
	filed := 0
	for _, r := range records {
		s.TaxableValue = s.TaxableValue.Add(r.TaxableValue)
		s.IGST = s.IGST.Add(r.IGST)
		s.CGST = s.CGST.Add(r.CGST)
		s.SGST = s.SGST.Add(r.SGST)
		s.TotalTax = s.TotalTax.Add(r.TotalTax)
		if r.Status == StatusFiled {
			filed++
		}
	}
	s.Invoices = len(records)
	s.TaxableValue = money.Round(s.TaxableValue)
	s.IGST = money.Round(s.IGST)
	s.CGST = money.Round(s.CGST)
	s.SGST = money.Round(s.SGST)
	s.TotalTax = money.Round(s.TotalTax)
	switch {
	case len(records) == 0:
	case filed == len(records):
		s.Status = StatusFiled
	default:
		s.Status = StatusDraft
	}
	return s
}

// CheckFilable guards the one-way draft -> filed transition: the period must
// hold records, none of them filed, no invoice dated in it may still be a
// draft, and every posted invoice must have a record.
func CheckFilable(period string, invoices []InvoiceRef, records []Record) error {
	const op = "gst.File"
	if len(records) == 0 {
		return shared.E(shared.KindInvalidTransition, op, "gstr1").Withf("period %s has no records", period)
	}
	covered := make(map[int64]bool, len(records))
	for _, r := range records {
		if r.Status == StatusFiled {
			return shared.E(shared.KindInvalidTransition, op, "gstr1").Withf("period %s already filed", period)
		}
		covered[r.InvoiceID] = true
	}

	var drafts, missing []int64
	for _, inv := range invoices {
		switch {
		case inv.Status == shared.StatusDraft:
			drafts = append(drafts, inv.ID)
		case shared.IsPosted(inv.Status) && !covered[inv.ID]:
			missing = append(missing, inv.ID)
		}
	}
	if len(drafts) > 0 {
		return shared.E(shared.KindInvalidTransition, op, "sales_invoice", drafts...).
			Withf("period %s has %d draft invoices", period, len(drafts))
	}
	if len(missing) > 0 {
		return shared.E(shared.KindInvalidTransition, op, "sales_invoice", missing...).
			Withf("period %s has %d invoices without GSTR1 records", period, len(missing))
	}
	return nil
}
