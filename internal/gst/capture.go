package gst

import (
	"context"
	"errors"

	"github.com/billease/billease/internal/shared"
)

// Capture writes the draft record of a newly posted invoice. Filing is
// one-way, so an invoice dated in a filed period is rejected.
func Capture(ctx context.Context, st Store, inv Invoice) (Record, error) {
	companyGSTIN, err := st.CompanyGSTIN(ctx, inv.CompanyID)
	if err != nil {
		return Record{}, err
	}
	rec := NewRecord(companyGSTIN, inv)
	if err := ensurePeriodOpen(ctx, st, inv.CompanyID, inv.InvoiceID, rec.Period); err != nil {
		return Record{}, err
	}
	id, err := st.InsertRecord(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	rec.ID = id
	return rec, nil
}

// Withdraw removes the draft record of an invoice that is being cancelled or
// deleted. A filed record cannot be withdrawn.
func Withdraw(ctx context.Context, st Store, companyID, invoiceID int64) error {
	rec, err := st.RecordByInvoice(ctx, companyID, invoiceID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rec.Status == StatusFiled {
		return shared.E(shared.KindInvalidTransition, "gst.Withdraw", "sales_invoice", invoiceID).
			Withf("GSTR1 period %s already filed", rec.Period)
	}
	return st.DeleteRecord(ctx, rec.ID)
}

func ensurePeriodOpen(ctx context.Context, st Store, companyID, invoiceID int64, period string) error {
	records, err := st.PeriodRecords(ctx, companyID, period)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.Status == StatusFiled {
			return shared.E(shared.KindInvalidTransition, "gst.Capture", "sales_invoice", invoiceID).
				Withf("GSTR1 period %s already filed", period)
		}
	}
	return nil
}
