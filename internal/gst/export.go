package gst

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	recordsSheet = "Records"
	summarySheet = "Summary"
)

var recordHeader = []any{"Invoice No", "Invoice Date", "GSTIN", "Taxable Value", "IGST", "CGST", "SGST", "Total Tax", "Status"}

// WriteWorkbook renders a period summary as an xlsx workbook with one row per
// record and a totals sheet.
func WriteWorkbook(w io.Writer, sum Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return fmt.Errorf("gst: rename sheet: %w", err)
	}
	if err := f.SetSheetRow(recordsSheet, "A1", &recordHeader); err != nil {
		return fmt.Errorf("gst: write header: %w", err)
	}
	for i, r := range sum.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.InvoiceNo,
			r.InvoiceDate.Format("2006-01-02"),
			r.GSTIN,
			r.TaxableValue.InexactFloat64(),
			r.IGST.InexactFloat64(),
			r.CGST.InexactFloat64(),
			r.SGST.InexactFloat64(),
			r.TotalTax.InexactFloat64(),
			string(r.Status),
		}
		if err := f.SetSheetRow(recordsSheet, cell, &row); err != nil {
			return fmt.Errorf("gst: write record %s: %w", r.InvoiceNo, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("gst: add summary sheet: %w", err)
	}
	totals := [][]any{
		{"Period", sum.Period},
		{"Status", string(sum.Status)},
		{"Invoices", sum.Invoices},
		{"Taxable Value", sum.TaxableValue.InexactFloat64()},
		{"IGST", sum.IGST.InexactFloat64()},
		{"CGST", sum.CGST.InexactFloat64()},
		{"SGST", sum.SGST.InexactFloat64()},
		{"Total Tax", sum.TotalTax.InexactFloat64()},
	}
	for i, row := range totals {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("gst: write summary: %w", err)
		}
	}
	return f.Write(w)
}
