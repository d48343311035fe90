package gst

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billease/billease/internal/platform/db"
	"github.com/billease/billease/internal/shared"
)

// Store is the persistence surface of GSTR1 records.
type Store interface {
	CompanyGSTIN(ctx context.Context, companyID int64) (string, error)
	InsertRecord(ctx context.Context, rec Record) (int64, error)
	RecordByInvoice(ctx context.Context, companyID, invoiceID int64) (Record, error)
	DeleteRecord(ctx context.Context, id int64) error
	PeriodRecords(ctx context.Context, companyID int64, period string) ([]Record, error)
	PeriodInvoices(ctx context.Context, companyID int64, period shared.FilingPeriod) ([]InvoiceRef, error)
	UncapturedInvoices(ctx context.Context, companyID int64, period shared.FilingPeriod) ([]Invoice, error)
	MarkFiled(ctx context.Context, companyID int64, period string) (int64, error)
}

// Repository implements Store over PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	db   db.Querier
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// NewStore binds a Store to q, typically a transaction owned by the caller.
func NewStore(q db.Querier) Store {
	return &Repository{db: q}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Repository{pool: r.pool, db: tx})
	})
}

func (r *Repository) CompanyGSTIN(ctx context.Context, companyID int64) (string, error) {
	var gstin string
	err := r.db.QueryRow(ctx, `SELECT COALESCE(gstin, '') FROM companies WHERE id = $1`, companyID).Scan(&gstin)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.E(shared.KindNotFound, "gst.CompanyGSTIN", "company", companyID)
	}
	return gstin, err
}

const recordColumns = `id, company_id, invoice_id, period, gstin, invoice_no, invoice_date, taxable_value, igst, cgst, sgst, total_tax, status, irn, created_at`

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec    Record
		status string
	)
	err := row.Scan(&rec.ID, &rec.CompanyID, &rec.InvoiceID, &rec.Period, &rec.GSTIN, &rec.InvoiceNo, &rec.InvoiceDate,
		&rec.TaxableValue, &rec.IGST, &rec.CGST, &rec.SGST, &rec.TotalTax, &status, &rec.IRN, &rec.CreatedAt)
	rec.Status = RecordStatus(status)
	return rec, err
}

func (r *Repository) InsertRecord(ctx context.Context, rec Record) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO gstr1
(company_id, invoice_id, period, gstin, invoice_no, invoice_date, taxable_value, igst, cgst, sgst, total_tax, status, irn, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`,
		rec.CompanyID, rec.InvoiceID, rec.Period, rec.GSTIN, rec.InvoiceNo, rec.InvoiceDate, rec.TaxableValue,
		rec.IGST, rec.CGST, rec.SGST, rec.TotalTax, string(rec.Status), rec.IRN, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, db.Classify("gst.InsertRecord", err)
	}
	return id, nil
}

func (r *Repository) RecordByInvoice(ctx context.Context, companyID, invoiceID int64) (Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM gstr1 WHERE company_id = $1 AND invoice_id = $2`, companyID, invoiceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, shared.E(shared.KindNotFound, "gst.RecordByInvoice", "gstr1", invoiceID)
	}
	return rec, err
}

func (r *Repository) DeleteRecord(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM gstr1 WHERE id = $1 AND status = 'draft'`, id)
	return db.Classify("gst.DeleteRecord", err)
}

func (r *Repository) PeriodRecords(ctx context.Context, companyID int64, period string) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+` FROM gstr1 WHERE company_id = $1 AND period = $2 ORDER BY invoice_date, id`, companyID, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *Repository) PeriodInvoices(ctx context.Context, companyID int64, period shared.FilingPeriod) ([]InvoiceRef, error) {
	from, to := period.Bounds()
	rows, err := r.db.Query(ctx, `SELECT id, invoice_no, status FROM sales_invoices
WHERE company_id = $1 AND invoice_date >= $2 AND invoice_date < $3 ORDER BY id`, companyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []InvoiceRef
	for rows.Next() {
		var (
			ref    InvoiceRef
			status string
		)
		if err := rows.Scan(&ref.ID, &ref.InvoiceNo, &status); err != nil {
			return nil, err
		}
		ref.Status = shared.DocumentStatus(status)
		result = append(result, ref)
	}
	return result, rows.Err()
}

// CompaniesWithUncaptured lists companies owning posted invoices in the
// period that have no GSTR1 record yet.
func (r *Repository) CompaniesWithUncaptured(ctx context.Context, period shared.FilingPeriod) ([]int64, error) {
	from, to := period.Bounds()
	rows, err := r.db.Query(ctx, `SELECT DISTINCT si.company_id
FROM sales_invoices si
LEFT JOIN gstr1 g ON g.invoice_id = si.id
WHERE si.invoice_date >= $1 AND si.invoice_date < $2
  AND si.status IN ('confirmed', 'partially_paid', 'paid') AND g.id IS NULL
ORDER BY si.company_id`, from, to)
	if err != nil {
		return nil, db.Classify("gst.CompaniesWithUncaptured", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) UncapturedInvoices(ctx context.Context, companyID int64, period shared.FilingPeriod) ([]Invoice, error) {
	from, to := period.Bounds()
	rows, err := r.db.Query(ctx, `SELECT si.id, si.invoice_no, si.invoice_date, COALESCE(p.gstin, ''), si.total_amount - si.discount_amount, si.tax_amount
FROM sales_invoices si
JOIN parties p ON p.id = si.party_id
LEFT JOIN gstr1 g ON g.invoice_id = si.id
WHERE si.company_id = $1 AND si.invoice_date >= $2 AND si.invoice_date < $3
  AND si.status IN ('confirmed', 'partially_paid', 'paid') AND g.id IS NULL
ORDER BY si.id`, companyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Invoice
	for rows.Next() {
		inv := Invoice{CompanyID: companyID}
		if err := rows.Scan(&inv.InvoiceID, &inv.InvoiceNo, &inv.InvoiceDate, &inv.PartyGSTIN, &inv.TaxableValue, &inv.TaxAmount); err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func (r *Repository) MarkFiled(ctx context.Context, companyID int64, period string) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE gstr1 SET status = 'filed' WHERE company_id = $1 AND period = $2 AND status = 'draft'`, companyID, period)
	if err != nil {
		return 0, db.Classify("gst.MarkFiled", err)
	}
	return tag.RowsAffected(), nil
}
