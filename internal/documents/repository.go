package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billease/billease/internal/gst"
	"github.com/billease/billease/internal/partybalance"
	"github.com/billease/billease/internal/platform/db"
	"github.com/billease/billease/internal/shared"
)

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	Get(ctx context.Context, k Kind, companyID, id int64) (Document, error)
	GetForUpdate(ctx context.Context, k Kind, companyID, id int64) (Document, error)
	Party(ctx context.Context, companyID, partyID int64) (PartyRef, error)
	MissingItems(ctx context.Context, companyID int64, itemIDs []int64) ([]int64, error)
	InvoiceParty(ctx context.Context, companyID, invoiceID int64) (int64, error)
	InsertDocument(ctx context.Context, doc *Document) error
	ReplaceDraft(ctx context.Context, doc *Document) error
	SetState(ctx context.Context, doc Document, from shared.DocumentStatus) error
	SetReceived(ctx context.Context, k Kind, line Line) error
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	CountReferencingNotes(ctx context.Context, companyID, invoiceID int64) (int, error)
	DeleteDocument(ctx context.Context, k Kind, companyID, id int64) (int, error)
	Balances() partybalance.GuardSource
	Taxes() gst.Store
}

// Repository persists documents in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	db   db.Querier
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

const txLevel = pgx.ReadCommitted

// WithTx executes the callback in one transaction so that a header and its
// lines commit together or not at all. It runs at read committed: the credit
// guard locks the party row and must then see documents confirmed by the
// previous holder of that lock.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxLevel(ctx, r.pool, txLevel, func(tx pgx.Tx) error {
		return fn(ctx, &Repository{pool: r.pool, db: tx})
	})
}

func (r *Repository) Balances() partybalance.GuardSource { return partybalance.NewGuardSource(r.db) }

func (r *Repository) Taxes() gst.Store { return gst.NewStore(r.db) }

func headerColumns(ru rules) string {
	due, ref, reason := "NULL::date", "NULL::bigint", "''"
	if ru.dueColumn != "" {
		due = ru.dueColumn
	}
	if ru.isNote {
		ref, reason = "reference_invoice_id", "reason"
	}
	return strings.Join([]string{
		"id", "company_id", ru.numberColumn, ru.dateColumn, "party_id", due, ref, reason,
		"total_amount", "tax_amount", "discount_amount", "grand_total", "paid_amount", "balance_amount",
		"status", "COALESCE(notes, '')", "created_by", "created_at", "updated_at",
	}, ", ")
}

func lineColumns(ru rules) string {
	received := "0"
	if ru.tracksGoods {
		received = "received_quantity"
	}
	return fmt.Sprintf("id, %s, line_no, item_id, COALESCE(description, ''), quantity, rate, discount, tax_rate, tax_amount, total, %s",
		ru.parentColumn, received)
}

func scanDocument(row pgx.Row, k Kind) (Document, error) {
	var (
		d      Document
		status string
	)
	err := row.Scan(&d.ID, &d.CompanyID, &d.Number, &d.Date, &d.PartyID, &d.DueDate, &d.ReferenceInvoiceID, &d.Reason,
		&d.TotalAmount, &d.TaxAmount, &d.DiscountAmount, &d.GrandTotal, &d.PaidAmount, &d.BalanceAmount,
		&status, &d.Notes, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	d.Kind = k
	d.Status = shared.DocumentStatus(status)
	return d, err
}

func (r *Repository) get(ctx context.Context, k Kind, companyID, id int64, lock string) (Document, error) {
	ru := k.rules()
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE company_id = $1 AND id = $2%s`, headerColumns(ru), ru.headerTable, lock)
	doc, err := scanDocument(r.db.QueryRow(ctx, query, companyID, id), k)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, shared.E(shared.KindNotFound, "documents.Get", string(k), id)
	}
	if err != nil {
		return Document{}, db.Classify("documents.Get", err)
	}
	doc.Lines, err = r.lines(ctx, k, id)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Get loads a document with its lines.
func (r *Repository) Get(ctx context.Context, k Kind, companyID, id int64) (Document, error) {
	return r.get(ctx, k, companyID, id, "")
}

// GetForUpdate loads a document and holds its header row until the
// transaction ends. NOWAIT surfaces a concurrent writer as a lock failure.
func (r *Repository) GetForUpdate(ctx context.Context, k Kind, companyID, id int64) (Document, error) {
	return r.get(ctx, k, companyID, id, " FOR UPDATE NOWAIT")
}

func (r *Repository) lines(ctx context.Context, k Kind, docID int64) ([]Line, error) {
	ru := k.rules()
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY line_no, id`,
		lineColumns(ru), ru.lineTable, ru.parentColumn), docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]Line, 0)
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.LineNo, &l.ItemID, &l.Description, &l.Quantity, &l.Rate,
			&l.Discount, &l.TaxRate, &l.TaxAmount, &l.Total, &l.ReceivedQuantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// List returns headers without lines, newest first.
func (r *Repository) List(ctx context.Context, k Kind, companyID int64, filter ListFilter, page shared.Page) ([]Document, int, error) {
	ru := k.rules()
	where := `WHERE company_id = $1 AND ($2 = '' OR status = $2) AND ($3 = 0 OR party_id = $3)`
	var total int
	if err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, ru.headerTable, where),
		companyID, string(filter.Status), filter.PartyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY %s DESC, id DESC LIMIT $4 OFFSET $5`,
		headerColumns(ru), ru.headerTable, where, ru.dateColumn),
		companyID, string(filter.Status), filter.PartyID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Document
	for rows.Next() {
		d, err := scanDocument(rows, k)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, d)
	}
	return result, total, rows.Err()
}

func (r *Repository) Party(ctx context.Context, companyID, partyID int64) (PartyRef, error) {
	p := PartyRef{ID: partyID}
	err := r.db.QueryRow(ctx, `SELECT type, COALESCE(gstin, '') FROM parties WHERE company_id = $1 AND id = $2`,
		companyID, partyID).Scan(&p.Type, &p.GSTIN)
	if errors.Is(err, pgx.ErrNoRows) {
		return PartyRef{}, shared.E(shared.KindNotFound, "documents.Party", "party", partyID)
	}
	return p, err
}

func (r *Repository) MissingItems(ctx context.Context, companyID int64, itemIDs []int64) ([]int64, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id FROM unnest($2::bigint[]) AS want(id)
WHERE NOT EXISTS (SELECT 1 FROM items_master i WHERE i.company_id = $1 AND i.id = want.id)`, companyID, itemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var missing []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		missing = append(missing, id)
	}
	return missing, rows.Err()
}

func (r *Repository) InvoiceParty(ctx context.Context, companyID, invoiceID int64) (int64, error) {
	var partyID int64
	err := r.db.QueryRow(ctx, `SELECT party_id FROM sales_invoices WHERE company_id = $1 AND id = $2`, companyID, invoiceID).Scan(&partyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.E(shared.KindNotFound, "documents.InvoiceParty", string(KindSalesInvoice), invoiceID)
	}
	return partyID, err
}

func (r *Repository) InsertDocument(ctx context.Context, doc *Document) error {
	ru := doc.Kind.rules()
	now := time.Now().UTC()
	cols := []string{"company_id", ru.numberColumn, ru.dateColumn, "party_id"}
	args := []any{doc.CompanyID, doc.Number, doc.Date, doc.PartyID}
	if ru.dueColumn != "" {
		cols = append(cols, ru.dueColumn)
		args = append(args, doc.DueDate)
	}
	if ru.isNote {
		cols = append(cols, "reference_invoice_id", "reason")
		args = append(args, doc.ReferenceInvoiceID, doc.Reason)
	}
	cols = append(cols, "total_amount", "tax_amount", "discount_amount", "grand_total", "paid_amount", "balance_amount",
		"status", "notes", "created_by", "created_at", "updated_at")
	args = append(args, doc.TotalAmount, doc.TaxAmount, doc.DiscountAmount, doc.GrandTotal, doc.PaidAmount, doc.BalanceAmount,
		string(doc.Status), doc.Notes, doc.CreatedBy, now, now)

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
		ru.headerTable, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if err := r.db.QueryRow(ctx, query, args...).Scan(&doc.ID); err != nil {
		return db.Classify("documents.InsertDocument", err)
	}
	doc.CreatedAt, doc.UpdatedAt = now, now
	return r.insertLines(ctx, doc)
}

func (r *Repository) insertLines(ctx context.Context, doc *Document) error {
	ru := doc.Kind.rules()
	cols := "line_no, item_id, description, quantity, rate, discount, tax_rate, tax_amount, total"
	if ru.tracksGoods {
		cols += ", received_quantity"
	}
	for i := range doc.Lines {
		l := &doc.Lines[i]
		l.DocumentID = doc.ID
		args := []any{doc.ID, l.LineNo, l.ItemID, l.Description, l.Quantity, l.Rate, l.Discount, l.TaxRate, l.TaxAmount, l.Total}
		values := "$1, $2, $3, $4, $5, $6, $7, $8, $9, $10"
		if ru.tracksGoods {
			args = append(args, l.ReceivedQuantity)
			values += ", $11"
		}
		query := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES (%s) RETURNING id`, ru.lineTable, ru.parentColumn, cols, values)
		if err := r.db.QueryRow(ctx, query, args...).Scan(&l.ID); err != nil {
			return db.Classify("documents.insertLines", err)
		}
	}
	return nil
}

// ReplaceDraft rewrites the header fields and swaps the full line set.
func (r *Repository) ReplaceDraft(ctx context.Context, doc *Document) error {
	ru := doc.Kind.rules()
	now := time.Now().UTC()
	sets := []string{ru.numberColumn + " = $3", ru.dateColumn + " = $4", "party_id = $5",
		"total_amount = $6", "tax_amount = $7", "discount_amount = $8", "grand_total = $9", "balance_amount = $10",
		"notes = $11", "updated_at = $12"}
	args := []any{doc.CompanyID, doc.ID, doc.Number, doc.Date, doc.PartyID,
		doc.TotalAmount, doc.TaxAmount, doc.DiscountAmount, doc.GrandTotal, doc.BalanceAmount, doc.Notes, now}
	if ru.dueColumn != "" {
		args = append(args, doc.DueDate)
		sets = append(sets, fmt.Sprintf("%s = $%d", ru.dueColumn, len(args)))
	}
	if ru.isNote {
		args = append(args, doc.ReferenceInvoiceID, doc.Reason)
		sets = append(sets, fmt.Sprintf("reference_invoice_id = $%d", len(args)-1), fmt.Sprintf("reason = $%d", len(args)))
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE company_id = $1 AND id = $2`, ru.headerTable, strings.Join(sets, ", "))
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return db.Classify("documents.ReplaceDraft", err)
	}
	doc.UpdatedAt = now
	if _, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, ru.lineTable, ru.parentColumn), doc.ID); err != nil {
		return db.Classify("documents.ReplaceDraft", err)
	}
	return r.insertLines(ctx, doc)
}

// SetState moves the header from one status to the next, writing the payment
// columns alongside. A row that no longer holds from is a lost update.
func (r *Repository) SetState(ctx context.Context, doc Document, from shared.DocumentStatus) error {
	ru := doc.Kind.rules()
	query := fmt.Sprintf(`UPDATE %s SET status = $1, paid_amount = $2, balance_amount = $3, updated_at = $4
WHERE company_id = $5 AND id = $6 AND status = $7`, ru.headerTable)
	tag, err := r.db.Exec(ctx, query, string(doc.Status), doc.PaidAmount, doc.BalanceAmount, time.Now().UTC(),
		doc.CompanyID, doc.ID, string(from))
	if err != nil {
		return db.Classify("documents.SetState", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.E(shared.KindConcurrencyConflict, "documents.SetState", string(doc.Kind), doc.ID).
			Withf("status is no longer %s", from)
	}
	return nil
}

func (r *Repository) SetReceived(ctx context.Context, k Kind, line Line) error {
	ru := k.rules()
	_, err := r.db.Exec(ctx, fmt.Sprintf(`UPDATE %s SET received_quantity = $1 WHERE id = $2 AND %s = $3`, ru.lineTable, ru.parentColumn),
		line.ReceivedQuantity, line.ID, line.DocumentID)
	return db.Classify("documents.SetReceived", err)
}

func (r *Repository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO document_payments
(company_id, invoice_id, amount, payment_date, method, reference, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		p.CompanyID, p.DocumentID, p.Amount, p.Date, p.Method, p.Reference, p.CreatedBy, p.CreatedAt).Scan(&id)
	if err != nil {
		return 0, db.Classify("documents.InsertPayment", err)
	}
	return id, nil
}

func (r *Repository) CountReferencingNotes(ctx context.Context, companyID, invoiceID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT
  (SELECT COUNT(*) FROM credit_notes WHERE company_id = $1 AND reference_invoice_id = $2)
+ (SELECT COUNT(*) FROM debit_notes WHERE company_id = $1 AND reference_invoice_id = $2)`, companyID, invoiceID).Scan(&n)
	return n, err
}

// DeleteDocument removes the lines and then the header, returning the number
// of lines removed.
func (r *Repository) DeleteDocument(ctx context.Context, k Kind, companyID, id int64) (int, error) {
	ru := k.rules()
	tag, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, ru.lineTable, ru.parentColumn), id)
	if err != nil {
		return 0, db.Classify("documents.DeleteDocument", err)
	}
	lines := int(tag.RowsAffected())
	tag, err = r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE company_id = $1 AND id = $2`, ru.headerTable), companyID, id)
	if err != nil {
		return 0, db.Classify("documents.DeleteDocument", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, shared.E(shared.KindNotFound, "documents.DeleteDocument", string(k), id)
	}
	return lines, nil
}
