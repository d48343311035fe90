package bank

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billease/billease/internal/platform/db"
	"github.com/billease/billease/internal/shared"
)

// Store is the persistence surface used by reconciliation.
type Store interface {
	InsertTransaction(ctx context.Context, t Transaction) (int64, error)
	OpenTransactions(ctx context.Context, companyID int64, account string, from, to time.Time) ([]Transaction, error)
	OpenLedger(ctx context.Context, companyID int64, from, to time.Time) ([]LedgerEntry, error)
	MarkReconciled(ctx context.Context, companyID int64, m Match) error
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

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Repository{pool: r.pool, db: tx})
	})
}

func (r *Repository) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO bank_transactions
(company_id, bank_account, date, description, amount, type, balance, reference, reconciled, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9) RETURNING id`,
		t.CompanyID, t.BankAccount, t.Date, t.Description, t.Amount, string(t.Type), t.Balance, t.Reference,
		time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, db.Classify("bank.InsertTransaction", err)
	}
	return id, nil
}

// OpenTransactions lists unreconciled rows of an account. Zero bounds are
// treated as open ended.
func (r *Repository) OpenTransactions(ctx context.Context, companyID int64, account string, from, to time.Time) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT id, company_id, bank_account, date, COALESCE(description, ''), amount, type,
       balance, COALESCE(reference, ''), reconciled, reconciled_date, matched_payment_id, created_at
FROM bank_transactions
WHERE company_id = $1 AND bank_account = $2 AND NOT reconciled
  AND ($3::date IS NULL OR date >= $3) AND ($4::date IS NULL OR date <= $4)
ORDER BY date, id`, companyID, account, nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, db.Classify("bank.OpenTransactions", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			t   Transaction
			typ string
		)
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.BankAccount, &t.Date, &t.Description, &t.Amount, &typ,
			&t.Balance, &t.Reference, &t.Reconciled, &t.ReconciledDate, &t.MatchedLedgerID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = Direction(typ)
		out = append(out, t)
	}
	return out, rows.Err()
}

// OpenLedger lists received payments not yet matched to a bank row. The
// reference falls back to the invoice number when the payment has none.
func (r *Repository) OpenLedger(ctx context.Context, companyID int64, from, to time.Time) ([]LedgerEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT p.id, p.payment_date, p.amount,
       COALESCE(NULLIF(p.reference, ''), si.invoice_no, '')
FROM document_payments p
JOIN sales_invoices si ON si.id = p.invoice_id
WHERE p.company_id = $1
  AND ($2::date IS NULL OR p.payment_date >= $2) AND ($3::date IS NULL OR p.payment_date <= $3)
  AND NOT EXISTS (SELECT 1 FROM bank_transactions bt WHERE bt.matched_payment_id = p.id)
ORDER BY p.payment_date, p.id`, companyID, nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, db.Classify("bank.OpenLedger", err)
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		l := LedgerEntry{Type: Credit}
		if err := rows.Scan(&l.ID, &l.Date, &l.Amount, &l.Reference); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// MarkReconciled flags the bank row as matched. It fails with a concurrency
// conflict when another pass reconciled the row first.
func (r *Repository) MarkReconciled(ctx context.Context, companyID int64, m Match) error {
	const op = "bank.MarkReconciled"
	tag, err := r.db.Exec(ctx, `UPDATE bank_transactions
SET reconciled = TRUE, reconciled_date = $3, matched_payment_id = $4
WHERE company_id = $1 AND id = $2 AND NOT reconciled`, companyID, m.BankID, m.ReconciledDate, m.LedgerID)
	if err != nil {
		return db.Classify(op, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.E(shared.KindConcurrencyConflict, op, "bank_transaction", m.BankID).Withf("already reconciled")
	}
	return nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
