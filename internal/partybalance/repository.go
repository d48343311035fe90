package partybalance

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billease/billease/internal/platform/db"
	"github.com/billease/billease/internal/shared"
)

// Repository reads party balances from PostgreSQL.
type Repository struct {
	db db.Querier
}

// NewRepository constructs Repository over the pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// NewGuardSource reads balances through q, typically an open transaction.
func NewGuardSource(q db.Querier) GuardSource {
	return &Repository{db: q}
}

func (r *Repository) Account(ctx context.Context, companyID, partyID int64) (Account, error) {
	a := Account{PartyID: partyID}
	err := r.db.QueryRow(ctx, `SELECT name, credit_limit, opening_balance FROM parties WHERE company_id = $1 AND id = $2`,
		companyID, partyID).Scan(&a.Name, &a.CreditLimit, &a.OpeningBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, shared.E(shared.KindNotFound, "partybalance.Account", "party", partyID)
	}
	return a, err
}

const entriesSQL = `
SELECT 'sales_invoice', id, invoice_no, invoice_date, status, grand_total, paid_amount
FROM sales_invoices WHERE company_id = $1 AND party_id = $2
UNION ALL
SELECT 'credit_note', id, note_no, note_date, status, grand_total, 0
FROM credit_notes WHERE company_id = $1 AND party_id = $2
UNION ALL
SELECT 'debit_note', id, note_no, note_date, status, grand_total, 0
FROM debit_notes WHERE company_id = $1 AND party_id = $2`

func (r *Repository) PartyEntries(ctx context.Context, companyID, partyID int64) ([]Entry, error) {
	rows, err := r.db.Query(ctx, entriesSQL, companyID, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e      Entry
			kind   string
			status string
		)
		if err := rows.Scan(&kind, &e.DocumentID, &e.Number, &e.Date, &status, &e.GrandTotal, &e.Paid); err != nil {
			return nil, err
		}
		e.Kind = EntryKind(kind)
		e.Status = shared.DocumentStatus(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LockParty holds the party row until the surrounding transaction ends.
func (r *Repository) LockParty(ctx context.Context, companyID, partyID int64) error {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM parties WHERE company_id = $1 AND id = $2 FOR UPDATE`, companyID, partyID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.E(shared.KindNotFound, "partybalance.LockParty", "party", partyID)
	}
	return db.Classify("partybalance.LockParty", err)
}
