package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billease/billease/internal/platform/db"
	"github.com/billease/billease/internal/shared"
)

// Repository persists inventory movements and reads the stock ledger.
type Repository struct {
	pool *pgxpool.Pool
	db   db.Querier
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// NewLedgerSource reads the stock ledger through q, which may be an open
// transaction owned by another package.
func NewLedgerSource(q db.Querier) LedgerSource {
	return &Repository{db: q}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	LedgerSource
	LockItem(ctx context.Context, companyID, itemID int64) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
}

const txLevel = pgx.ReadCommitted

// WithTx executes the callback at read committed, so the on-hand fold that
// follows LockItem sees movements committed by the previous lock holder.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxLevel(ctx, r.pool, txLevel, func(tx pgx.Tx) error {
		return fn(ctx, &Repository{pool: r.pool, db: tx})
	})
}

func (r *Repository) ItemOpening(ctx context.Context, companyID, itemID int64) (Opening, error) {
	o := Opening{ItemID: itemID}
	err := r.db.QueryRow(ctx, `SELECT code, name, opening_stock, reorder_level FROM items_master
WHERE company_id = $1 AND id = $2`, companyID, itemID).Scan(&o.Code, &o.Name, &o.OpeningStock, &o.ReorderLevel)
	if errors.Is(err, pgx.ErrNoRows) {
		return Opening{}, shared.E(shared.KindNotFound, "stock.ItemOpening", "item", itemID)
	}
	return o, err
}

const entriesSQL = `
SELECT 'purchase', po.id, po.status, l.received_quantity
FROM purchase_order_items l JOIN purchase_orders po ON po.id = l.po_id
WHERE po.company_id = $1 AND l.item_id = $2
UNION ALL
SELECT 'sale', si.id, si.status, l.quantity
FROM sales_invoice_items l JOIN sales_invoices si ON si.id = l.invoice_id
WHERE si.company_id = $1 AND l.item_id = $2
UNION ALL
SELECT 'movement', m.id, '', m.quantity
FROM inventory_movements m
WHERE m.company_id = $1 AND m.item_id = $2`

// ItemEntries returns every row that may touch the item. Status filtering
// happens in Fold so that the policy lives in one place.
func (r *Repository) ItemEntries(ctx context.Context, companyID, itemID int64) ([]Entry, error) {
	rows, err := r.db.Query(ctx, entriesSQL, companyID, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e      Entry
			source string
			status string
		)
		if err := rows.Scan(&source, &e.DocumentID, &status, &e.Quantity); err != nil {
			return nil, err
		}
		e.Source = Source(source)
		e.Status = shared.DocumentStatus(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LockItem serializes writers that check stock for the same item.
func (r *Repository) LockItem(ctx context.Context, companyID, itemID int64) error {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM items_master WHERE company_id = $1 AND id = $2 FOR UPDATE`, companyID, itemID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.E(shared.KindNotFound, "stock.LockItem", "item", itemID)
	}
	return db.Classify("stock.LockItem", err)
}

func (r *Repository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO inventory_movements
(company_id, item_id, movement_type, quantity, reference, movement_date, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		m.CompanyID, m.ItemID, string(m.Type), m.Quantity, m.Reference, m.Date, m.CreatedBy, m.CreatedAt).Scan(&id)
	if err != nil {
		return 0, db.Classify("stock.InsertMovement", err)
	}
	return id, nil
}

// ListOpenings returns every item of the company with its reorder level.
func (r *Repository) ListOpenings(ctx context.Context, companyID int64) ([]Opening, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, opening_stock, reorder_level FROM items_master
WHERE company_id = $1 ORDER BY code`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Opening
	for rows.Next() {
		var o Opening
		if err := rows.Scan(&o.ItemID, &o.Code, &o.Name, &o.OpeningStock, &o.ReorderLevel); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}
