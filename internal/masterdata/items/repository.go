package items

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billease/billease/internal/platform/db"
	"github.com/billease/billease/internal/shared"
)

// Repository persists items.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, companyID int64, search string, page shared.Page) ([]Item, int, error)
	Get(ctx context.Context, companyID, id int64) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, item Item) error
	Delete(ctx context.Context, companyID, id int64) error
	CountReferences(ctx context.Context, id int64) (int, error)
}

type repository struct {
	db   db.Querier
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const itemColumns = `id, company_id, code, name, hsn, sac, uom, category, rate, cost_price, reorder_level, opening_stock, opening_value, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.CompanyID, &it.Code, &it.Name, &it.HSN, &it.SAC, &it.UOM, &it.Category,
		&it.Rate, &it.CostPrice, &it.ReorderLevel, &it.OpeningStock, &it.OpeningValue, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func (r *repository) List(ctx context.Context, companyID int64, search string, page shared.Page) ([]Item, int, error) {
	pattern := "%" + search + "%"
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM items_master WHERE company_id = $1 AND (name ILIKE $2 OR code ILIKE $2)`,
		companyID, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM items_master
WHERE company_id = $1 AND (name ILIKE $2 OR code ILIKE $2)
ORDER BY code LIMIT $3 OFFSET $4`, companyID, pattern, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, it)
	}
	return result, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Item, error) {
	it, err := scanItem(r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM items_master WHERE company_id = $1 AND id = $2`, companyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, shared.E(shared.KindNotFound, "items.Get", "item", id)
	}
	return it, err
}

func (r *repository) Create(ctx context.Context, it Item) (Item, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO items_master
(company_id, code, name, hsn, sac, uom, category, rate, cost_price, reorder_level, opening_stock, opening_value, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13) RETURNING id`,
		it.CompanyID, it.Code, it.Name, it.HSN, it.SAC, it.UOM, it.Category, it.Rate, it.CostPrice,
		it.ReorderLevel, it.OpeningStock, it.OpeningValue, now).Scan(&it.ID)
	if err != nil {
		return Item{}, db.Classify("items.Create", err)
	}
	it.CreatedAt = now
	it.UpdatedAt = now
	return it, nil
}

func (r *repository) Update(ctx context.Context, it Item) error {
	tag, err := r.db.Exec(ctx, `UPDATE items_master SET code = $1, name = $2, hsn = $3, sac = $4, uom = $5, category = $6,
rate = $7, cost_price = $8, reorder_level = $9, opening_stock = $10, opening_value = $11, updated_at = $12
WHERE company_id = $13 AND id = $14`,
		it.Code, it.Name, it.HSN, it.SAC, it.UOM, it.Category, it.Rate, it.CostPrice, it.ReorderLevel,
		it.OpeningStock, it.OpeningValue, time.Now().UTC(), it.CompanyID, it.ID)
	if err != nil {
		return db.Classify("items.Update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.E(shared.KindNotFound, "items.Update", "item", it.ID)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, companyID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM items_master WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return db.Classify("items.Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.E(shared.KindNotFound, "items.Delete", "item", id)
	}
	return nil
}

// CountReferences counts document lines and movements pointing at the item.
func (r *repository) CountReferences(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT
  (SELECT COUNT(*) FROM sales_invoice_items WHERE item_id = $1)
+ (SELECT COUNT(*) FROM purchase_order_items WHERE item_id = $1)
+ (SELECT COUNT(*) FROM debit_note_items WHERE item_id = $1)
+ (SELECT COUNT(*) FROM credit_note_items WHERE item_id = $1)
+ (SELECT COUNT(*) FROM inventory_movements WHERE item_id = $1)`, id).Scan(&n)
	return n, err
}
