package parties

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billease/billease/internal/platform/db"
	"github.com/billease/billease/internal/shared"
)

// ListFilter narrows party listings.
type ListFilter struct {
	Search string
	Type   Type
}

// Repository persists parties.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, companyID int64, filter ListFilter, page shared.Page) ([]Party, int, error)
	Get(ctx context.Context, companyID, id int64) (Party, error)
	Create(ctx context.Context, party Party) (Party, error)
	Update(ctx context.Context, party Party) error
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

const partyColumns = `id, company_id, name, type, address, city, state, pincode, contact, email, gstin, pan, classification, credit_limit, opening_balance, created_at, updated_at`

func scanParty(row pgx.Row) (Party, error) {
	var p Party
	err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Type, &p.Address, &p.City, &p.State, &p.Pincode, &p.Contact,
		&p.Email, &p.GSTIN, &p.PAN, &p.Classification, &p.CreditLimit, &p.OpeningBalance, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) List(ctx context.Context, companyID int64, filter ListFilter, page shared.Page) ([]Party, int, error) {
	pattern := "%" + filter.Search + "%"
	where := `WHERE company_id = $1 AND name ILIKE $2 AND ($3 = '' OR type = $3)`
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM parties `+where, companyID, pattern, string(filter.Type)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+partyColumns+` FROM parties `+where+` ORDER BY name LIMIT $4 OFFSET $5`,
		companyID, pattern, string(filter.Type), page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Party, error) {
	p, err := scanParty(r.db.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE company_id = $1 AND id = $2`, companyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Party{}, shared.E(shared.KindNotFound, "parties.Get", "party", id)
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, p Party) (Party, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO parties
(company_id, name, type, address, city, state, pincode, contact, email, gstin, pan, classification, credit_limit, opening_balance, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15) RETURNING id`,
		p.CompanyID, p.Name, string(p.Type), p.Address, p.City, p.State, p.Pincode, p.Contact, p.Email, p.GSTIN,
		p.PAN, p.Classification, p.CreditLimit, p.OpeningBalance, now).Scan(&p.ID)
	if err != nil {
		return Party{}, db.Classify("parties.Create", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *repository) Update(ctx context.Context, p Party) error {
	tag, err := r.db.Exec(ctx, `UPDATE parties SET name = $1, type = $2, address = $3, city = $4, state = $5, pincode = $6,
contact = $7, email = $8, gstin = $9, pan = $10, classification = $11, credit_limit = $12, opening_balance = $13, updated_at = $14
WHERE company_id = $15 AND id = $16`,
		p.Name, string(p.Type), p.Address, p.City, p.State, p.Pincode, p.Contact, p.Email, p.GSTIN, p.PAN,
		p.Classification, p.CreditLimit, p.OpeningBalance, time.Now().UTC(), p.CompanyID, p.ID)
	if err != nil {
		return db.Classify("parties.Update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.E(shared.KindNotFound, "parties.Update", "party", p.ID)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, companyID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM parties WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return db.Classify("parties.Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.E(shared.KindNotFound, "parties.Delete", "party", id)
	}
	return nil
}

// CountReferences counts document headers pointing at the party.
func (r *repository) CountReferences(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT
  (SELECT COUNT(*) FROM sales_invoices WHERE party_id = $1)
+ (SELECT COUNT(*) FROM purchase_orders WHERE party_id = $1)
+ (SELECT COUNT(*) FROM debit_notes WHERE party_id = $1)
+ (SELECT COUNT(*) FROM credit_notes WHERE party_id = $1)`, id).Scan(&n)
	return n, err
}
