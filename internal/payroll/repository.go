package payroll

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billease/billease/internal/platform/db"
	"github.com/billease/billease/internal/shared"
)

// Repository persists employees and payroll runs.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	ListEmployees(ctx context.Context, companyID int64, search string, page shared.Page) ([]Employee, int, error)
	GetEmployee(ctx context.Context, companyID, id int64) (Employee, error)
	LockEmployee(ctx context.Context, companyID, id int64) (Employee, error)
	CreateEmployee(ctx context.Context, e Employee) (Employee, error)
	UpdateEmployee(ctx context.Context, e Employee) error
	DeleteEmployee(ctx context.Context, companyID, id int64) error
	CountRuns(ctx context.Context, employeeID int64) (int, error)
	AdjustLeaves(ctx context.Context, employeeID int64, delta int) error
	RunFor(ctx context.Context, companyID, employeeID int64, month string, year int) (Run, error)
	GetRun(ctx context.Context, companyID, id int64) (Run, error)
	SaveRun(ctx context.Context, run Run) (Run, error)
	SetRunStatus(ctx context.Context, companyID, id int64, from, to Status) error
	ListRuns(ctx context.Context, companyID int64, filter RunFilter) ([]Run, error)
}

type repository struct {
	db   db.Querier
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

const txLevel = pgx.ReadCommitted

// WithTx runs at read committed; checks made after LockEmployee read the
// latest committed runs.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTxLevel(ctx, r.pool, txLevel, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const employeeColumns = `id, company_id, employee_id, name, COALESCE(department, ''), COALESCE(designation, ''),
basic_salary, hra, transport, medical, special, pf_rate, esi_rate, total_leaves, leaves_taken, created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.CompanyID, &e.Code, &e.Name, &e.Department, &e.Designation,
		&e.Basic, &e.HRA, &e.Transport, &e.Medical, &e.Special, &e.PFRate, &e.ESIRate,
		&e.TotalLeaves, &e.LeavesTaken, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *repository) ListEmployees(ctx context.Context, companyID int64, search string, page shared.Page) ([]Employee, int, error) {
	pattern := "%" + search + "%"
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM employees WHERE company_id = $1 AND (name ILIKE $2 OR employee_id ILIKE $2)`,
		companyID, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+employeeColumns+` FROM employees
WHERE company_id = $1 AND (name ILIKE $2 OR employee_id ILIKE $2)
ORDER BY employee_id LIMIT $3 OFFSET $4`, companyID, pattern, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, e)
	}
	return result, total, rows.Err()
}

func (r *repository) GetEmployee(ctx context.Context, companyID, id int64) (Employee, error) {
	return r.employee(ctx, "payroll.GetEmployee", `SELECT `+employeeColumns+` FROM employees WHERE company_id = $1 AND id = $2`, companyID, id)
}

// LockEmployee reads the employee and holds its row until the transaction
// ends so leave balances are updated serially.
func (r *repository) LockEmployee(ctx context.Context, companyID, id int64) (Employee, error) {
	return r.employee(ctx, "payroll.LockEmployee", `SELECT `+employeeColumns+` FROM employees WHERE company_id = $1 AND id = $2 FOR UPDATE`, companyID, id)
}

func (r *repository) employee(ctx context.Context, op, sql string, companyID, id int64) (Employee, error) {
	e, err := scanEmployee(r.db.QueryRow(ctx, sql, companyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, shared.E(shared.KindNotFound, op, "employee", id)
	}
	if err != nil {
		return Employee{}, db.Classify(op, err)
	}
	return e, nil
}

func (r *repository) CreateEmployee(ctx context.Context, e Employee) (Employee, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO employees
(company_id, employee_id, name, department, designation, basic_salary, hra, transport, medical, special,
 pf_rate, esi_rate, total_leaves, leaves_taken, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 0, $14, $14) RETURNING id`,
		e.CompanyID, e.Code, e.Name, e.Department, e.Designation, e.Basic, e.HRA, e.Transport, e.Medical, e.Special,
		e.PFRate, e.ESIRate, e.TotalLeaves, now).Scan(&e.ID)
	if err != nil {
		return Employee{}, db.Classify("payroll.CreateEmployee", err)
	}
	e.LeavesTaken = 0
	e.CreatedAt, e.UpdatedAt = now, now
	return e, nil
}

// UpdateEmployee rewrites pay components. leaves_taken is owned by payroll
// runs and is left alone.
func (r *repository) UpdateEmployee(ctx context.Context, e Employee) error {
	tag, err := r.db.Exec(ctx, `UPDATE employees SET employee_id = $3, name = $4, department = $5, designation = $6,
basic_salary = $7, hra = $8, transport = $9, medical = $10, special = $11, pf_rate = $12, esi_rate = $13,
total_leaves = $14, updated_at = $15
WHERE company_id = $1 AND id = $2`,
		e.CompanyID, e.ID, e.Code, e.Name, e.Department, e.Designation, e.Basic, e.HRA, e.Transport, e.Medical,
		e.Special, e.PFRate, e.ESIRate, e.TotalLeaves, time.Now().UTC())
	if err != nil {
		return db.Classify("payroll.UpdateEmployee", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.E(shared.KindNotFound, "payroll.UpdateEmployee", "employee", e.ID)
	}
	return nil
}

func (r *repository) DeleteEmployee(ctx context.Context, companyID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM employees WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return db.Classify("payroll.DeleteEmployee", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.E(shared.KindNotFound, "payroll.DeleteEmployee", "employee", id)
	}
	return nil
}

func (r *repository) CountRuns(ctx context.Context, employeeID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payrolls WHERE employee_id = $1`, employeeID).Scan(&n)
	return n, err
}

func (r *repository) AdjustLeaves(ctx context.Context, employeeID int64, delta int) error {
	if delta == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `UPDATE employees SET leaves_taken = leaves_taken + $2, updated_at = $3 WHERE id = $1`,
		employeeID, delta, time.Now().UTC())
	return db.Classify("payroll.AdjustLeaves", err)
}

const runColumns = `id, company_id, employee_id, month, year, basic_salary, hra, transport, medical, special,
gross_salary, allowances, pf, esi, tds, other_deductions, deductions, net_salary, leaves_taken, status, created_at, updated_at`

func scanRun(row pgx.Row) (Run, error) {
	var (
		run    Run
		status string
	)
	err := row.Scan(&run.ID, &run.CompanyID, &run.EmployeeID, &run.Month, &run.Year, &run.Basic, &run.HRA,
		&run.Transport, &run.Medical, &run.Special, &run.Gross, &run.Allowances, &run.PF, &run.ESI, &run.TDS,
		&run.OtherDeductions, &run.Deductions, &run.Net, &run.LeavesTaken, &status, &run.CreatedAt, &run.UpdatedAt)
	run.Status = Status(status)
	return run, err
}

func (r *repository) RunFor(ctx context.Context, companyID, employeeID int64, month string, year int) (Run, error) {
	run, err := scanRun(r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM payrolls
WHERE company_id = $1 AND employee_id = $2 AND month = $3 AND year = $4`, companyID, employeeID, month, year))
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, shared.E(shared.KindNotFound, "payroll.RunFor", "payroll", employeeID)
	}
	if err != nil {
		return Run{}, db.Classify("payroll.RunFor", err)
	}
	return run, nil
}

func (r *repository) GetRun(ctx context.Context, companyID, id int64) (Run, error) {
	run, err := scanRun(r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM payrolls WHERE company_id = $1 AND id = $2`, companyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, shared.E(shared.KindNotFound, "payroll.GetRun", "payroll", id)
	}
	if err != nil {
		return Run{}, db.Classify("payroll.GetRun", err)
	}
	return run, nil
}

// SaveRun inserts a new run or overwrites a draft one. The unique index on
// (employee_id, month, year) rejects a second insert.
func (r *repository) SaveRun(ctx context.Context, run Run) (Run, error) {
	now := time.Now().UTC()
	if run.ID == 0 {
		err := r.db.QueryRow(ctx, `INSERT INTO payrolls
(company_id, employee_id, month, year, basic_salary, hra, transport, medical, special, gross_salary, allowances,
 pf, esi, tds, other_deductions, deductions, net_salary, leaves_taken, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $20)
RETURNING id, created_at`,
			run.CompanyID, run.EmployeeID, run.Month, run.Year, run.Basic, run.HRA, run.Transport, run.Medical,
			run.Special, run.Gross, run.Allowances, run.PF, run.ESI, run.TDS, run.OtherDeductions, run.Deductions,
			run.Net, run.LeavesTaken, string(run.Status), now).Scan(&run.ID, &run.CreatedAt)
		if err != nil {
			return Run{}, db.Classify("payroll.SaveRun", err)
		}
		run.UpdatedAt = now
		return run, nil
	}
	err := r.db.QueryRow(ctx, `UPDATE payrolls SET basic_salary = $3, hra = $4, transport = $5, medical = $6,
special = $7, gross_salary = $8, allowances = $9, pf = $10, esi = $11, tds = $12, other_deductions = $13,
deductions = $14, net_salary = $15, leaves_taken = $16, updated_at = $17
WHERE company_id = $1 AND id = $2 AND status = 'draft' RETURNING created_at`,
		run.CompanyID, run.ID, run.Basic, run.HRA, run.Transport, run.Medical, run.Special, run.Gross,
		run.Allowances, run.PF, run.ESI, run.TDS, run.OtherDeductions, run.Deductions, run.Net, run.LeavesTaken,
		now).Scan(&run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, shared.E(shared.KindConcurrencyConflict, "payroll.SaveRun", "payroll", run.ID).Withf("run is no longer draft")
	}
	if err != nil {
		return Run{}, db.Classify("payroll.SaveRun", err)
	}
	run.UpdatedAt = now
	return run, nil
}

func (r *repository) SetRunStatus(ctx context.Context, companyID, id int64, from, to Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE payrolls SET status = $4, updated_at = $5
WHERE company_id = $1 AND id = $2 AND status = $3`, companyID, id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return db.Classify("payroll.SetRunStatus", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.E(shared.KindConcurrencyConflict, "payroll.SetRunStatus", "payroll", id)
	}
	return nil
}

func (r *repository) ListRuns(ctx context.Context, companyID int64, filter RunFilter) ([]Run, error) {
	rows, err := r.db.Query(ctx, `SELECT `+runColumns+` FROM payrolls
WHERE company_id = $1 AND ($2 = '' OR month = $2) AND ($3 = 0 OR year = $3)
ORDER BY year DESC, employee_id, id`, companyID, filter.Month, filter.Year)
	if err != nil {
		return nil, db.Classify("payroll.ListRuns", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
