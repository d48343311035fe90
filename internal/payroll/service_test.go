package payroll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/billease/billease/internal/shared"
)

type memoryRepo struct {
	employees map[int64]Employee
	runs      map[int64]Run
	nextID    int64
}

func newMemoryRepo(emps ...Employee) *memoryRepo {
	m := &memoryRepo{employees: map[int64]Employee{}, runs: map[int64]Run{}, nextID: 100}
	for _, e := range emps {
		m.employees[e.ID] = e
	}
	return m
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	emps := make(map[int64]Employee, len(m.employees))
	for k, v := range m.employees {
		emps[k] = v
	}
	runs := make(map[int64]Run, len(m.runs))
	for k, v := range m.runs {
		runs[k] = v
	}
	if err := fn(ctx, m); err != nil {
		m.employees, m.runs = emps, runs
		return err
	}
	return nil
}

func (m *memoryRepo) ListEmployees(_ context.Context, companyID int64, _ string, _ shared.Page) ([]Employee, int, error) {
	var out []Employee
	for _, e := range m.employees {
		if e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) GetEmployee(_ context.Context, companyID, id int64) (Employee, error) {
	e, ok := m.employees[id]
	if !ok || e.CompanyID != companyID {
		return Employee{}, shared.E(shared.KindNotFound, "memory", "employee", id)
	}
	return e, nil
}

func (m *memoryRepo) LockEmployee(ctx context.Context, companyID, id int64) (Employee, error) {
	return m.GetEmployee(ctx, companyID, id)
}

func (m *memoryRepo) CreateEmployee(_ context.Context, e Employee) (Employee, error) {
	m.nextID++
	e.ID = m.nextID
	m.employees[e.ID] = e
	return e, nil
}

func (m *memoryRepo) UpdateEmployee(_ context.Context, e Employee) error {
	current, ok := m.employees[e.ID]
	if !ok {
		return shared.E(shared.KindNotFound, "memory", "employee", e.ID)
	}
	e.LeavesTaken = current.LeavesTaken
	m.employees[e.ID] = e
	return nil
}

func (m *memoryRepo) DeleteEmployee(_ context.Context, _ int64, id int64) error {
	delete(m.employees, id)
	return nil
}

func (m *memoryRepo) CountRuns(_ context.Context, employeeID int64) (int, error) {
	n := 0
	for _, r := range m.runs {
		if r.EmployeeID == employeeID {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) AdjustLeaves(_ context.Context, employeeID int64, delta int) error {
	e := m.employees[employeeID]
	e.LeavesTaken += delta
	m.employees[employeeID] = e
	return nil
}

func (m *memoryRepo) RunFor(_ context.Context, companyID, employeeID int64, month string, year int) (Run, error) {
	for _, r := range m.runs {
		if r.CompanyID == companyID && r.EmployeeID == employeeID && r.Month == month && r.Year == year {
			return r, nil
		}
	}
	return Run{}, shared.E(shared.KindNotFound, "memory", "payroll", employeeID)
}

func (m *memoryRepo) GetRun(_ context.Context, companyID, id int64) (Run, error) {
	r, ok := m.runs[id]
	if !ok || r.CompanyID != companyID {
		return Run{}, shared.E(shared.KindNotFound, "memory", "payroll", id)
	}
	return r, nil
}

func (m *memoryRepo) SaveRun(_ context.Context, run Run) (Run, error) {
	if run.ID == 0 {
		m.nextID++
		run.ID = m.nextID
	}
	m.runs[run.ID] = run
	return run, nil
}

func (m *memoryRepo) SetRunStatus(_ context.Context, _ int64, id int64, from, to Status) error {
	r := m.runs[id]
	if r.Status != from {
		return shared.E(shared.KindConcurrencyConflict, "memory", "payroll", id)
	}
	r.Status = to
	m.runs[id] = r
	return nil
}

func (m *memoryRepo) ListRuns(_ context.Context, companyID int64, filter RunFilter) ([]Run, error) {
	var out []Run
	for _, r := range m.runs {
		if r.CompanyID == companyID && (filter.Month == "" || r.Month == filter.Month) && (filter.Year == 0 || r.Year == filter.Year) {
			out = append(out, r)
		}
	}
	return out, nil
}

type countingObserver struct{ calls map[string]int }

func (o *countingObserver) ObserveCalculation(name string, _ time.Time, _ error) {
	if o.calls == nil {
		o.calls = map[string]int{}
	}
	o.calls[name]++
}

var (
	accountant = shared.Identity{UserID: 1, Role: shared.RoleAccountant, CompanyID: 1}
	manager    = shared.Identity{UserID: 2, Role: shared.RoleManager, CompanyID: 1}
)

func TestComputeSavesRunAndChargesLeave(t *testing.T) {
	repo := newMemoryRepo(sampleEmployee())
	obs := &countingObserver{}
	svc := NewService(repo, nil, obs, nil)

	run, err := svc.Compute(context.Background(), accountant, ComputeInput{EmployeeID: 3, Month: "april", Year: 2024, LeavesTaken: 1})
	require.NoError(t, err)
	require.NotZero(t, run.ID)
	require.Equal(t, "April", run.Month)
	require.Equal(t, 11, repo.employees[3].LeavesTaken)
	require.Equal(t, 1, obs.calls["payroll_compute"])

	again, err := svc.Compute(context.Background(), accountant, ComputeInput{EmployeeID: 3, Month: "Apr", Year: 2024, LeavesTaken: 2})
	require.NoError(t, err)
	require.Equal(t, run.ID, again.ID)
	require.Len(t, repo.runs, 1)
	require.Equal(t, 12, repo.employees[3].LeavesTaken)

	_, err = svc.Compute(context.Background(), accountant, ComputeInput{EmployeeID: 3, Month: "May", Year: 2024, LeavesTaken: 1})
	require.True(t, errors.Is(err, ErrLeaveOverflow))
	require.Len(t, repo.runs, 1)
	require.Equal(t, 12, repo.employees[3].LeavesTaken)
}

func TestComputePreviewDoesNotSave(t *testing.T) {
	repo := newMemoryRepo(sampleEmployee())
	svc := NewService(repo, nil, nil, nil)

	run, err := svc.Compute(context.Background(), manager, ComputeInput{EmployeeID: 3, Month: "April", Year: 2024, LeavesTaken: 2, Preview: true})
	require.NoError(t, err)
	require.Zero(t, run.ID)
	require.Empty(t, repo.runs)
	require.Equal(t, 10, repo.employees[3].LeavesTaken)

	_, err = svc.Compute(context.Background(), manager, ComputeInput{EmployeeID: 3, Month: "April", Year: 2024})
	require.True(t, errors.Is(err, shared.ErrForbidden))
}

func TestRunLifecycle(t *testing.T) {
	repo := newMemoryRepo(sampleEmployee())
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	run, err := svc.Compute(ctx, accountant, ComputeInput{EmployeeID: 3, Month: "June", Year: 2024})
	require.NoError(t, err)

	_, err = svc.Pay(ctx, accountant, run.ID)
	require.True(t, errors.Is(err, shared.ErrInvalidTransition))

	processed, err := svc.Process(ctx, accountant, run.ID)
	require.NoError(t, err)
	require.Equal(t, StatusProcessed, processed.Status)

	_, err = svc.Compute(ctx, accountant, ComputeInput{EmployeeID: 3, Month: "June", Year: 2024})
	require.True(t, errors.Is(err, shared.ErrInvalidTransition))

	paid, err := svc.Pay(ctx, accountant, run.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)

	_, err = svc.Process(ctx, accountant, run.ID)
	require.True(t, errors.Is(err, shared.ErrInvalidTransition))

	runs, err := svc.ListRuns(ctx, manager, RunFilter{Month: "jun", Year: 2024})
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestEmployeeLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateEmployee(ctx, manager, EmployeeInput{Code: " EMP-9 ", Name: "Ravi", Basic: d("20000")})
	require.NoError(t, err)
	require.Equal(t, "EMP-9", created.Code)
	require.True(t, created.PFRate.Equal(DefaultPFRate))
	require.True(t, created.ESIRate.Equal(DefaultESIRate))
	require.Equal(t, DefaultTotalLeaves, created.TotalLeaves)

	_, err = svc.CreateEmployee(ctx, manager, EmployeeInput{Code: "EMP-10", Name: "Neg", Basic: d("-1")})
	require.True(t, errors.Is(err, shared.ErrValidation))

	_, err = svc.Compute(ctx, accountant, ComputeInput{EmployeeID: created.ID, Month: "July", Year: 2024, LeavesTaken: 4})
	require.NoError(t, err)

	_, err = svc.UpdateEmployee(ctx, manager, created.ID, EmployeeInput{Code: "EMP-9", Name: "Ravi", Basic: d("21000"), TotalLeaves: intp(3)})
	require.True(t, errors.Is(err, shared.ErrValidation))

	updated, err := svc.UpdateEmployee(ctx, manager, created.ID, EmployeeInput{Code: "EMP-9", Name: "Ravi K", Basic: d("21000"), TotalLeaves: intp(15)})
	require.NoError(t, err)
	require.Equal(t, 4, updated.LeavesTaken)
	require.True(t, updated.PFRate.Equal(DefaultPFRate))
	require.Equal(t, "Ravi K", updated.Name)

	err = svc.DeleteEmployee(ctx, accountant, created.ID)
	require.True(t, errors.Is(err, shared.ErrReferentialIntegrity))

	err = svc.DeleteEmployee(ctx, manager, created.ID)
	require.True(t, errors.Is(err, shared.ErrForbidden))
}

func intp(v int) *int { return &v }

func TestCreateEmployeeKeepsExplicitZeroRates(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)
	zero := decimal.Zero
	created, err := svc.CreateEmployee(context.Background(), manager, EmployeeInput{
		Code: "EMP-11", Name: "Meera", Basic: d("30000"),
		PFRate: &zero, ESIRate: &zero, TotalLeaves: intp(0),
	})
	require.NoError(t, err)
	require.True(t, created.PFRate.IsZero())
	require.True(t, created.ESIRate.IsZero())
	require.Zero(t, created.TotalLeaves)

	updated, err := svc.UpdateEmployee(context.Background(), manager, created.ID, EmployeeInput{Code: "EMP-11", Name: "Meera", Basic: d("31000")})
	require.NoError(t, err)
	require.True(t, updated.ESIRate.IsZero())
	require.Zero(t, updated.TotalLeaves)
}
