package payroll

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/billease/billease/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages employees and their payroll runs.
type Service struct {
	repo     Repository
	audit    AuditPort
	observer shared.CalcObserver
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort, observer shared.CalcObserver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, observer: shared.ObserverOrNop(observer), logger: logger}
}

func validateEmployee(op string, e Employee) error {
	if err := shared.ValidateStruct(op, e); err != nil {
		return err
	}
	return shared.NonNegative(op,
		shared.Amount{Name: "basic_salary", Value: e.Basic},
		shared.Amount{Name: "hra", Value: e.HRA},
		shared.Amount{Name: "transport", Value: e.Transport},
		shared.Amount{Name: "medical", Value: e.Medical},
		shared.Amount{Name: "special", Value: e.Special},
		shared.Amount{Name: "pf_rate", Value: e.PFRate},
		shared.Amount{Name: "esi_rate", Value: e.ESIRate},
	)
}

func (s *Service) ListEmployees(ctx context.Context, actor shared.Identity, search string, page shared.Page) ([]Employee, int, error) {
	if err := shared.Authorize("payroll.ListEmployees", actor, shared.CapRead); err != nil {
		return nil, 0, err
	}
	return s.repo.ListEmployees(ctx, actor.CompanyID, search, page)
}

func (s *Service) GetEmployee(ctx context.Context, actor shared.Identity, id int64) (Employee, error) {
	if err := shared.Authorize("payroll.GetEmployee", actor, shared.CapRead); err != nil {
		return Employee{}, err
	}
	return s.repo.GetEmployee(ctx, actor.CompanyID, id)
}

// CreateEmployee stores a new employee. Omitted statutory rates and leave
// allowance take the company defaults.
func (s *Service) CreateEmployee(ctx context.Context, actor shared.Identity, in EmployeeInput) (Employee, error) {
	const op = "payroll.CreateEmployee"
	if err := shared.Authorize(op, actor, shared.CapMasterWrite); err != nil {
		return Employee{}, err
	}
	e := in.apply(Employee{
		CompanyID:   actor.CompanyID,
		PFRate:      DefaultPFRate,
		ESIRate:     DefaultESIRate,
		TotalLeaves: DefaultTotalLeaves,
	})
	if err := validateEmployee(op, e); err != nil {
		return Employee{}, err
	}
	created, err := s.repo.CreateEmployee(ctx, e)
	if err != nil {
		return Employee{}, err
	}
	s.record(ctx, actor, "employee:create", "employee", created.ID, map[string]any{"employee_id": created.Code})
	return created, nil
}

// UpdateEmployee rewrites pay components. Omitted rates and allowance keep
// their stored values. Shrinking the allowance below the leave already taken
// is rejected.
func (s *Service) UpdateEmployee(ctx context.Context, actor shared.Identity, id int64, in EmployeeInput) (Employee, error) {
	const op = "payroll.UpdateEmployee"
	if err := shared.Authorize(op, actor, shared.CapMasterWrite); err != nil {
		return Employee{}, err
	}
	var updated Employee
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		current, err := tx.LockEmployee(ctx, actor.CompanyID, id)
		if err != nil {
			return err
		}
		e := in.apply(current)
		if err := validateEmployee(op, e); err != nil {
			return err
		}
		if e.TotalLeaves < current.LeavesTaken {
			return shared.E(shared.KindValidation, op, "employee", id).
				Withf("total_leaves %d is below leaves already taken %d", e.TotalLeaves, current.LeavesTaken)
		}
		if err := tx.UpdateEmployee(ctx, e); err != nil {
			return err
		}
		updated, err = tx.GetEmployee(ctx, actor.CompanyID, id)
		return err
	})
	if err != nil {
		return Employee{}, err
	}
	s.record(ctx, actor, "employee:update", "employee", id, nil)
	return updated, nil
}

// DeleteEmployee removes an employee with no payroll history.
func (s *Service) DeleteEmployee(ctx context.Context, actor shared.Identity, id int64) error {
	const op = "payroll.DeleteEmployee"
	if err := shared.Authorize(op, actor, shared.CapLedgerWrite); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.LockEmployee(ctx, actor.CompanyID, id); err != nil {
			return err
		}
		runs, err := tx.CountRuns(ctx, id)
		if err != nil {
			return err
		}
		if runs > 0 {
			return shared.E(shared.KindReferentialIntegrity, op, "employee", id).Withf("referenced by %d payroll runs", runs)
		}
		return tx.DeleteEmployee(ctx, actor.CompanyID, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actor, "employee:delete", "employee", id, nil)
	return nil
}

// Compute derives the employee's run for the month. A preview is read-only;
// otherwise the run is saved and the leave balance charged in one
// transaction. Recomputing a month overwrites its draft run; processed or
// paid runs are final.
func (s *Service) Compute(ctx context.Context, actor shared.Identity, in ComputeInput) (run Run, err error) {
	const op = "payroll.Compute"
	capability := shared.CapLedgerWrite
	if in.Preview {
		capability = shared.CapRead
	}
	if err := shared.Authorize(op, actor, capability); err != nil {
		return Run{}, err
	}
	if err := shared.ValidateStruct(op, in); err != nil {
		return Run{}, err
	}
	defer func(start time.Time) { s.observer.ObserveCalculation("payroll_compute", start, err) }(time.Now())

	if in.Preview {
		emp, err := s.repo.GetEmployee(ctx, actor.CompanyID, in.EmployeeID)
		if err != nil {
			return Run{}, err
		}
		return Compute(emp, in)
	}

	month, err := NormalizeMonth(in.Month)
	if err != nil {
		return Run{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		emp, err := tx.LockEmployee(ctx, actor.CompanyID, in.EmployeeID)
		if err != nil {
			return err
		}
		existing, err := tx.RunFor(ctx, actor.CompanyID, emp.ID, month, in.Year)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			existing = Run{}
		case err != nil:
			return err
		case existing.Status != StatusDraft:
			return shared.E(shared.KindInvalidTransition, op, "payroll", existing.ID).
				Withf("%s %d run is %s", month, in.Year, existing.Status)
		default:
			emp.LeavesTaken -= existing.LeavesTaken
		}

		computed, err := Compute(emp, in)
		if err != nil {
			return err
		}
		computed.ID = existing.ID
		saved, err := tx.SaveRun(ctx, computed)
		if err != nil {
			return err
		}
		if err := tx.AdjustLeaves(ctx, emp.ID, computed.LeavesTaken-existing.LeavesTaken); err != nil {
			return err
		}
		run = saved
		return nil
	})
	if err != nil {
		return Run{}, err
	}
	s.record(ctx, actor, "payroll:compute", "payroll", run.ID, map[string]any{
		"employee_id": run.EmployeeID, "month": run.Month, "year": run.Year, "net_salary": run.Net.String(),
	})
	return run, nil
}

func (s *Service) GetRun(ctx context.Context, actor shared.Identity, id int64) (Run, error) {
	if err := shared.Authorize("payroll.GetRun", actor, shared.CapRead); err != nil {
		return Run{}, err
	}
	return s.repo.GetRun(ctx, actor.CompanyID, id)
}

func (s *Service) ListRuns(ctx context.Context, actor shared.Identity, filter RunFilter) ([]Run, error) {
	if err := shared.Authorize("payroll.ListRuns", actor, shared.CapRead); err != nil {
		return nil, err
	}
	if filter.Month != "" {
		month, err := NormalizeMonth(filter.Month)
		if err != nil {
			return nil, err
		}
		filter.Month = month
	}
	return s.repo.ListRuns(ctx, actor.CompanyID, filter)
}

// Process moves a draft run to processed.
func (s *Service) Process(ctx context.Context, actor shared.Identity, id int64) (Run, error) {
	return s.advance(ctx, actor, "payroll.Process", id, StatusProcessed)
}

// Pay moves a processed run to paid.
func (s *Service) Pay(ctx context.Context, actor shared.Identity, id int64) (Run, error) {
	return s.advance(ctx, actor, "payroll.Pay", id, StatusPaid)
}

func (s *Service) advance(ctx context.Context, actor shared.Identity, op string, id int64, to Status) (Run, error) {
	if err := shared.Authorize(op, actor, shared.CapLedgerWrite); err != nil {
		return Run{}, err
	}
	var run Run
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		current, err := tx.GetRun(ctx, actor.CompanyID, id)
		if err != nil {
			return err
		}
		if transitions[current.Status] != to {
			return shared.E(shared.KindInvalidTransition, op, "payroll", id).Withf("%s -> %s", current.Status, to)
		}
		if err := tx.SetRunStatus(ctx, actor.CompanyID, id, current.Status, to); err != nil {
			return err
		}
		run, err = tx.GetRun(ctx, actor.CompanyID, id)
		return err
	})
	if err != nil {
		return Run{}, err
	}
	s.record(ctx, actor, "payroll:"+string(to), "payroll", id, nil)
	return run, nil
}

func (s *Service) record(ctx context.Context, actor shared.Identity, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: entity, EntityID: id, Meta: meta}); err != nil {
		s.logger.Warn("audit payroll", slog.String("action", action), slog.Any("error", err))
	}
}
