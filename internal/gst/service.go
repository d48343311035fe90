package gst

import (
	"context"
	"log/slog"
	"time"

	"github.com/billease/billease/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	PeriodRecords(ctx context.Context, companyID int64, period string) ([]Record, error)
	CompaniesWithUncaptured(ctx context.Context, period shared.FilingPeriod) ([]int64, error)
	WithTx(ctx context.Context, fn func(context.Context, Store) error) error
}

// LockPort serializes filing of a period across replicas.
type LockPort interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service aggregates and files GSTR1 periods.
type Service struct {
	repo     RepositoryPort
	locker   LockPort
	audit    AuditPort
	observer shared.CalcObserver
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, locker LockPort, audit AuditPort, observer shared.CalcObserver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, locker: locker, audit: audit, observer: shared.ObserverOrNop(observer), logger: logger}
}

// Summary aggregates the period's stored records.
func (s *Service) Summary(ctx context.Context, actor shared.Identity, rawPeriod string) (sum Summary, err error) {
	if err := shared.Authorize("gst.Summary", actor, shared.CapRead); err != nil {
		return Summary{}, err
	}
	period, err := shared.ParseFilingPeriod(rawPeriod)
	if err != nil {
		return Summary{}, err
	}
	defer func(start time.Time) { s.observer.ObserveCalculation("gstr1_aggregate", start, err) }(time.Now())
	records, err := s.repo.PeriodRecords(ctx, actor.CompanyID, period.String())
	if err != nil {
		return Summary{}, err
	}
	return Aggregate(period.String(), records), nil
}

// File moves every record of the period from draft to filed. The move is
// one-way and only one caller per company period may attempt it at a time.
func (s *Service) File(ctx context.Context, actor shared.Identity, rawPeriod string) (Summary, error) {
	if err := shared.Authorize("gst.File", actor, shared.CapLedgerWrite); err != nil {
		return Summary{}, err
	}
	period, err := shared.ParseFilingPeriod(rawPeriod)
	if err != nil {
		return Summary{}, err
	}
	key := period.String()

	var summary Summary
	file := func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, st Store) error {
			invoices, err := st.PeriodInvoices(ctx, actor.CompanyID, period)
			if err != nil {
				return err
			}
			records, err := st.PeriodRecords(ctx, actor.CompanyID, key)
			if err != nil {
				return err
			}
			if err := CheckFilable(key, invoices, records); err != nil {
				return err
			}
			if _, err := st.MarkFiled(ctx, actor.CompanyID, key); err != nil {
				return err
			}
			for i := range records {
				records[i].Status = StatusFiled
			}
			summary = Aggregate(key, records)
			return nil
		})
	}
	if s.locker != nil {
		err = s.locker.WithLock(ctx, shared.FilingLockKey(actor.CompanyID, key), file)
	} else {
		err = file(ctx)
	}
	if err != nil {
		return Summary{}, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Actor:  actor,
			Action: "gstr1:file",
			Entity: "gstr1",
			Meta:   map[string]any{"period": key, "invoices": summary.Invoices, "total_tax": summary.TotalTax.String()},
		}); err != nil {
			s.logger.Warn("audit gstr1 filing", slog.Any("error", err))
		}
	}
	s.logger.Info("gstr1 filed", slog.Int64("company_id", actor.CompanyID), slog.String("period", key), slog.Int("invoices", summary.Invoices))
	return summary, nil
}

// CompileFor runs Compile for the caller's company.
func (s *Service) CompileFor(ctx context.Context, actor shared.Identity, rawPeriod string) (int, error) {
	if err := shared.Authorize("gst.Compile", actor, shared.CapLedgerWrite); err != nil {
		return 0, err
	}
	n, err := s.Compile(ctx, actor.CompanyID, rawPeriod)
	if err != nil {
		return 0, err
	}
	s.logger.Info("gstr1 compiled", slog.Int64("company_id", actor.CompanyID), slog.String("period", rawPeriod), slog.Int("created", n))
	return n, nil
}

// CompileAll runs Compile for every company with uncaptured invoices in the
// period and returns the total number of records created. A failing company
// is logged and skipped; the first such error is returned after the rest ran.
func (s *Service) CompileAll(ctx context.Context, rawPeriod string) (int, error) {
	period, err := shared.ParseFilingPeriod(rawPeriod)
	if err != nil {
		return 0, err
	}
	companies, err := s.repo.CompaniesWithUncaptured(ctx, period)
	if err != nil {
		return 0, err
	}
	var (
		total    int
		firstErr error
	)
	for _, companyID := range companies {
		n, err := s.Compile(ctx, companyID, period.String())
		if err != nil {
			s.logger.Error("compile gstr1", slog.Int64("company_id", companyID), slog.String("period", period.String()), slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total += n
	}
	return total, firstErr
}

// Compile writes records for posted invoices of the period that have none,
// returning how many were created. Existing records are left untouched.
func (s *Service) Compile(ctx context.Context, companyID int64, rawPeriod string) (int, error) {
	period, err := shared.ParseFilingPeriod(rawPeriod)
	if err != nil {
		return 0, err
	}
	created := 0
	err = s.repo.WithTx(ctx, func(ctx context.Context, st Store) error {
		created = 0
		invoices, err := st.UncapturedInvoices(ctx, companyID, period)
		if err != nil {
			return err
		}
		for _, inv := range invoices {
			if _, err := Capture(ctx, st, inv); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
