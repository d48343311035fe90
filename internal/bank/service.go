package bank

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/billease/billease/internal/platform/money"
	"github.com/billease/billease/internal/shared"
)

// DefaultDateTolerance is used when neither the config nor the request set one.
const DefaultDateTolerance = 72 * time.Hour

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, Store) error) error
}

// Enqueuer hands a reconciliation to the background worker.
type Enqueuer interface {
	EnqueueReconcile(ctx context.Context, companyID int64, in ReconcileInput) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service imports statements and reconciles them.
type Service struct {
	repo      RepositoryPort
	enqueuer  Enqueuer
	audit     AuditPort
	observer  shared.CalcObserver
	logger    *slog.Logger
	tolerance time.Duration
	now       func() time.Time
}

// NewService builds Service. A zero tolerance falls back to DefaultDateTolerance.
func NewService(repo RepositoryPort, enqueuer Enqueuer, audit AuditPort, observer shared.CalcObserver, logger *slog.Logger, tolerance time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if tolerance <= 0 {
		tolerance = DefaultDateTolerance
	}
	return &Service{
		repo:      repo,
		enqueuer:  enqueuer,
		audit:     audit,
		observer:  shared.ObserverOrNop(observer),
		logger:    logger,
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Import stores statement rows for one account in a single transaction.
func (s *Service) Import(ctx context.Context, actor shared.Identity, in ImportInput) ([]Transaction, error) {
	const op = "bank.Import"
	if err := shared.Authorize(op, actor, shared.CapLedgerWrite); err != nil {
		return nil, err
	}
	in.BankAccount = strings.TrimSpace(in.BankAccount)
	if err := shared.ValidateStruct(op, in); err != nil {
		return nil, err
	}
	for i, row := range in.Transactions {
		if !row.Amount.IsPositive() {
			return nil, shared.E(shared.KindValidation, op, "amount").Withf("row %d: amount must be positive", i+1)
		}
	}

	out := make([]Transaction, 0, len(in.Transactions))
	err := s.repo.WithTx(ctx, func(ctx context.Context, st Store) error {
		out = out[:0]
		for _, row := range in.Transactions {
			t := Transaction{
				CompanyID:   actor.CompanyID,
				BankAccount: in.BankAccount,
				Date:        row.Date,
				Description: strings.TrimSpace(row.Description),
				Amount:      money.Round(row.Amount),
				Type:        row.Type,
				Balance:     money.Round(row.Balance),
				Reference:   strings.TrimSpace(row.Reference),
			}
			id, err := st.InsertTransaction(ctx, t)
			if err != nil {
				return err
			}
			t.ID = id
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "bank:import", map[string]any{"bank_account": in.BankAccount, "rows": len(out)})
	return out, nil
}

// Reconcile runs a pass for the caller's company. With Async set and a
// worker configured the pass is queued and queued is reported true.
func (s *Service) Reconcile(ctx context.Context, actor shared.Identity, in ReconcileInput) (res Result, queued bool, err error) {
	const op = "bank.Reconcile"
	capability := shared.CapLedgerWrite
	if in.DryRun {
		capability = shared.CapRead
	}
	if err := shared.Authorize(op, actor, capability); err != nil {
		return Result{}, false, err
	}
	if err := s.validate(op, &in); err != nil {
		return Result{}, false, err
	}
	if in.Async && !in.DryRun && s.enqueuer != nil {
		if err := s.enqueuer.EnqueueReconcile(ctx, actor.CompanyID, in); err != nil {
			return Result{}, false, err
		}
		return Result{}, true, nil
	}
	res, err = s.Run(ctx, actor.CompanyID, in)
	if err != nil {
		return Result{}, false, err
	}
	if !in.DryRun && len(res.Matches) > 0 {
		s.record(ctx, actor, "bank:reconcile", map[string]any{"bank_account": in.BankAccount, "matches": len(res.Matches)})
	}
	return res, false, nil
}

func (s *Service) validate(op string, in *ReconcileInput) error {
	in.BankAccount = strings.TrimSpace(in.BankAccount)
	if err := shared.ValidateStruct(op, *in); err != nil {
		return err
	}
	if !in.From.IsZero() && !in.To.IsZero() && in.To.Before(in.From) {
		return shared.E(shared.KindValidation, op, "period").Withf("to must not be before from")
	}
	return nil
}

// Run loads open rows, matches them and, unless DryRun is set, marks the
// matched bank rows reconciled in one transaction. It performs no
// authorization and is shared with the background worker.
func (s *Service) Run(ctx context.Context, companyID int64, in ReconcileInput) (res Result, err error) {
	defer func(start time.Time) { s.observer.ObserveCalculation("bank_reconcile", start, err) }(time.Now())

	tolerance := s.tolerance
	if in.ToleranceDays != nil {
		tolerance = time.Duration(*in.ToleranceDays) * 24 * time.Hour
	}
	asOf := s.now().UTC().Truncate(24 * time.Hour)

	err = s.repo.WithTx(ctx, func(ctx context.Context, st Store) error {
		bank, err := st.OpenTransactions(ctx, companyID, in.BankAccount, in.From, in.To)
		if err != nil {
			return err
		}
		ledgerFrom, ledgerTo := in.From, in.To
		if !ledgerFrom.IsZero() {
			ledgerFrom = ledgerFrom.Add(-tolerance)
		}
		if !ledgerTo.IsZero() {
			ledgerTo = ledgerTo.Add(tolerance)
		}
		ledger, err := st.OpenLedger(ctx, companyID, ledgerFrom, ledgerTo)
		if err != nil {
			return err
		}
		res, err = Reconcile(bank, ledger, Options{DateTolerance: tolerance, Manual: in.Manual, AsOf: asOf})
		if err != nil {
			return err
		}
		if in.DryRun {
			return nil
		}
		for _, m := range res.Matches {
			if err := st.MarkReconciled(ctx, companyID, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("bank reconciliation",
		slog.Int64("company_id", companyID),
		slog.String("bank_account", in.BankAccount),
		slog.Int("matches", len(res.Matches)),
		slog.Int("unmatched_bank", len(res.UnmatchedBank)),
		slog.Int("candidates", len(res.Candidates)),
		slog.Bool("dry_run", in.DryRun))
	return res, nil
}

func (s *Service) record(ctx context.Context, actor shared.Identity, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "bank_transactions", Meta: meta}); err != nil {
		s.logger.Warn("audit bank", slog.String("action", action), slog.Any("error", err))
	}
}
