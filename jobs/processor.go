package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/billease/billease/internal/bank"
	"github.com/billease/billease/internal/shared"
)

// Reconciler runs a reconciliation pass without an interactive caller.
type Reconciler interface {
	Run(ctx context.Context, companyID int64, in bank.ReconcileInput) (bank.Result, error)
}

// Compiler writes GSTR1 records for uncaptured invoices.
type Compiler interface {
	Compile(ctx context.Context, companyID int64, period string) (int, error)
	CompileAll(ctx context.Context, period string) (int, error)
}

// Cleaner purges idempotency keys.
type Cleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// JobObserver records processed tasks.
type JobObserver interface {
	ObserveJob(task string, err error)
}

// Processor handles billease tasks.
type Processor struct {
	reconciler Reconciler
	compiler   Compiler
	cleaner    Cleaner
	observer   JobObserver
	logger     *slog.Logger
	now        func() time.Time
}

// NewProcessor builds Processor. Nil dependencies disable their task.
func NewProcessor(reconciler Reconciler, compiler Compiler, cleaner Cleaner, observer JobObserver, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{reconciler: reconciler, compiler: compiler, cleaner: cleaner, observer: observer, logger: logger, now: time.Now}
}

// Handlers lists the task handlers for the worker mux.
func (p *Processor) Handlers() []TaskHandler {
	var out []TaskHandler
	if p.reconciler != nil {
		out = append(out, TaskHandler{Type: TaskBankReconcile, Handler: p.observed(TaskBankReconcile, p.HandleReconcile)})
	}
	if p.compiler != nil {
		out = append(out, TaskHandler{Type: TaskGSTCompile, Handler: p.observed(TaskGSTCompile, p.HandleGSTCompile)})
	}
	if p.cleaner != nil {
		out = append(out, TaskHandler{Type: TaskIdempotencyCleanup, Handler: p.observed(TaskIdempotencyCleanup, p.HandleCleanup)})
	}
	return out
}

func (p *Processor) observed(task string, fn asynq.HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		err := fn(ctx, t)
		if p.observer != nil {
			p.observer.ObserveJob(task, err)
		}
		return err
	}
}

// HandleReconcile processes TaskBankReconcile tasks.
func (p *Processor) HandleReconcile(ctx context.Context, t *asynq.Task) error {
	var payload ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("jobs: decode reconcile payload: %v: %w", err, asynq.SkipRetry)
	}
	res, err := p.reconciler.Run(ctx, payload.CompanyID, payload.Input)
	if err != nil {
		p.logger.Error("reconcile task", slog.Int64("company_id", payload.CompanyID), slog.Any("error", err))
		return retryPolicy(err)
	}
	p.logger.Info("reconcile task done",
		slog.Int64("company_id", payload.CompanyID),
		slog.String("bank_account", payload.Input.BankAccount),
		slog.Int("matches", len(res.Matches)))
	return nil
}

// HandleGSTCompile processes TaskGSTCompile tasks.
func (p *Processor) HandleGSTCompile(ctx context.Context, t *asynq.Task) error {
	var payload GSTCompilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("jobs: decode gst payload: %v: %w", err, asynq.SkipRetry)
	}
	period := payload.Period
	if period == "" {
		period = previousPeriod(p.now())
	}
	var (
		n   int
		err error
	)
	if payload.CompanyID == 0 {
		n, err = p.compiler.CompileAll(ctx, period)
	} else {
		n, err = p.compiler.Compile(ctx, payload.CompanyID, period)
	}
	if err != nil {
		p.logger.Error("gst compile task", slog.String("period", period), slog.Any("error", err))
		return retryPolicy(err)
	}
	p.logger.Info("gst compile task done", slog.String("period", period), slog.Int("created", n))
	return nil
}

// HandleCleanup processes TaskIdempotencyCleanup tasks.
func (p *Processor) HandleCleanup(ctx context.Context, t *asynq.Task) error {
	var payload CleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.OlderThan <= 0 {
		return fmt.Errorf("jobs: invalid cleanup payload: %w", asynq.SkipRetry)
	}
	return retryPolicy(p.cleaner.Cleanup(ctx, payload.OlderThan))
}

// retryPolicy marks classified domain errors as terminal. Only unclassified
// store or transport failures go back to the queue.
func retryPolicy(err error) error {
	if err == nil || shared.KindOf(err) == "" {
		return err
	}
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}
