package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/billease/billease/internal/bank"
	"github.com/billease/billease/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBankReconcile runs a reconciliation pass for one bank account.
	TaskBankReconcile = "bank:reconcile"
	// TaskGSTCompile writes missing GSTR1 records for a filing period.
	TaskGSTCompile = "gst:compile"
	// TaskIdempotencyCleanup purges old idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// taskNamespace seeds deterministic task IDs so identical requests collapse
// into one queued task.
var taskNamespace = uuid.MustParse("6f1c2a7e-3b1d-4c55-9a0e-8d3f5b2c9e41")

// ReconcilePayload carries a queued reconciliation request.
type ReconcilePayload struct {
	CompanyID int64               `json:"company_id"`
	Input     bank.ReconcileInput `json:"input"`
}

// NewReconcileTask constructs a bank reconciliation task.
func NewReconcileTask(companyID int64, in bank.ReconcileInput) (*asynq.Task, error) {
	in.Async = false
	body, err := json.Marshal(ReconcilePayload{CompanyID: companyID, Input: in})
	if err != nil {
		return nil, err
	}
	id := uuid.NewSHA1(taskNamespace, append([]byte(TaskBankReconcile+":"), body...)).String()
	return asynq.NewTask(TaskBankReconcile, body, asynq.Queue(QueueDefault), asynq.TaskID(id), asynq.MaxRetry(3)), nil
}

// GSTCompilePayload names the filing period to compile. A zero CompanyID
// compiles every company.
type GSTCompilePayload struct {
	CompanyID int64  `json:"company_id,omitempty"`
	Period    string `json:"period,omitempty"`
}

// NewGSTCompileTask constructs a GSTR1 compile task. An empty period is
// resolved to the previous month when the task runs.
func NewGSTCompileTask(companyID int64, period string) (*asynq.Task, error) {
	if period != "" {
		if _, err := shared.ParseFilingPeriod(period); err != nil {
			return nil, err
		}
	}
	body, err := json.Marshal(GSTCompilePayload{CompanyID: companyID, Period: period})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGSTCompile, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// CleanupPayload bounds the age of idempotency keys to keep.
type CleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewCleanupTask constructs an idempotency cleanup task.
func NewCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	if olderThan <= 0 {
		return nil, fmt.Errorf("jobs: cleanup age must be positive, got %s", olderThan)
	}
	body, err := json.Marshal(CleanupPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}

func previousPeriod(now time.Time) string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return shared.PeriodOf(first.AddDate(0, -1, 0)).String()
}
