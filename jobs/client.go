package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/billease/billease/internal/bank"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client puts work on the queue for the API binary.
type Client struct {
	queue  enqueuer
	logger *slog.Logger
}

// NewClient connects a queue client to redis.
func NewClient(redisOpts asynq.RedisClientOpt, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{queue: asynq.NewClient(redisOpts), logger: logger}
}

var _ bank.Enqueuer = (*Client)(nil)

// EnqueueReconcile queues a reconciliation pass. An identical pending
// request counts as queued.
func (c *Client) EnqueueReconcile(ctx context.Context, companyID int64, in bank.ReconcileInput) error {
	task, err := NewReconcileTask(companyID, in)
	if err != nil {
		return err
	}
	info, err := c.queue.EnqueueContext(ctx, task)
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict):
		c.logger.Info("reconcile already queued", slog.Int64("company_id", companyID), slog.String("bank_account", in.BankAccount))
		return nil
	case err != nil:
		return err
	}
	c.logger.Info("reconcile queued", slog.String("task_id", info.ID), slog.Int64("company_id", companyID))
	return nil
}

// EnqueueGSTCompile queues a GSTR1 compile for a company and period.
func (c *Client) EnqueueGSTCompile(ctx context.Context, companyID int64, period string) (*asynq.TaskInfo, error) {
	task, err := NewGSTCompileTask(companyID, period)
	if err != nil {
		return nil, err
	}
	return c.queue.EnqueueContext(ctx, task)
}

// Close releases the redis connection.
func (c *Client) Close() error {
	return c.queue.Close()
}
