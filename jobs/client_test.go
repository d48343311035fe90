package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/billease/billease/internal/bank"
)

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type()}, nil
}

func (f *fakeQueue) Close() error { return nil }

func TestClientEnqueueReconcile(t *testing.T) {
	q := &fakeQueue{}
	c := &Client{queue: q, logger: slog.Default()}

	require.NoError(t, c.EnqueueReconcile(context.Background(), 4, bank.ReconcileInput{BankAccount: "HDFC-01"}))
	require.Len(t, q.tasks, 1)
	require.Equal(t, TaskBankReconcile, q.tasks[0].Type())

	q.err = asynq.ErrTaskIDConflict
	require.NoError(t, c.EnqueueReconcile(context.Background(), 4, bank.ReconcileInput{BankAccount: "HDFC-01"}))

	q.err = errors.New("redis down")
	require.ErrorIs(t, c.EnqueueReconcile(context.Background(), 4, bank.ReconcileInput{BankAccount: "HDFC-01"}), q.err)
}

func TestClientEnqueueGSTCompile(t *testing.T) {
	q := &fakeQueue{}
	c := &Client{queue: q, logger: slog.Default()}

	info, err := c.EnqueueGSTCompile(context.Background(), 2, "03-2024")
	require.NoError(t, err)
	require.Equal(t, TaskGSTCompile, info.Type)

	var payload GSTCompilePayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &payload))
	require.Equal(t, "03-2024", payload.Period)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestJobsHealth(t *testing.T) {
	h := &Handler{inspector: stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Retry: 1}}, logger: slog.Default()}
	rec := httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, 3, out.Pending)
	require.Equal(t, 1, out.Retry)

	h.inspector = stubInspector{err: errors.New("redis down")}
	rec = httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	NewHandler(nil, slog.Default()).health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNewWorkerRejectsIncompleteHandler(t *testing.T) {
	_, err := NewWorker(WorkerConfig{Handlers: []TaskHandler{{Type: TaskGSTCompile}}})
	require.Error(t, err)
}
