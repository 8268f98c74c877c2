package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	jobmetrics "github.com/odyssey-erp/odyssey-wms/internal/jobs"
)

type stubReconciler struct {
	drift []inventory.Drift
	err   error
	calls int
}

func (s *stubReconciler) Reconcile(context.Context) ([]inventory.Drift, error) {
	s.calls++
	return s.drift, s.err
}

type stubCleaner struct {
	retention time.Duration
	removed   int64
	err       error
}

func (s *stubCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	s.retention = olderThan
	return s.removed, s.err
}

type stubEnqueuer struct {
	err error
}

func (s stubEnqueuer) EnqueueReconcile(context.Context) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReconcileJobReportsDrift(t *testing.T) {
	rec := &stubReconciler{drift: []inventory.Drift{{SKU: "X", Location: "A1", Inventory: 5, Ledger: 4}}}
	job := NewReconcileJob(rec, discardLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewReconcileTask(time.Now())
	require.NoError(t, err)
	require.Equal(t, TaskInventoryReconcile, task.Type())
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, rec.calls)
}

func TestReconcileJobPropagatesFailure(t *testing.T) {
	boom := errors.New("db down")
	job := NewReconcileJob(&stubReconciler{err: boom}, discardLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), asynq.NewTask(TaskInventoryReconcile, nil))
	require.ErrorIs(t, err, boom)
}

func TestReconcileJobRejectsBadPayload(t *testing.T) {
	job := NewReconcileJob(&stubReconciler{}, discardLogger(), nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskInventoryReconcile, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	var unconfigured *ReconcileJob
	require.Error(t, unconfigured.Handle(context.Background(), asynq.NewTask(TaskInventoryReconcile, nil)))
}

func TestCleanupJobUsesRetention(t *testing.T) {
	cleaner := &stubCleaner{removed: 3}
	job := NewCleanupJob(cleaner, discardLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewIdempotencyCleanupTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 48*time.Hour, cleaner.retention)

	err = job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, []byte(`{"retention":0}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandlerHealthAndReconcile(t *testing.T) {
	r := chi.NewRouter()
	inspector := stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 2, Retry: 1}}
	NewHandler(inspector, stubEnqueuer{}, discardLogger()).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","paused":false,"pending":2,"active":0,"scheduled":0,"retry":1,"archived":0,"failed_today":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconcile", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.JSONEq(t, `{"task_id":"task-1"}`, rec.Body.String())

	dup := chi.NewRouter()
	NewHandler(nil, stubEnqueuer{err: asynq.ErrDuplicateTask}, discardLogger()).MountRoutes(dup)
	rec = httptest.NewRecorder()
	dup.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconcile", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerWithoutClientHasNoTrigger(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil, discardLogger()).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"queue":"default"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconcile", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerHealthReportsQueueOutage(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{err: errors.New("redis down")}, nil, discardLogger()).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotContains(t, rec.Body.String(), "redis down")
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}
