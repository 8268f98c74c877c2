package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	jobmetrics "github.com/odyssey-erp/odyssey-wms/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Reconciler reports inventory records that disagree with the ledger.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]inventory.Drift, error)
}

// ReconcileJob runs ledger reconciliation and reports drift.
type ReconcileJob struct {
	Inventory Reconciler
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Timeout   time.Duration
}

// NewReconcileJob wires dependencies for the reconcile handler.
func NewReconcileJob(reconciler Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileJob {
	return &ReconcileJob{Inventory: reconciler, Logger: logger, Metrics: metrics, Timeout: 5 * time.Minute}
}

// Handle processes reconcile tasks.
func (j *ReconcileJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Inventory == nil {
		return errors.New("inventory reconcile: handler not configured")
	}
	var payload ReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	metrics := j.metrics()
	tracker := metrics.Track(TaskInventoryReconcile)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	drift, err := j.Inventory.Reconcile(ctx)
	if err != nil {
		logger.Error("reconcile inventory", slog.Any("error", err))
		return err
	}
	metrics.SetDrift(len(drift))
	for _, d := range drift {
		logger.Warn("inventory drift",
			slog.String("sku", d.SKU),
			slog.String("location", d.Location),
			slog.Int64("inventory", d.Inventory),
			slog.Int64("ledger", d.Ledger))
	}
	logger.Info("completed inventory reconcile", slog.Int("drift", len(drift)), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *ReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInventoryReconcile))
	}
	return slog.Default().With(slog.String("job", TaskInventoryReconcile))
}

func (j *ReconcileJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
