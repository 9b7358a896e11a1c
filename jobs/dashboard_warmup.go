package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/wolkoffmikhail/dds-analytics/internal/dashboard"
	jobmetrics "github.com/wolkoffmikhail/dds-analytics/internal/jobs"
)

// DashboardWarmupJob pre-populates the dashboard snapshot cache for recent
// reporting months.
type DashboardWarmupJob struct {
	Dashboard *dashboard.Service
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(svc *dashboard.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardWarmupJob{
		Dashboard: svc,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Dashboard == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Months < 0 {
		payload.Months = 0
	}

	tracker := j.Metrics.Track(TaskDashboardWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.Logger.With(slog.String("run_id", uuid.NewString()))

	now := j.clock()
	warmed := 0
	for back := 0; back <= payload.Months; back++ {
		rng := monthRange(now, -back)
		// Bound each month so one slow range cannot stall the whole run.
		monthCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		_, err := j.Dashboard.Fetch(monthCtx, rng)
		cancel()
		if err != nil {
			resultErr = err
			logger.Error("warm dashboard range",
				slog.String("from", rng.From),
				slog.String("to", rng.To),
				slog.Any("error", err))
			return resultErr
		}
		warmed++
	}

	logger.Info("completed dashboard warmup", slog.Int("months", warmed))
	return resultErr
}

// monthRange returns the calendar month offset months away from now.
func monthRange(now time.Time, offset int) dashboard.Range {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, offset, 0)
	last := first.AddDate(0, 1, -1)
	return dashboard.Range{
		From: first.Format("2006-01-02"),
		To:   last.Format("2006-01-02"),
	}
}
