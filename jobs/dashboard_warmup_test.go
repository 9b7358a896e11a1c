package jobs

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/wolkoffmikhail/dds-analytics/internal/dashboard"
	"github.com/wolkoffmikhail/dds-analytics/internal/dimension"
	"github.com/wolkoffmikhail/dds-analytics/internal/store"
)

func newWarmupFixture(t *testing.T) (*DashboardWarmupJob, *store.Memory, func()) {
	t.Helper()
	m := store.NewMemory()
	m.Load("fct_cash_in", store.Row{"income_date": "2024-03-05", "amount": 100.0})
	m.Load("fct_cash_out", store.Row{"payment_date": "2024-03-06", "amount": 40.0, "expense_code": "A"})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := dashboard.NewCache(client, time.Minute)
	svc := dashboard.NewService(m, dimension.NewResolver(m, nil), cache, nil)

	job := NewDashboardWarmupJob(svc, nil, nil)
	job.clock = func() time.Time {
		return time.Date(2024, time.March, 15, 8, 0, 0, 0, time.UTC)
	}
	return job, m, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestDashboardWarmupPopulatesCache(t *testing.T) {
	job, m, cleanup := newWarmupFixture(t)
	defer cleanup()

	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{})
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}

	calls := m.Calls("fct_cash_in")
	// The warmed month is now served from cache without store traffic.
	march := dashboard.Range{From: "2024-03-01", To: "2024-03-31"}
	snap, err := job.Dashboard.Fetch(context.Background(), march)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if m.Calls("fct_cash_in") != calls {
		t.Fatalf("warmed range hit the store again")
	}
	if snap.KPI.Inflow != 100 {
		t.Fatalf("inflow = %v", snap.KPI.Inflow)
	}
}

func TestDashboardWarmupMultipleMonths(t *testing.T) {
	job, _, cleanup := newWarmupFixture(t)
	defer cleanup()

	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{Months: 2})
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
}

func TestDashboardWarmupBadPayloadSkipsRetry(t *testing.T) {
	job, _, cleanup := newWarmupFixture(t)
	defer cleanup()

	err := job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, []byte("{")))
	if err != asynq.SkipRetry {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestMonthRange(t *testing.T) {
	now := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	rng := monthRange(now, 0)
	if rng.From != "2024-03-01" || rng.To != "2024-03-31" {
		t.Fatalf("current month = %+v", rng)
	}
	rng = monthRange(now, -1)
	if rng.From != "2024-02-01" || rng.To != "2024-02-29" {
		t.Fatalf("previous month = %+v", rng)
	}
}
