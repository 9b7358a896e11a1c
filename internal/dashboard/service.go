// Package dashboard assembles the cash-flow overview: KPI cards, the daily
// cashflow series and the top expense breakdown. The remote store provides no
// aggregation, so every figure here is computed client-side from narrow raw
// queries, and expense names are resolved only for the groups that survive
// top-N truncation.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/wolkoffmikhail/dds-analytics/internal/dimension"
	"github.com/wolkoffmikhail/dds-analytics/internal/store"
)

const (
	tableBalance = "v_latest_balance_per_balance_object"
	tableInflow  = "fct_cash_in"
	tableOutflow = "fct_cash_out"
	tableDaily   = "v_cashflow_daily"

	// TopExpenseCount bounds the expense breakdown.
	TopExpenseCount = 10
)

var expenseCodeRef = dimension.Ref{
	Column: "expense_code", As: "expense_name",
	Table: "dim_expense_code", KeyColumn: "expense_code", NameColumn: "expense_name",
}

// Range is the closed reporting interval, inclusive on both ends, as ISO
// dates.
type Range struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// KPISet carries the four headline figures. Net is derived from the inflow
// and outflow sums, never summed independently. Balance ignores the range:
// it is the latest snapshot per balance object.
type KPISet struct {
	Balance float64 `json:"balance"`
	Inflow  float64 `json:"inflow"`
	Outflow float64 `json:"outflow"`
	Net     float64 `json:"net"`
}

// SeriesPoint is one day of the pre-aggregated cashflow view.
type SeriesPoint struct {
	Date    string  `json:"dt"`
	Inflow  float64 `json:"inflow"`
	Outflow float64 `json:"outflow"`
	Net     float64 `json:"net"`
}

// ExpenseAggregate is one ranked row of the expense breakdown.
type ExpenseAggregate struct {
	Code  string  `json:"expense_code"`
	Name  string  `json:"expense_name"`
	Total float64 `json:"total"`
}

// Snapshot is the immutable result of one dashboard fetch cycle.
type Snapshot struct {
	Range       Range              `json:"range"`
	KPI         KPISet             `json:"kpi"`
	Series      []SeriesPoint      `json:"series"`
	TopExpenses []ExpenseAggregate `json:"top_expenses"`
	// Degraded lists the queries that fell back to empty results, surfacing
	// partial data without breaking the always-render contract.
	Degraded []string `json:"degraded,omitempty"`
}

// Service coordinates dashboard query execution with the cache layer.
type Service struct {
	store    store.Store
	resolver *dimension.Resolver
	cache    *Cache
	logger   *slog.Logger
}

// NewService wires the dashboard service.
func NewService(st store.Store, resolver *dimension.Resolver, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, resolver: resolver, cache: cache, logger: logger}
}

// Fetch returns the dashboard snapshot for the range, serving from the
// versioned cache when possible. Degraded snapshots are never cached so a
// transient store failure heals on the next request.
func (s *Service) Fetch(ctx context.Context, rng Range) (Snapshot, error) {
	key, err := s.cache.BuildKey(ctx, keySnapshot(rng))
	if err != nil {
		s.logger.Warn("dashboard cache key", slog.Any("error", err))
		return s.fetch(ctx, rng), nil
	}
	var cached Snapshot
	hit, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("dashboard cache read", slog.Any("error", err))
	}
	if hit {
		return cached, nil
	}

	snap := s.fetch(ctx, rng)
	if len(snap.Degraded) == 0 {
		if err := s.cache.SetJSON(ctx, key, snap); err != nil {
			s.logger.Warn("dashboard cache write", slog.Any("error", err))
		}
	}
	return snap, nil
}

// fetch runs the five independent store queries concurrently, then aggregates.
func (s *Service) fetch(ctx context.Context, rng Range) Snapshot {
	var (
		balance  store.Outcome
		inflow   store.Outcome
		outflow  store.Outcome
		daily    store.Outcome
		expenses store.Outcome
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		balance = store.Run(gctx, s.store, store.Query{
			Table:   tableBalance,
			Columns: []string{"balance"},
		})
		return nil
	})
	g.Go(func() error {
		inflow = store.Run(gctx, s.store, store.Query{
			Table:   tableInflow,
			Columns: []string{"amount"},
			Filter:  dateRange("income_date", rng),
		})
		return nil
	})
	g.Go(func() error {
		outflow = store.Run(gctx, s.store, store.Query{
			Table:   tableOutflow,
			Columns: []string{"amount"},
			Filter:  dateRange("payment_date", rng),
		})
		return nil
	})
	g.Go(func() error {
		daily = store.Run(gctx, s.store, store.Query{
			Table:   tableDaily,
			Columns: []string{"dt", "inflow", "outflow", "net"},
			Filter:  dateRange("dt", rng),
			Sort:    &store.Sort{Column: "dt"},
		})
		return nil
	})
	g.Go(func() error {
		expenses = store.Run(gctx, s.store, store.Query{
			Table:   tableOutflow,
			Columns: []string{"expense_code", "amount"},
			Filter:  dateRange("payment_date", rng),
		})
		return nil
	})
	_ = g.Wait()

	snap := Snapshot{Range: rng}
	snap.Degraded = degradations(map[string]store.Outcome{
		"balance":  balance,
		"inflow":   inflow,
		"outflow":  outflow,
		"series":   daily,
		"expenses": expenses,
	})

	snap.KPI.Balance = SumColumn(balance.Result.Rows, "balance")
	snap.KPI.Inflow = SumColumn(inflow.Result.Rows, "amount")
	snap.KPI.Outflow = SumColumn(outflow.Result.Rows, "amount")
	snap.KPI.Net = snap.KPI.Inflow - snap.KPI.Outflow

	snap.Series = seriesPoints(daily.Result.Rows)
	snap.TopExpenses = s.topExpenses(ctx, expenses.Result.Rows)
	return snap
}

// topExpenses ranks expense groups over the full filtered set and resolves
// display names for the survivors only.
func (s *Service) topExpenses(ctx context.Context, rows []store.Row) []ExpenseAggregate {
	groups := TopGroups(rows, "expense_code", "amount", TopExpenseCount)
	keys := make([]string, 0, len(groups))
	for _, g := range groups {
		if g.Key != dimension.Unknown {
			keys = append(keys, g.Key)
		}
	}

	var names dimension.Lookup
	if s.resolver != nil {
		names = s.resolver.Names(ctx, expenseCodeRef, keys)
	}

	out := make([]ExpenseAggregate, 0, len(groups))
	for _, g := range groups {
		name := names[g.Key]
		if name == "" {
			name = g.Key
		}
		out = append(out, ExpenseAggregate{Code: g.Key, Name: name, Total: g.Total})
	}
	return out
}

func dateRange(column string, rng Range) store.Filter {
	return store.Filter{Ranges: []store.RangeFilter{{Column: column, From: rng.From, To: rng.To}}}
}

// degradations flattens outcome causes in a fixed reporting order.
func degradations(outcomes map[string]store.Outcome) []string {
	order := []string{"balance", "inflow", "outflow", "series", "expenses"}
	var causes []string
	for _, name := range order {
		if out, ok := outcomes[name]; ok && out.Degraded() {
			causes = append(causes, fmt.Sprintf("%s: %v", name, out.Cause))
		}
	}
	return causes
}
