// Package api exposes the dashboard and registry views over HTTP. Handlers
// parse and validate query parameters, delegate to the fetch-cycle
// controllers and respond with JSON or CSV.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/wolkoffmikhail/dds-analytics/internal/dashboard"
	"github.com/wolkoffmikhail/dds-analytics/internal/platform/httpx"
	"github.com/wolkoffmikhail/dds-analytics/internal/registry"
	"github.com/wolkoffmikhail/dds-analytics/internal/store"
)

const requestTimeout = 10 * time.Second

// DashboardService is the dashboard data contract used by the handler.
type DashboardService interface {
	Fetch(ctx context.Context, rng dashboard.Range) (dashboard.Snapshot, error)
}

// Handler coordinates HTTP requests for the analytics API.
type Handler struct {
	logger    *slog.Logger
	dashboard DashboardService
	registry  *registry.Service
	views     map[string]*registry.View
	store     store.Store
	validator *validator.Validate
	now       func() time.Time
}

// NewHandler constructs the API handler.
func NewHandler(logger *slog.Logger, dash DashboardService, reg *registry.Service, views map[string]*registry.View, st store.Store) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		dashboard: dash,
		registry:  reg,
		views:     views,
		store:     st,
		validator: validator.New(),
		now:       time.Now,
	}
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

type dashboardQuery struct {
	From string `validate:"omitempty,datetime=2006-01-02"`
	To   string `validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := dashboardQuery{
		From: strings.TrimSpace(r.URL.Query().Get("from")),
		To:   strings.TrimSpace(r.URL.Query().Get("to")),
	}
	if err := h.validator.Struct(q); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from/to must be ISO dates")
		return
	}
	rng := h.defaultRange()
	if q.From != "" {
		rng.From = q.From
	}
	if q.To != "" {
		rng.To = q.To
	}
	if rng.From > rng.To {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must not exceed to")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	snap, err := h.dashboard.Fetch(ctx, rng)
	if err != nil {
		h.logger.Error("dashboard fetch", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

// defaultRange is the current calendar month.
func (h *Handler) defaultRange() dashboard.Range {
	now := h.now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return dashboard.Range{
		From: first.Format("2006-01-02"),
		To:   last.Format("2006-01-02"),
	}
}

type registryQuery struct {
	From   string `validate:"omitempty,datetime=2006-01-02"`
	To     string `validate:"omitempty,datetime=2006-01-02"`
	Page   int    `validate:"omitempty,min=1"`
	Sort   string
	Dir    string `validate:"omitempty,oneof=asc desc"`
	Search string `validate:"omitempty,max=128"`
}

func (h *Handler) parseRegistryParams(r *http.Request, def registry.Definition) (registry.Params, error) {
	values := r.URL.Query()
	q := registryQuery{
		From:   strings.TrimSpace(values.Get("from")),
		To:     strings.TrimSpace(values.Get("to")),
		Sort:   strings.TrimSpace(values.Get("sort")),
		Dir:    strings.TrimSpace(values.Get("dir")),
		Search: strings.TrimSpace(values.Get("search")),
	}
	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return registry.Params{}, fmt.Errorf("page must be a number")
		}
		q.Page = page
	}
	if err := h.validator.Struct(q); err != nil {
		return registry.Params{}, fmt.Errorf("invalid query parameters")
	}

	p := registry.Params{
		From:   q.From,
		To:     q.To,
		Search: q.Search,
		Page:   q.Page,
	}
	if q.Sort != "" {
		p.Sort = store.Sort{Column: q.Sort, Desc: q.Dir != "asc"}
	}
	for _, col := range def.EqualityColumns {
		if v := strings.TrimSpace(values.Get(col)); v != "" {
			if p.Equals == nil {
				p.Equals = make(map[string]string)
			}
			p.Equals[col] = v
		}
	}
	return p, def.Validate(p)
}

func (h *Handler) registryView(w http.ResponseWriter, r *http.Request) (*registry.View, bool) {
	name := chi.URLParam(r, "name")
	view, ok := h.views[name]
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown registry "+name)
		return nil, false
	}
	return view, true
}

func (h *Handler) handleRegistry(w http.ResponseWriter, r *http.Request) {
	view, ok := h.registryView(w, r)
	if !ok {
		return
	}
	params, err := h.parseRegistryParams(r, view.Def)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	snap, refreshing, err := view.Refresh(ctx, params)
	if err != nil {
		h.logger.Warn("registry fetch",
			slog.String("registry", view.Def.Name),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, registryResponse{Snapshot: snap, Refreshing: refreshing})
}

type registryResponse struct {
	registry.Snapshot
	Refreshing bool `json:"refreshing"`
}

func (h *Handler) handleRegistryExport(w http.ResponseWriter, r *http.Request) {
	view, ok := h.registryView(w, r)
	if !ok {
		return
	}
	params, err := h.parseRegistryParams(r, view.Def)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	snap, err := h.registry.FetchAll(ctx, view.Def, params)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if len(snap.Degraded) > 0 {
		httpx.Problem(w, http.StatusServiceUnavailable, "Store Unavailable", "export requires a complete result")
		return
	}

	filename := fmt.Sprintf("%s-%s.csv", view.Def.Name, h.now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := registry.WriteCSV(w, view.Def, snap.Rows); err != nil {
		h.logger.Error("registry export",
			slog.String("registry", view.Def.Name),
			slog.Any("error", err))
	}
}

// dimensionTables whitelists the dimensions served raw, mapping table name to
// its key and name columns.
var dimensionTables = map[string][2]string{
	"dim_object_payout":  {"id", "object_name"},
	"dim_object_balance": {"id", "balance_object_name"},
	"dim_income_article": {"id", "income_name"},
	"dim_entity":         {"id", "entity_name"},
	"dim_bank":           {"id", "bank_name"},
	"dim_expense_code":   {"expense_code", "expense_name"},
}

func (h *Handler) handleDimension(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	cols, ok := dimensionTables[table]
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown dimension "+table)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := h.store.Select(ctx, store.Query{
		Table:   table,
		Columns: []string{cols[0], cols[1]},
		Sort:    &store.Sort{Column: cols[1]},
	})
	if err != nil {
		h.logger.Error("dimension list",
			slog.String("table", table),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Store Unavailable", "")
		return
	}

	items := make([]dimensionItem, 0, len(res.Rows))
	for _, row := range res.Rows {
		items = append(items, dimensionItem{
			ID:   store.Key(row[cols[0]]),
			Name: store.Text(row[cols[1]]),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"table": table, "items": items})
}

type dimensionItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
