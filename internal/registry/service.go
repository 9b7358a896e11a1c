package registry

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/wolkoffmikhail/dds-analytics/internal/dimension"
	"github.com/wolkoffmikhail/dds-analytics/internal/store"
)

// Pagination is the paging metadata rendered next to a registry page.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasTotal   bool `json:"has_total"`
}

// NewPagination computes paging metadata from the exact match count.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages, HasTotal: true}
}

// Snapshot is the result of one registry fetch cycle: a page of resolved
// rows plus paging metadata.
type Snapshot struct {
	Name       string      `json:"name"`
	Params     Params      `json:"params"`
	Rows       []store.Row `json:"rows"`
	Pagination Pagination  `json:"pagination"`
	// Degraded carries the causes of queries that fell back to empty results.
	Degraded []string `json:"degraded,omitempty"`
}

// Service runs registry fetch cycles: one counted fact query, then one round
// of dimension resolution over the fetched page.
type Service struct {
	store    store.Store
	resolver *dimension.Resolver
	logger   *slog.Logger
}

// NewService wires the registry service.
func NewService(st store.Store, resolver *dimension.Resolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, resolver: resolver, logger: logger}
}

// FetchPage executes one registry cycle. Store failures degrade to an empty
// page; dimension failures degrade to raw-id names inside the resolver.
func (s *Service) FetchPage(ctx context.Context, def Definition, p Params) (Snapshot, error) {
	if err := def.Validate(p); err != nil {
		return Snapshot{}, err
	}
	p = def.Normalize(Params{}, false, p)

	q := def.Query(p)
	out := store.Run(ctx, s.store, q)

	rows := out.Result.Rows
	if s.resolver != nil {
		rows = s.resolver.Resolve(ctx, rows, def.Refs)
	}
	if rows == nil {
		rows = []store.Row{}
	}

	snap := Snapshot{
		Name:       def.Name,
		Params:     p,
		Rows:       rows,
		Pagination: NewPagination(p.Page, def.PageSize, out.Result.Total),
	}
	snap.Pagination.HasTotal = out.Result.HasTotal
	if out.Degraded() {
		snap.Degraded = []string{fmt.Sprintf("%s: %v", def.Name, out.Cause)}
		s.logger.Warn("registry degraded",
			slog.String("registry", def.Name),
			slog.Any("error", out.Cause))
	}
	return snap, nil
}

// FetchAll executes the registry query without pagination, resolving names
// over the full result. Used by the CSV export.
func (s *Service) FetchAll(ctx context.Context, def Definition, p Params) (Snapshot, error) {
	if err := def.Validate(p); err != nil {
		return Snapshot{}, err
	}
	p = def.Normalize(Params{}, false, p)

	q := def.Query(p)
	q.Page = store.Page{}
	q.WithCount = false
	out := store.Run(ctx, s.store, q)

	rows := out.Result.Rows
	if s.resolver != nil {
		rows = s.resolver.Resolve(ctx, rows, def.Refs)
	}
	if rows == nil {
		rows = []store.Row{}
	}

	snap := Snapshot{Name: def.Name, Params: p, Rows: rows}
	if out.Degraded() {
		snap.Degraded = []string{fmt.Sprintf("%s: %v", def.Name, out.Cause)}
	}
	return snap, nil
}
