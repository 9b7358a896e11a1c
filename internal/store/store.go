// Package store exposes the remote tabular store through per-table
// filter/sort/page primitives. The store offers no joins and no server-side
// aggregation to callers; everything above this package composes single-table
// queries and combines the results client-side.
package store

import "context"

// Row is one raw record returned by the store, keyed by column name.
type Row map[string]any

// RangeFilter restricts a column to a closed interval, inclusive on both ends.
type RangeFilter struct {
	Column string
	From   string
	To     string
}

// EqFilter restricts a column to exactly one value.
type EqFilter struct {
	Column string
	Value  string
}

// InFilter restricts a column to a set of values. Used for batched dimension
// lookups ("rows whose id is in this set").
type InFilter struct {
	Column string
	Values []string
}

// SubstrFilter matches a text column by case-insensitive substring.
type SubstrFilter struct {
	Column string
	Term   string
}

// Filter is a conjunction of predicates. The zero value means "no filter",
// which is distinct from a filter that matches nothing. Predicates are always
// applied in a fixed order (ranges, equalities, in-lists, substrings) so that
// generated requests are stable and log-friendly.
type Filter struct {
	Ranges     []RangeFilter
	Equals     []EqFilter
	In         []InFilter
	Substrings []SubstrFilter
}

// IsZero reports whether no predicate is set.
func (f Filter) IsZero() bool {
	return len(f.Ranges) == 0 && len(f.Equals) == 0 && len(f.In) == 0 && len(f.Substrings) == 0
}

// Sort orders the result by a single column.
type Sort struct {
	Column string
	Desc   bool
}

// Page selects an offset/limit window. Page numbers are 1-based; the zero
// value disables pagination and returns the full matching set.
type Page struct {
	Number int
	Size   int
}

// Offset converts the 1-based page number into a row offset.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// IsZero reports whether pagination is disabled.
func (p Page) IsZero() bool {
	return p.Size <= 0
}

// Query describes one request against a named table or view.
type Query struct {
	Table   string
	Columns []string
	Filter  Filter
	Sort    *Sort
	Page    Page
	// WithCount requests the exact number of rows matching Filter with no
	// pagination applied. Registries need it for paging controls; ad-hoc
	// aggregate queries skip the extra round-trip.
	WithCount bool
}

// Result is one page of rows plus the optional exact match count.
type Result struct {
	Rows     []Row
	Total    int
	HasTotal bool
}

// Store executes queries against the remote tabular store.
type Store interface {
	Select(ctx context.Context, q Query) (Result, error)
}

// Outcome wraps a query result with its degradation state. A degraded outcome
// carries an empty result and the cause; callers render it instead of
// surfacing the error.
type Outcome struct {
	Result Result
	Cause  error
}

// Degraded reports whether the query fell back to an empty result.
func (o Outcome) Degraded() bool { return o.Cause != nil }

// Run executes the query and maps any failure to an empty result with the
// cause recorded. The always-render policy lives here: no store error
// propagates past this function.
func Run(ctx context.Context, s Store, q Query) Outcome {
	res, err := s.Select(ctx, q)
	if err != nil {
		return Outcome{Result: Result{}, Cause: err}
	}
	return Outcome{Result: res}
}
