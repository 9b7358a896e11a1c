package registry

import (
	"fmt"
	"sort"

	"github.com/wolkoffmikhail/dds-analytics/internal/store"
)

// Params carries one registry request: the date range, the id equality
// filters, the optional substring term, the sort key and the page number.
type Params struct {
	From   string            `json:"from,omitempty"`
	To     string            `json:"to,omitempty"`
	Equals map[string]string `json:"equals,omitempty"`
	Search string            `json:"search,omitempty"`
	Sort   store.Sort        `json:"sort"`
	Page   int               `json:"page"`
}

// FiltersEqual compares only the filtering fields of two Params. Sort and
// page changes keep the current position; filter changes reset it.
func FiltersEqual(a, b Params) bool {
	if a.From != b.From || a.To != b.To || a.Search != b.Search {
		return false
	}
	if len(a.Equals) != len(b.Equals) {
		return false
	}
	for col, v := range a.Equals {
		if b.Equals[col] != v {
			return false
		}
	}
	return true
}

// Validate rejects filters and sort keys the definition does not declare.
func (d Definition) Validate(p Params) error {
	if (p.From != "" || p.To != "") && d.DateColumn == "" {
		return fmt.Errorf("registry %s accepts no date range", d.Name)
	}
	for col := range p.Equals {
		if !d.AcceptsEquality(col) {
			return fmt.Errorf("registry %s accepts no filter on %s", d.Name, col)
		}
	}
	if p.Search != "" && d.SubstringColumn == "" {
		return fmt.Errorf("registry %s accepts no search term", d.Name)
	}
	if p.Sort.Column != "" && !d.AcceptsSort(p.Sort.Column) {
		return fmt.Errorf("registry %s cannot sort by %s", d.Name, p.Sort.Column)
	}
	return nil
}

// Normalize applies the defaults and the page-reset policy: whenever the
// filtering fields differ from the previously applied ones, the page snaps
// back to 1. Sort-only and page-only changes keep the requested page.
func (d Definition) Normalize(prev Params, hasPrev bool, next Params) Params {
	if next.Sort.Column == "" {
		next.Sort = d.DefaultSort
	}
	if next.Page < 1 {
		next.Page = 1
	}
	if hasPrev && !FiltersEqual(prev, next) {
		next.Page = 1
	}
	return next
}

// Query compiles the params into the store query for one page. Equality
// predicates are emitted in the definition's declared column order so the
// compiled request is stable regardless of map iteration.
func (d Definition) Query(p Params) store.Query {
	var f store.Filter
	if d.DateColumn != "" && (p.From != "" || p.To != "") {
		f.Ranges = append(f.Ranges, store.RangeFilter{Column: d.DateColumn, From: p.From, To: p.To})
	}
	for _, col := range d.EqualityColumns {
		if v, ok := p.Equals[col]; ok && v != "" {
			f.Equals = append(f.Equals, store.EqFilter{Column: col, Value: v})
		}
	}
	// Tolerate equality columns outside the declared order; Validate catches
	// them earlier, but a stable query beats a silent drop.
	extra := make([]string, 0)
	for col := range p.Equals {
		if !d.AcceptsEquality(col) {
			extra = append(extra, col)
		}
	}
	sort.Strings(extra)
	for _, col := range extra {
		if v := p.Equals[col]; v != "" {
			f.Equals = append(f.Equals, store.EqFilter{Column: col, Value: v})
		}
	}
	if d.SubstringColumn != "" && p.Search != "" {
		f.Substrings = append(f.Substrings, store.SubstrFilter{Column: d.SubstringColumn, Term: p.Search})
	}

	srt := p.Sort
	if srt.Column == "" {
		srt = d.DefaultSort
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	size := d.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return store.Query{
		Table:     d.Table,
		Columns:   d.Columns,
		Filter:    f,
		Sort:      &srt,
		Page:      store.Page{Number: page, Size: size},
		WithCount: true,
	}
}
