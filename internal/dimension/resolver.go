// Package dimension resolves foreign-key columns in fact rows into
// human-readable names. The remote store exposes no joins, so resolution is a
// second round of batched per-table lookups keyed by the distinct ids present
// in a fetched batch.
package dimension

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wolkoffmikhail/dds-analytics/internal/store"
)

// Unknown is the sentinel group key used when a fact row carries no value in
// an aggregation grouping column.
const Unknown = "UNKNOWN"

// Ref declares one foreign-key column and the dimension that names it.
type Ref struct {
	// Column is the foreign-key column in the fact rows.
	Column string
	// As is the output column receiving the resolved name. When it differs
	// from Column the raw id column is dropped unless Keep is set.
	As string
	// Keep retains the raw id column alongside the resolved name.
	Keep bool

	Table      string
	KeyColumn  string
	NameColumn string
}

// Lookup maps dimension ids to display names.
type Lookup map[string]string

// Lookups holds one Lookup per dimension table touched by a batch. The maps
// live for a single fetch cycle and are rebuilt from scratch on the next one.
type Lookups map[string]Lookup

// Resolver batch-fetches dimension rows through the store.
type Resolver struct {
	store  store.Store
	logger *slog.Logger
}

// NewResolver wires the resolver against a store.
func NewResolver(st store.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: st, logger: logger}
}

// DistinctKeys collects the distinct non-null values of a column, preserving
// first-seen order. Null and absent values are skipped entirely.
func DistinctKeys(rows []store.Row, column string) []string {
	seen := make(map[string]struct{}, len(rows))
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		key := store.Key(row[column])
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// Fetch builds the id→name lookups for every dimension referenced by refs.
// Refs pointing at the same table share a single batched request; dimensions
// with no keys present in the batch are skipped without a round-trip. All
// lookups run concurrently. A failed lookup degrades to an empty map so the
// fetch cycle keeps rendering with raw-id fallbacks.
func (r *Resolver) Fetch(ctx context.Context, rows []store.Row, refs []Ref) Lookups {
	type dimQuery struct {
		ref  Ref
		keys []string
		seen map[string]struct{}
	}

	byTable := make(map[string]*dimQuery)
	order := make([]string, 0, len(refs))
	for _, ref := range refs {
		q, ok := byTable[ref.Table]
		if !ok {
			q = &dimQuery{ref: ref, seen: make(map[string]struct{})}
			byTable[ref.Table] = q
			order = append(order, ref.Table)
		}
		for _, key := range DistinctKeys(rows, ref.Column) {
			if _, dup := q.seen[key]; dup {
				continue
			}
			q.seen[key] = struct{}{}
			q.keys = append(q.keys, key)
		}
	}

	lookups := make(Lookups, len(byTable))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)

	for _, table := range order {
		q := byTable[table]
		if len(q.keys) == 0 {
			continue
		}
		g.Go(func() error {
			lookup := r.fetchLookup(ctx, q.ref, q.keys)
			mu.Lock()
			lookups[q.ref.Table] = lookup
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return lookups
}

// Names fetches display names for an explicit key list against one dimension.
// Used after top-N truncation so only surviving group keys cost a lookup.
func (r *Resolver) Names(ctx context.Context, ref Ref, keys []string) Lookup {
	if len(keys) == 0 {
		return Lookup{}
	}
	return r.fetchLookup(ctx, ref, keys)
}

func (r *Resolver) fetchLookup(ctx context.Context, ref Ref, keys []string) Lookup {
	res, err := r.store.Select(ctx, store.Query{
		Table:   ref.Table,
		Columns: []string{ref.KeyColumn, ref.NameColumn},
		Filter:  store.Filter{In: []store.InFilter{{Column: ref.KeyColumn, Values: keys}}},
	})
	if err != nil {
		r.logger.Warn("dimension lookup degraded",
			slog.String("table", ref.Table),
			slog.Int("keys", len(keys)),
			slog.Any("error", err))
		return Lookup{}
	}
	lookup := make(Lookup, len(res.Rows))
	for _, row := range res.Rows {
		key := store.Key(row[ref.KeyColumn])
		if key == "" {
			continue
		}
		lookup[key] = store.Text(row[ref.NameColumn])
	}
	return lookup
}

// Denormalize replaces each declared foreign-key value with its resolved name.
// A present key missing from its dimension falls back to the raw id rendered
// as text, never to a blank. Null keys resolve to nil. All other columns pass
// through untouched.
func Denormalize(rows []store.Row, refs []Ref, lookups Lookups) []store.Row {
	out := make([]store.Row, 0, len(rows))
	for _, row := range rows {
		resolved := make(store.Row, len(row)+len(refs))
		for col, v := range row {
			resolved[col] = v
		}
		for _, ref := range refs {
			key := store.Key(row[ref.Column])
			if ref.As != ref.Column && !ref.Keep {
				delete(resolved, ref.Column)
			}
			if key == "" {
				resolved[ref.As] = nil
				continue
			}
			if name, ok := lookups[ref.Table][key]; ok && name != "" {
				resolved[ref.As] = name
				continue
			}
			resolved[ref.As] = key
		}
		out = append(out, resolved)
	}
	return out
}

// Resolve fetches lookups for the batch and denormalizes it in one step.
func (r *Resolver) Resolve(ctx context.Context, rows []store.Row, refs []Ref) []store.Row {
	if len(rows) == 0 || len(refs) == 0 {
		return rows
	}
	return Denormalize(rows, refs, r.Fetch(ctx, rows, refs))
}
