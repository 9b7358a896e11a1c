package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Memory is an in-process Store with the same filter/sort/page/count
// semantics as the Postgres adapter. It backs the test suites and keeps the
// higher layers honest about the per-table contract.
type Memory struct {
	mu     sync.Mutex
	tables map[string][]Row

	// FailTables forces Select to fail for the listed tables, exercising the
	// degrade-to-empty paths.
	FailTables map[string]bool

	calls map[string]int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tables:     make(map[string][]Row),
		FailTables: make(map[string]bool),
		calls:      make(map[string]int),
	}
}

var _ Store = (*Memory)(nil)

// Load replaces the contents of a table.
func (m *Memory) Load(table string, rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = append([]Row(nil), rows...)
}

// Calls reports how many Select calls hit the given table.
func (m *Memory) Calls(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[table]
}

// Select applies the query against the loaded rows.
func (m *Memory) Select(ctx context.Context, q Query) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	m.mu.Lock()
	m.calls[q.Table]++
	if m.FailTables[q.Table] {
		m.mu.Unlock()
		return Result{}, fmt.Errorf("memory: table %s unavailable", q.Table)
	}
	source := append([]Row(nil), m.tables[q.Table]...)
	m.mu.Unlock()

	matched := make([]Row, 0, len(source))
	for _, row := range source {
		if matchFilter(row, q.Filter) {
			matched = append(matched, row)
		}
	}

	if q.Sort != nil {
		col, desc := q.Sort.Column, q.Sort.Desc
		sort.SliceStable(matched, func(i, j int) bool {
			less := compareValues(matched[i][col], matched[j][col]) < 0
			if desc {
				return compareValues(matched[i][col], matched[j][col]) > 0
			}
			return less
		})
	}

	res := Result{}
	if q.WithCount {
		res.Total = len(matched)
		res.HasTotal = true
	}

	if !q.Page.IsZero() {
		off := q.Page.Offset()
		if off > len(matched) {
			off = len(matched)
		}
		end := off + q.Page.Size
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[off:end]
	}

	for _, row := range matched {
		res.Rows = append(res.Rows, project(row, q.Columns))
	}
	return res, nil
}

func project(row Row, columns []string) Row {
	out := make(Row, len(columns))
	for _, col := range columns {
		out[col] = row[col]
	}
	return out
}

func matchFilter(row Row, f Filter) bool {
	for _, r := range f.Ranges {
		key := Key(row[r.Column])
		if key == "" {
			return false
		}
		if r.From != "" && key < r.From {
			return false
		}
		if r.To != "" && key > r.To {
			return false
		}
	}
	for _, e := range f.Equals {
		if Key(row[e.Column]) != e.Value {
			return false
		}
	}
	for _, in := range f.In {
		found := false
		key := Key(row[in.Column])
		for _, v := range in.Values {
			if key == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, s := range f.Substrings {
		hay := strings.ToLower(Text(row[s.Column]))
		if !strings.Contains(hay, strings.ToLower(s.Term)) {
			return false
		}
	}
	return true
}

// compareValues orders two raw values numerically when both parse as numbers
// and lexically otherwise, mirroring how the remote store orders typed
// columns.
func compareValues(a, b any) int {
	af, aok := asNumber(a)
	bf, bok := asNumber(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(Key(a), Key(b))
}

func asNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64, float32, int, int32, int64, uint32, uint64:
		return Float(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
