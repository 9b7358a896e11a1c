package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Postgres executes store queries against a PostgreSQL database. Only
// single-table selects are ever issued; the no-join constraint of the remote
// store contract is enforced here rather than worked around.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a pgx pool as a Store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Store = (*Postgres)(nil)

// Select runs the data query and, when requested, the exact count query.
// Both statements share one filter compilation so the reported total always
// matches the page's predicates. The two queries run concurrently.
func (p *Postgres) Select(ctx context.Context, q Query) (Result, error) {
	dataSQL, args, err := buildSelect(q)
	if err != nil {
		return Result{}, err
	}

	var res Result
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := p.pool.Query(ctx, dataSQL, args...)
		if err != nil {
			return describe("select "+q.Table, err)
		}
		defer rows.Close()

		fields := rows.FieldDescriptions()
		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				return describe("scan "+q.Table, err)
			}
			row := make(Row, len(fields))
			for i, fd := range fields {
				row[fd.Name] = values[i]
			}
			res.Rows = append(res.Rows, row)
		}
		return rows.Err()
	})

	if q.WithCount {
		countSQL, countArgs, err := buildCount(q)
		if err != nil {
			return Result{}, err
		}
		g.Go(func() error {
			if err := p.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&res.Total); err != nil {
				return describe("count "+q.Table, err)
			}
			res.HasTotal = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return res, nil
}

// buildSelect compiles a Query into a single-table SELECT with positional
// arguments. Predicates keep the fixed filter order so generated SQL is
// byte-stable for identical queries.
func buildSelect(q Query) (string, []any, error) {
	if err := checkIdent(q.Table); err != nil {
		return "", nil, err
	}
	if len(q.Columns) == 0 {
		return "", nil, fmt.Errorf("store: query on %s selects no columns", q.Table)
	}
	for _, col := range q.Columns {
		if err := checkIdent(col); err != nil {
			return "", nil, err
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(q.Columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(q.Table)

	where, args, err := compileFilter(q.Filter)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(where)

	if q.Sort != nil {
		if err := checkIdent(q.Sort.Column); err != nil {
			return "", nil, err
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.Sort.Column)
		if q.Sort.Desc {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
	}

	if !q.Page.IsZero() {
		fmt.Fprintf(&sb, " OFFSET %d LIMIT %d", q.Page.Offset(), q.Page.Size)
	}

	return sb.String(), args, nil
}

// buildCount compiles the companion COUNT(*) statement: same table, same
// filter, no ordering or pagination.
func buildCount(q Query) (string, []any, error) {
	if err := checkIdent(q.Table); err != nil {
		return "", nil, err
	}
	where, args, err := compileFilter(q.Filter)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + q.Table + where, args, nil
}

func compileFilter(f Filter) (string, []any, error) {
	var conds []string
	var args []any

	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, r := range f.Ranges {
		if err := checkIdent(r.Column); err != nil {
			return "", nil, err
		}
		if r.From != "" {
			conds = append(conds, r.Column+" >= "+place(r.From))
		}
		if r.To != "" {
			conds = append(conds, r.Column+" <= "+place(r.To))
		}
	}
	for _, e := range f.Equals {
		if err := checkIdent(e.Column); err != nil {
			return "", nil, err
		}
		conds = append(conds, e.Column+" = "+place(e.Value))
	}
	for _, in := range f.In {
		if err := checkIdent(in.Column); err != nil {
			return "", nil, err
		}
		if len(in.Values) == 0 {
			// An empty id set matches nothing; the resolver skips the call
			// entirely, but keep the semantics correct for direct users.
			conds = append(conds, "FALSE")
			continue
		}
		holders := make([]string, 0, len(in.Values))
		for _, v := range in.Values {
			holders = append(holders, place(v))
		}
		conds = append(conds, in.Column+" IN ("+strings.Join(holders, ", ")+")")
	}
	for _, s := range f.Substrings {
		if err := checkIdent(s.Column); err != nil {
			return "", nil, err
		}
		conds = append(conds, s.Column+"::text ILIKE "+place("%"+escapeLike(s.Term)+"%"))
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// checkIdent guards table and column names. They only ever come from internal
// declarations, never from request input, so a failure here is a programming
// error surfaced early.
func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("store: invalid identifier %q", name)
	}
	return nil
}

func describe(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("store: %s: %s (SQLSTATE %s)", op, pgErr.Message, pgErr.Code)
	}
	return fmt.Errorf("store: %s: %w", op, err)
}
