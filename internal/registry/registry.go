// Package registry serves the paginated ledger registries (income, expense,
// balances). Each registry is described declaratively: its fact table, the
// filters it accepts, its sortable columns and the foreign keys to resolve.
// The fetch pipeline is shared; only the declarations differ per page.
package registry

import (
	"github.com/wolkoffmikhail/dds-analytics/internal/dimension"
	"github.com/wolkoffmikhail/dds-analytics/internal/store"
)

// DefaultPageSize matches the registry tables' fixed page length.
const DefaultPageSize = 20

// Column pairs a row key with its display title, in output order.
type Column struct {
	Key   string
	Title string
}

// Definition declares one registry view.
type Definition struct {
	Name    string
	Table   string
	Columns []string

	// DateColumn receives the closed from/to range filter; empty disables it.
	DateColumn string
	// EqualityColumns lists the id columns accepted as equality filters, in
	// the order they are compiled into the query.
	EqualityColumns []string
	// SubstringColumn accepts a case-insensitive contains filter; empty
	// disables it.
	SubstringColumn string

	SortColumns []string
	DefaultSort store.Sort

	Refs     []dimension.Ref
	Output   []Column
	PageSize int
}

// Income is the income transactions registry.
func Income() Definition {
	return Definition{
		Name:            "income",
		Table:           "fct_cash_in",
		Columns:         []string{"income_date", "amount", "object_id", "income_article_id", "payer_entity_id", "comment"},
		DateColumn:      "income_date",
		EqualityColumns: []string{"object_id", "income_article_id", "payer_entity_id"},
		SortColumns:     []string{"income_date", "amount"},
		DefaultSort:     store.Sort{Column: "income_date", Desc: true},
		Refs: []dimension.Ref{
			{Column: "object_id", As: "object_name", Table: "dim_object_payout", KeyColumn: "id", NameColumn: "object_name"},
			{Column: "income_article_id", As: "income_article_name", Table: "dim_income_article", KeyColumn: "id", NameColumn: "income_name"},
			{Column: "payer_entity_id", As: "payer_name", Table: "dim_entity", KeyColumn: "id", NameColumn: "entity_name"},
		},
		Output: []Column{
			{Key: "income_date", Title: "Date"},
			{Key: "amount", Title: "Amount"},
			{Key: "object_name", Title: "Object"},
			{Key: "income_article_name", Title: "Income Article"},
			{Key: "payer_name", Title: "Payer"},
			{Key: "comment", Title: "Comment"},
		},
		PageSize: DefaultPageSize,
	}
}

// Expense is the expense transactions registry. The expense code doubles as
// a substring filter and stays visible next to its resolved name.
func Expense() Definition {
	return Definition{
		Name:            "expense",
		Table:           "fct_cash_out",
		Columns:         []string{"payment_date", "amount", "object_id", "expense_code", "payer_entity_id", "payee_entity_id", "comment"},
		DateColumn:      "payment_date",
		EqualityColumns: []string{"object_id", "payee_entity_id"},
		SubstringColumn: "expense_code",
		SortColumns:     []string{"payment_date", "amount"},
		DefaultSort:     store.Sort{Column: "payment_date", Desc: true},
		Refs: []dimension.Ref{
			{Column: "object_id", As: "object_name", Table: "dim_object_payout", KeyColumn: "id", NameColumn: "object_name"},
			{Column: "expense_code", As: "expense_name", Keep: true, Table: "dim_expense_code", KeyColumn: "expense_code", NameColumn: "expense_name"},
			{Column: "payer_entity_id", As: "payer_name", Table: "dim_entity", KeyColumn: "id", NameColumn: "entity_name"},
			{Column: "payee_entity_id", As: "payee_name", Table: "dim_entity", KeyColumn: "id", NameColumn: "entity_name"},
		},
		Output: []Column{
			{Key: "payment_date", Title: "Date"},
			{Key: "amount", Title: "Amount"},
			{Key: "object_name", Title: "Object"},
			{Key: "expense_code", Title: "Expense Code"},
			{Key: "expense_name", Title: "Expense"},
			{Key: "payer_name", Title: "Payer"},
			{Key: "payee_name", Title: "Payee"},
			{Key: "comment", Title: "Comment"},
		},
		PageSize: DefaultPageSize,
	}
}

// Balances is the latest-balance-per-object registry. It carries no date
// filter: the underlying view already keeps only the newest snapshot per
// balance object.
func Balances() Definition {
	return Definition{
		Name:            "balances",
		Table:           "v_latest_balance_per_balance_object",
		Columns:         []string{"balance_object_id", "snapshot_date", "balance", "bank_id", "payer_entity_id"},
		EqualityColumns: []string{"payer_entity_id", "bank_id"},
		SortColumns:     []string{"snapshot_date", "balance"},
		DefaultSort:     store.Sort{Column: "snapshot_date", Desc: true},
		Refs: []dimension.Ref{
			{Column: "balance_object_id", As: "balance_object_name", Table: "dim_object_balance", KeyColumn: "id", NameColumn: "balance_object_name"},
			{Column: "bank_id", As: "bank_name", Table: "dim_bank", KeyColumn: "id", NameColumn: "bank_name"},
			{Column: "payer_entity_id", As: "payer_name", Table: "dim_entity", KeyColumn: "id", NameColumn: "entity_name"},
		},
		Output: []Column{
			{Key: "balance_object_name", Title: "Object"},
			{Key: "snapshot_date", Title: "Snapshot Date"},
			{Key: "balance", Title: "Balance"},
			{Key: "bank_name", Title: "Bank"},
			{Key: "payer_name", Title: "Payer"},
		},
		PageSize: DefaultPageSize,
	}
}

// All returns the built-in registry definitions.
func All() []Definition {
	return []Definition{Income(), Expense(), Balances()}
}

// AcceptsEquality reports whether the column is a declared equality filter.
func (d Definition) AcceptsEquality(column string) bool {
	for _, c := range d.EqualityColumns {
		if c == column {
			return true
		}
	}
	return false
}

// AcceptsSort reports whether the column is a declared sort key.
func (d Definition) AcceptsSort(column string) bool {
	for _, c := range d.SortColumns {
		if c == column {
			return true
		}
	}
	return false
}
