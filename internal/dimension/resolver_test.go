package dimension

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolkoffmikhail/dds-analytics/internal/store"
)

var entityRef = Ref{
	Column: "payer_entity_id", As: "payer_name",
	Table: "dim_entity", KeyColumn: "id", NameColumn: "entity_name",
}

func seededStore() *store.Memory {
	m := store.NewMemory()
	m.Load("dim_entity",
		store.Row{"id": int64(1), "entity_name": "Alpha LLC"},
		store.Row{"id": int64(2), "entity_name": "Beta GmbH"},
	)
	m.Load("dim_object_payout",
		store.Row{"id": int64(10), "object_name": "Warehouse"},
	)
	return m
}

func TestDistinctKeysSkipsNullsAndDuplicates(t *testing.T) {
	rows := []store.Row{
		{"payer_entity_id": int64(2)},
		{"payer_entity_id": nil},
		{"payer_entity_id": int64(1)},
		{"payer_entity_id": int64(2)},
		{},
	}
	assert.Equal(t, []string{"2", "1"}, DistinctKeys(rows, "payer_entity_id"))
}

func TestResolveReplacesKeysWithNames(t *testing.T) {
	m := seededStore()
	r := NewResolver(m, nil)

	rows := []store.Row{
		{"amount": 100.0, "payer_entity_id": int64(1)},
		{"amount": 250.0, "payer_entity_id": int64(2)},
	}
	resolved := r.Resolve(context.Background(), rows, []Ref{entityRef})
	require.Len(t, resolved, 2)
	assert.Equal(t, "Alpha LLC", resolved[0]["payer_name"])
	assert.Equal(t, "Beta GmbH", resolved[1]["payer_name"])
	_, hasRaw := resolved[0]["payer_entity_id"]
	assert.False(t, hasRaw, "raw id column should be replaced")
	assert.Equal(t, 100.0, resolved[0]["amount"])
}

func TestResolveOrphanKeyFallsBackToRawID(t *testing.T) {
	m := seededStore()
	r := NewResolver(m, nil)

	rows := []store.Row{{"payer_entity_id": "X7"}}
	resolved := r.Resolve(context.Background(), rows, []Ref{entityRef})
	require.Len(t, resolved, 1)
	// Never nil, never blank: the raw identifier is shown instead.
	assert.Equal(t, "X7", resolved[0]["payer_name"])
}

func TestResolveNullKeyStaysNull(t *testing.T) {
	m := seededStore()
	r := NewResolver(m, nil)

	resolved := r.Resolve(context.Background(), []store.Row{{"payer_entity_id": nil}}, []Ref{entityRef})
	require.Len(t, resolved, 1)
	val, present := resolved[0]["payer_name"]
	assert.True(t, present)
	assert.Nil(t, val)
}

func TestFetchSkipsDimensionsWithNoKeys(t *testing.T) {
	m := seededStore()
	r := NewResolver(m, nil)

	objectRef := Ref{
		Column: "object_id", As: "object_name",
		Table: "dim_object_payout", KeyColumn: "id", NameColumn: "object_name",
	}
	rows := []store.Row{{"payer_entity_id": int64(1), "object_id": nil}}
	lookups := r.Fetch(context.Background(), rows, []Ref{entityRef, objectRef})

	assert.Contains(t, lookups, "dim_entity")
	assert.NotContains(t, lookups, "dim_object_payout")
	assert.Zero(t, m.Calls("dim_object_payout"), "empty key set must not hit the store")
}

func TestFetchMergesRefsSharingOneDimension(t *testing.T) {
	m := seededStore()
	r := NewResolver(m, nil)

	payee := Ref{
		Column: "payee_entity_id", As: "payee_name",
		Table: "dim_entity", KeyColumn: "id", NameColumn: "entity_name",
	}
	rows := []store.Row{{"payer_entity_id": int64(1), "payee_entity_id": int64(2)}}
	lookups := r.Fetch(context.Background(), rows, []Ref{entityRef, payee})

	assert.Equal(t, 1, m.Calls("dim_entity"), "payer and payee ids should share one batched request")
	assert.Equal(t, Lookup{"1": "Alpha LLC", "2": "Beta GmbH"}, lookups["dim_entity"])
}

func TestResolveDegradesWhenDimensionUnavailable(t *testing.T) {
	m := seededStore()
	m.FailTables["dim_entity"] = true
	r := NewResolver(m, nil)

	resolved := r.Resolve(context.Background(), []store.Row{{"payer_entity_id": int64(1)}}, []Ref{entityRef})
	require.Len(t, resolved, 1)
	assert.Equal(t, "1", resolved[0]["payer_name"])
}

func TestDenormalizeKeepRetainsRawColumn(t *testing.T) {
	ref := Ref{
		Column: "expense_code", As: "expense_name", Keep: true,
		Table: "dim_expense_code", KeyColumn: "expense_code", NameColumn: "expense_name",
	}
	rows := []store.Row{{"expense_code": "7.1", "amount": 5.0}}
	out := Denormalize(rows, []Ref{ref}, Lookups{"dim_expense_code": {"7.1": "Fuel"}})
	require.Len(t, out, 1)
	assert.Equal(t, "7.1", out[0]["expense_code"])
	assert.Equal(t, "Fuel", out[0]["expense_name"])
}

func TestNamesEmptyKeyListSkipsLookup(t *testing.T) {
	m := seededStore()
	r := NewResolver(m, nil)
	lookup := r.Names(context.Background(), entityRef, nil)
	assert.Empty(t, lookup)
	assert.Zero(t, m.Calls("dim_entity"))
}
