package dashboard

import (
	"testing"

	"github.com/wolkoffmikhail/dds-analytics/internal/dimension"
	"github.com/wolkoffmikhail/dds-analytics/internal/store"
)

func TestTopGroupsRanksBySumDescending(t *testing.T) {
	rows := []store.Row{
		{"expense_code": "A", "amount": 100.0},
		{"expense_code": "B", "amount": 300.0},
		{"expense_code": "A", "amount": 50.0},
	}
	groups := TopGroups(rows, "expense_code", "amount", 1)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Key != "B" || groups[0].Total != 300 {
		t.Fatalf("top group = %+v", groups[0])
	}
	if got := SumColumn(rows, "amount"); got != 450 {
		t.Fatalf("sum = %v", got)
	}
}

func TestTopGroupsTruncatesToN(t *testing.T) {
	var rows []store.Row
	codes := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	for i, code := range codes {
		rows = append(rows, store.Row{"expense_code": code, "amount": float64(100 - i)})
	}
	groups := TopGroups(rows, "expense_code", "amount", 10)
	if len(groups) != 10 {
		t.Fatalf("expected 10 groups, got %d", len(groups))
	}
	for i := 1; i < len(groups); i++ {
		if groups[i].Total > groups[i-1].Total {
			t.Fatalf("groups not sorted descending at %d: %+v", i, groups)
		}
	}
}

func TestTopGroupsTieBreakIsFirstSeen(t *testing.T) {
	rows := []store.Row{
		{"expense_code": "later", "amount": 10.0},
		{"expense_code": "earlier", "amount": 5.0},
		{"expense_code": "earlier", "amount": 5.0},
	}
	// Both groups total 10; "later" started accumulating first.
	groups := TopGroups(rows, "expense_code", "amount", 10)
	if groups[0].Key != "later" || groups[1].Key != "earlier" {
		t.Fatalf("tie-break broken: %+v", groups)
	}
}

func TestTopGroupsZeroAmountRowDoesNotReorder(t *testing.T) {
	rows := []store.Row{
		{"expense_code": "A", "amount": 100.0},
		{"expense_code": "B", "amount": 300.0},
	}
	before := TopGroups(rows, "expense_code", "amount", 10)

	rows = append(rows, store.Row{"expense_code": "A", "amount": 0.0})
	after := TopGroups(rows, "expense_code", "amount", 10)

	if len(before) != len(after) {
		t.Fatalf("group count changed: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("ranking changed at %d: %+v vs %+v", i, before[i], after[i])
		}
	}
}

func TestTopGroupsMissingKeyDefaultsToUnknown(t *testing.T) {
	rows := []store.Row{
		{"expense_code": nil, "amount": 7.0},
		{"amount": 3.0},
	}
	groups := TopGroups(rows, "expense_code", "amount", 10)
	if len(groups) != 1 {
		t.Fatalf("expected a single UNKNOWN group, got %+v", groups)
	}
	if groups[0].Key != dimension.Unknown || groups[0].Total != 10 {
		t.Fatalf("unknown group = %+v", groups[0])
	}
}

func TestTopGroupsEmptyInput(t *testing.T) {
	if groups := TopGroups(nil, "expense_code", "amount", 10); len(groups) != 0 {
		t.Fatalf("expected no groups, got %+v", groups)
	}
}
