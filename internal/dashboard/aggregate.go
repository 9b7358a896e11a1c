package dashboard

import (
	"sort"

	"github.com/wolkoffmikhail/dds-analytics/internal/dimension"
	"github.com/wolkoffmikhail/dds-analytics/internal/store"
)

// SumColumn adds up a numeric column across the full row set in one pass.
// Missing and non-numeric values count as zero.
func SumColumn(rows []store.Row, column string) float64 {
	var total float64
	for _, row := range rows {
		total += store.Float(row[column])
	}
	return total
}

// Group is one grouped aggregation bucket.
type Group struct {
	Key   string
	Total float64
}

// TopGroups groups rows by a key column, sums the amount column per group and
// returns the n largest groups by total, descending. Rows without a key fall
// into the UNKNOWN bucket. Ties keep the order in which the groups first
// appeared in the row iteration. The ranking is computed over the whole row
// set; name resolution for the survivors happens afterwards, not here.
func TopGroups(rows []store.Row, keyColumn, amountColumn string, n int) []Group {
	totals := make(map[string]float64, len(rows))
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		key := store.Key(row[keyColumn])
		if key == "" {
			key = dimension.Unknown
		}
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] += store.Float(row[amountColumn])
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{Key: key, Total: totals[key]})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Total > groups[j].Total
	})
	if n > 0 && len(groups) > n {
		groups = groups[:n]
	}
	return groups
}

// seriesPoints coerces the pre-aggregated daily view rows into typed points.
// The store already orders and aggregates this view; only numeric coercion
// happens here, with the incoming order preserved and no gap filling.
func seriesPoints(rows []store.Row) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, SeriesPoint{
			Date:    store.Text(row["dt"]),
			Inflow:  store.Float(row["inflow"]),
			Outflow: store.Float(row["outflow"]),
			Net:     store.Float(row["net"]),
		})
	}
	return points
}
