package registry

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wolkoffmikhail/dds-analytics/internal/store"
)

func TestWriteCSVUsesOutputOrderAndFormatsAmounts(t *testing.T) {
	rows := []store.Row{
		{
			"income_date":         "2024-01-05",
			"amount":              1234567.5,
			"object_name":         "Warehouse",
			"income_article_name": "Rent",
			"payer_name":          "Acme LLC",
			"comment":             "january rent",
		},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, WriteCSV(buf, Income(), rows))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, []string{"Date", "Amount", "Object", "Income Article", "Payer", "Comment"}, records[0])
	require.Equal(t, "2024-01-05", records[1][0])
	require.Equal(t, "1,234,567.50", records[1][1])
	require.Equal(t, "january rent", records[1][5])
}

func TestWriteCSVRendersMissingValuesBlank(t *testing.T) {
	rows := []store.Row{
		{"balance_object_name": "Main", "balance": 100.0},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, WriteCSV(buf, Balances(), rows))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Equal(t, "Main", records[1][0])
	require.Equal(t, "", records[1][1])
	require.Equal(t, "100.00", records[1][2])
	require.Equal(t, "", records[1][3])
}

func TestWriteCSVEmptyResultStillWritesHeader(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteCSV(buf, Expense(), nil))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, records[0], len(Expense().Output))
}
