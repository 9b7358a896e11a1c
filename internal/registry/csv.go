package registry

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wolkoffmikhail/dds-analytics/internal/store"
)

// amountColumns carry monetary values and get grouped-digit formatting in
// exports.
var amountColumns = map[string]struct{}{
	"amount":  {},
	"balance": {},
}

// WriteCSV serialises a registry result to CSV in the definition's output
// column order. Monetary columns are printed with digit grouping; everything
// else is rendered as plain text.
func WriteCSV(w io.Writer, def Definition, rows []store.Row) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	printer := message.NewPrinter(language.English)

	header := make([]string, 0, len(def.Output))
	for _, col := range def.Output {
		header = append(header, col.Title)
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	record := make([]string, len(def.Output))
	for _, row := range rows {
		for i, col := range def.Output {
			if _, ok := amountColumns[col.Key]; ok {
				record[i] = printer.Sprintf("%.2f", store.Float(row[col.Key]))
				continue
			}
			record[i] = store.Text(row[col.Key])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
