package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

// RenderCSV writes a header row, one row per person and a totals row.
func RenderCSV(w io.Writer, doc Document) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"name", "present", "absent", "percent"}); err != nil {
		return err
	}
	for _, row := range doc.Summary.Rows {
		record := []string{
			row.Name,
			strconv.Itoa(row.Present),
			strconv.Itoa(row.Absent),
			strconv.Itoa(row.Percent),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	totals := []string{
		"TOTAL",
		strconv.Itoa(doc.Summary.TotalPresent),
		strconv.Itoa(doc.Summary.TotalAbsent),
		strconv.Itoa(doc.Summary.OverallPercent),
	}
	if err := writer.Write(totals); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}
