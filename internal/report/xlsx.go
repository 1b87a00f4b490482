package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Attendance"

// RenderXLSX writes a single-sheet workbook with one row per person and a totals row.
func RenderXLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	header := []interface{}{"Name", "Present", "Absent", "Percent"}
	if err := f.SetSheetRow(sheetName, "A1", &[]interface{}{fmt.Sprintf("%s %s", doc.Label(), doc.Month.Format("2006-01"))}); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, "A3", &header); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#28916C"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A3", "D3", headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "A", "A", 32); err != nil {
		return err
	}

	rowIndex := 4
	for _, row := range doc.Summary.Rows {
		cell, err := excelize.CoordinatesToCellName(1, rowIndex)
		if err != nil {
			return err
		}
		values := []interface{}{row.Name, row.Present, row.Absent, row.Percent}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
		rowIndex++
	}

	totalCell, err := excelize.CoordinatesToCellName(1, rowIndex+1)
	if err != nil {
		return err
	}
	totals := []interface{}{"Total", doc.Summary.TotalPresent, doc.Summary.TotalAbsent, doc.Summary.OverallPercent}
	if err := f.SetSheetRow(sheetName, totalCell, &totals); err != nil {
		return err
	}
	sessionsCell, err := excelize.CoordinatesToCellName(1, rowIndex+2)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, sessionsCell, &[]interface{}{"Sessions", doc.Summary.SessionCount}); err != nil {
		return err
	}

	return f.Write(w)
}
