package report

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageLeft    = 15.0
	pageWidth   = 180.0
	chartHeight = 60.0
)

// RenderPDF writes an A4 report with a per-person table and a percentage bar chart.
func RenderPDF(w io.Writer, doc Document) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageLeft, 15, pageLeft)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	title := doc.Title
	if title == "" {
		title = "Attendance Report"
	}

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 5, fmt.Sprintf("Batch: %s   Month: %s", doc.Label(), doc.Month.Format("January 2006")))
	pdf.Ln(5)
	pdf.Cell(0, 5, fmt.Sprintf("Sessions held: %d   Overall attendance: %d%%", doc.Summary.SessionCount, doc.Summary.OverallPercent))
	pdf.Ln(3)
	pdf.SetDrawColor(40, 145, 108)
	pdf.Line(pageLeft, pdf.GetY()+2, pageLeft+pageWidth, pdf.GetY()+2)
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(40, 145, 108)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(90, 8, "NAME", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "PRESENT", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "ABSENT", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "PERCENT", "1", 1, "C", true, 0, "")
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Arial", "", 9)
	pdf.SetFillColor(245, 245, 245)
	for i, row := range doc.Summary.Rows {
		fill := i%2 == 0
		pdf.CellFormat(90, 7, row.Name, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", row.Present), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", row.Absent), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d%%", row.Percent), "1", 1, "C", fill, 0, "")
	}

	if len(doc.Summary.Rows) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 10, "No attendance recorded for this period.")
		pdf.Ln(10)
	} else {
		drawChart(pdf, doc)
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 5, fmt.Sprintf("Generated on %s", doc.GeneratedAt.Format("January 02, 2006 at 3:04 PM")))

	return pdf.Output(w)
}

func drawChart(pdf *gofpdf.Fpdf, doc Document) {
	rows := doc.Summary.Rows

	pdf.Ln(8)
	_, pageHeight := pdf.GetPageSize()
	if pdf.GetY()+chartHeight+25 > pageHeight-15 {
		pdf.AddPage()
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, "Attendance percentage by person")
	pdf.Ln(8)

	top := pdf.GetY()
	bottom := top + chartHeight
	pdf.SetDrawColor(120, 120, 120)
	pdf.Line(pageLeft, top, pageLeft, bottom)
	pdf.Line(pageLeft, bottom, pageLeft+pageWidth, bottom)

	slot := pageWidth / float64(len(rows))
	barWidth := slot * 0.6
	pdf.SetFillColor(40, 145, 108)
	pdf.SetFont("Arial", "", 6)
	for i, row := range rows {
		height := chartHeight * float64(row.Percent) / 100
		x := pageLeft + float64(i)*slot + (slot-barWidth)/2
		if height > 0 {
			pdf.Rect(x, bottom-height, barWidth, height, "F")
		}
		pdf.SetXY(x-1, bottom-height-4)
		pdf.CellFormat(barWidth+2, 3, fmt.Sprintf("%d%%", row.Percent), "", 0, "C", false, 0, "")
		pdf.SetXY(pageLeft+float64(i)*slot, bottom+1)
		pdf.CellFormat(slot, 3, truncate(row.Name, slot), "", 0, "C", false, 0, "")
	}
	pdf.SetXY(pageLeft, bottom+6)
}

// truncate shortens a label to roughly fit width millimetres at 6pt.
func truncate(label string, width float64) string {
	max := int(width / 1.3)
	if max < 3 {
		max = 3
	}
	runes := []rune(label)
	if len(runes) <= max {
		return label
	}
	return string(runes[:max-1]) + "."
}
