// Package report renders attendance summaries as PDF, XLSX and CSV files.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/noah-isme/edudash-api/internal/attendance"
)

// Format is a supported output file type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for unknown output formats.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// NoBatchLabel names reports that are not filtered by batch.
const NoBatchLabel = "SME"

// ParseFormat normalises a format name or file extension.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), ".")) {
	case "pdf":
		return FormatPDF, nil
	case "xlsx":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Document is everything a renderer needs.
type Document struct {
	Title       string
	BatchName   string
	Month       time.Time
	GeneratedAt time.Time
	Summary     attendance.Summary
}

// Label returns the batch name, or the SME label when no batch applies.
func (d Document) Label() string {
	if strings.TrimSpace(d.BatchName) == "" {
		return NoBatchLabel
	}
	return d.BatchName
}

// FileName builds "{batch}_{month}_Attendance.{ext}".
func FileName(batchName string, month time.Time, format Format) string {
	label := strings.TrimSpace(batchName)
	if label == "" {
		label = NoBatchLabel
	}
	label = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '-'
		}
		return r
	}, label)
	return fmt.Sprintf("%s_%s_Attendance.%s", label, month.Format(attendance.MonthLayout), format)
}

// Render writes doc to w in the requested format.
func Render(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatPDF:
		return RenderPDF(w, doc)
	case FormatXLSX:
		return RenderXLSX(w, doc)
	case FormatCSV:
		return RenderCSV(w, doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
