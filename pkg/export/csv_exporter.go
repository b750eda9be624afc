package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strconv"
	"strings"
)

// CSVExporter writes datasets as RFC 4180 CSV. Cells that a spreadsheet would evaluate
// as a formula are prefixed with a single quote; signed numbers are left alone.
type CSVExporter struct {
	// Comma overrides the field delimiter when non-zero.
	Comma rune
}

// NewCSVExporter returns a comma separated exporter.
func NewCSVExporter() *CSVExporter { return &CSVExporter{} }

func (e *CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }

func (e *CSVExporter) Extension() string { return string(FormatCSV) }

func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, errors.New("csv export: no columns")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if e.Comma != 0 {
		w.Comma = e.Comma
	}

	lines := make([][]string, 0, len(data.Rows)+1)
	lines = append(lines, data.Headers)
	for _, row := range data.Rows {
		line := make([]string, len(data.Headers))
		for i, h := range data.Headers {
			line[i] = neutralizeFormula(row[h])
		}
		lines = append(lines, line)
	}
	if err := w.WriteAll(lines); err != nil {
		return nil, errors.Join(errors.New("csv export"), err)
	}
	return buf.Bytes(), nil
}

func neutralizeFormula(cell string) string {
	if cell == "" || !strings.ContainsRune("=+-@", rune(cell[0])) {
		return cell
	}
	if _, err := strconv.ParseFloat(cell, 64); err != nil {
		return "'" + cell
	}
	return cell
}
