package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	excel "github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"id", "name"},
		Rows: []map[string]string{
			{"id": "1", "name": "Alpha"},
			{"id": "2", "name": "Beta, Inc"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	require.Equal(t, "id,name\n1,Alpha\n2,\"Beta, Inc\"\n", string(out))
}

func TestCSVExporterNeutralizesFormulas(t *testing.T) {
	exporter := &CSVExporter{Comma: ';'}
	out, err := exporter.Render(Dataset{
		Headers: []string{"name", "amount"},
		Rows:    []map[string]string{{"name": "=HYPERLINK(\"x\")", "amount": "-5"}, {"name": "@SUM(A1)", "amount": "+1.5"}},
	})
	require.NoError(t, err)
	require.Equal(t, "name;amount\n\"'=HYPERLINK(\"\"x\"\")\";-5\n'@SUM(A1);+1.5\n", string(out))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{Title: "x"})
	require.Error(t, err)
	_, err = NewXLSXExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := sampleDataset()
	data.Title = "countries"
	out, err := NewPDFExporter().Render(data)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestForFormat(t *testing.T) {
	for format, ext := range map[Format]string{"": "csv", FormatCSV: "csv", FormatPDF: "pdf", FormatXLSX: "xlsx"} {
		exp, err := ForFormat(format)
		require.NoError(t, err)
		require.Equal(t, ext, exp.Extension())
	}
	_, err := ForFormat("docx")
	require.Error(t, err)
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excel.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"id", "name"}, {"1", "Alpha"}, {"2", "Beta, Inc"}}, rows)
}
