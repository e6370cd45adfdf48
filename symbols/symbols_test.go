package symbols

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pricewatch/models"
	"github.com/xuri/excelize/v2"
)

func TestReadLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"header skipped", "Symbol\nTCS\nINFY\n", []string{"TCS", "INFY"}},
		{"header case-insensitive", "STOCK SYMBOLS\nTCS\n", []string{"TCS"}},
		{"no header", "TCS\nINFY", []string{"TCS", "INFY"}},
		{"blank lines and spaces", "Symbol\n\n  TCS  \n\t\nINFY\n", []string{"TCS", "INFY"}},
		{"blank first line is not a header", "\nSymbol\nTCS\n", []string{"Symbol", "TCS"}},
		{"only first line is checked", "TCS\nSymbol\n", []string{"TCS", "Symbol"}},
		{"ticker containing symbol is dropped", "MYSYMBOLCO\nTCS\n", []string{"TCS"}},
		{"whole line kept", "Symbol\nTCS,extra\n", []string{"TCS,extra"}},
		{"crlf", "Symbol\r\nTCS\r\n", []string{"TCS"}},
		{"bom", "\uFEFFSymbol\nTCS\n", []string{"TCS"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadLines(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"header skipped", "Symbol,Name\nTCS,Tata\nINFY,Infosys\n", []string{"TCS", "INFY"}},
		{"first field only", "TCS,Tata\n", []string{"TCS"}},
		{"blank first line is not a header", "\nSymbol\nTCS\n", []string{"Symbol", "TCS"}},
		{"empty first field skipped", "Symbol\n,Tata\nINFY\n", []string{"INFY"}},
		{"quoted", "\"Symbol\"\n\" TCS \"\n", []string{"TCS"}},
		{"ragged rows", "Symbol\nTCS\nINFY,x,y\n", []string{"TCS", "INFY"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCSV(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "stocks_list.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Symbol,Name\nTCS,Tata\n"), 0o644))
	got, err := Load(csvPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"TCS"}, got)

	txtPath := filepath.Join(dir, "stocks.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("Symbol\nTCS,Tata\n"), 0o644))
	got, err = Load(txtPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"TCS,Tata"}, got)

	xlsxPath := filepath.Join(dir, "stocks.XLSX")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Stock Symbol"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "TCS"))
	require.NoError(t, f.SetCellValue(sheet, "A4", " INFY "))
	require.NoError(t, f.SetCellValue(sheet, "B2", "ignored"))
	require.NoError(t, f.SaveAs(xlsxPath))
	require.NoError(t, f.Close())

	got, err = Load(xlsxPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"TCS", "INFY"}, got)
}

func TestLoad_MissingFile(t *testing.T) {
	for _, name := range []string{"nope.csv", "nope.txt", "nope.xlsx"} {
		t.Run(name, func(t *testing.T) {
			got, err := Load(filepath.Join(t.TempDir(), name))
			require.Error(t, err)
			assert.Empty(t, got)

			var pe *models.PriceError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, models.ErrCodeSourceRead, pe.Code)
		})
	}
}
