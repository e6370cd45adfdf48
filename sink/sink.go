// Package sink writes a finished batch of quotes to a spreadsheet.
package sink

import (
	"fmt"
	"unicode/utf8"

	"github.com/use-agent/pricewatch/models"
	"github.com/xuri/excelize/v2"
)

// SheetName is the only sheet of the output workbook.
const SheetName = "Stock Prices"

// Header is the first row of the output sheet.
var Header = []string{"Stock Symbol", "Current Price", "Timestamp"}

// WriteXLSX writes quotes, in order, below a bold header row and replaces
// any file at path.
func WriteXLSX(path string, quotes []models.Quote) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return writeFailed(path, err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return writeFailed(path, err)
	}

	widths := make([]int, len(Header))
	rows := make([][]string, 0, len(quotes)+1)
	rows = append(rows, Header)
	for _, q := range quotes {
		rows = append(rows, []string{q.Symbol, q.Price, q.Timestamp})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return writeFailed(path, err)
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
			if n := utf8.RuneCountInString(v); n > widths[j] {
				widths[j] = n
			}
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return writeFailed(path, err)
		}
	}

	last, _ := excelize.CoordinatesToCellName(len(Header), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return writeFailed(path, err)
	}

	for j, w := range widths {
		col, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			return writeFailed(path, err)
		}
		if err := f.SetColWidth(SheetName, col, col, float64(w)+2); err != nil {
			return writeFailed(path, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return writeFailed(path, err)
	}
	return nil
}

func writeFailed(path string, err error) error {
	return models.NewPriceError(models.ErrCodeSinkWrite, fmt.Sprintf("cannot write %s", path), err)
}
