// Package symbols reads the ordered list of tickers a run resolves.
package symbols

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/use-agent/pricewatch/models"
	"github.com/xuri/excelize/v2"
)

const bom = "\uFEFF"

// Load reads symbols from path. The reader is chosen by extension:
// .xlsx reads the first column of the first sheet, .csv reads the first
// field of each record, and anything else reads one symbol per line.
//
// The first row is a header when its first cell contains "symbol" in any
// case, and is skipped. Blank entries are skipped everywhere.
func Load(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadSheet(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, readFailed(path, err)
		}
		defer f.Close()
		return ReadCSV(f)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, readFailed(path, err)
		}
		defer f.Close()
		return ReadLines(f)
	}
}

// ReadLines treats every trimmed line as one symbol.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), bom))
		if first {
			first = false
			if isHeader(line) {
				continue
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, models.NewPriceError(models.ErrCodeSourceRead, "read symbol lines", err)
	}
	return out, nil
}

// ReadCSV takes the first field of every record.
func ReadCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var out []string
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, models.NewPriceError(models.ErrCodeSourceRead, "read symbol csv", err)
		}
		cell := strings.TrimSpace(strings.TrimPrefix(rec[0], bom))
		if first {
			first = false
			// csv.Reader skips blank lines; a record that does not start on
			// line 1 means the first line was blank, which is not a header.
			if line, _ := cr.FieldPos(0); line == 1 && isHeader(cell) {
				continue
			}
		}
		if cell != "" {
			out = append(out, cell)
		}
	}
	return out, nil
}

// ReadSheet takes column A of the workbook's first sheet.
func ReadSheet(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, readFailed(path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, models.NewPriceError(models.ErrCodeSourceRead, "read sheet "+sheets[0], err)
	}

	var out []string
	for i, row := range rows {
		var cell string
		if len(row) > 0 {
			cell = strings.TrimSpace(row[0])
		}
		if i == 0 && isHeader(cell) {
			continue
		}
		if cell != "" {
			out = append(out, cell)
		}
	}
	return out, nil
}

// isHeader also matches a ticker that happens to contain "symbol".
func isHeader(cell string) bool {
	return strings.Contains(strings.ToLower(cell), "symbol")
}

func readFailed(path string, err error) error {
	return models.NewPriceError(models.ErrCodeSourceRead, "cannot read symbol source "+path, err)
}
