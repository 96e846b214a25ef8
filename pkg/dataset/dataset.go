// Package dataset ingests tabular files (CSV, XLSX) and computes the
// column profile consumed by the AI cleaning/analysis endpoints and the
// execution adapter's dataset staging.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is the raw parsed form of an uploaded file.
type Table struct {
	FileName string
	Header   []string
	Rows     [][]string
}

// ReadTable parses an uploaded tabular file. The format is chosen by file
// extension; anything that is not .xlsx/.xls is treated as CSV.
func ReadTable(r io.Reader, fileName string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xls":
		return readExcel(r, fileName)
	default:
		return readCSV(r, fileName)
	}
}

func readCSV(r io.Reader, fileName string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are a data problem, not a parse failure

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file: %s", fileName)
	}

	return &Table{
		FileName: fileName,
		Header:   records[0],
		Rows:     records[1:],
	}, nil
}

func readExcel(r io.Reader, fileName string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets: %s", fileName)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty sheet: %s", sheets[0])
	}

	return &Table{
		FileName: fileName,
		Header:   rows[0],
		Rows:     rows[1:],
	}, nil
}

// CSV renders the table back as CSV. XLSX uploads go through this before
// being staged for Python code, which reads the dataset with pandas as CSV.
func (t *Table) CSV() (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(t.Header); err != nil {
		return "", err
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
