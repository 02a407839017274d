package serviceImp

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"umbra/pkg/ingest/service"
)

// normHeader folds header spellings ("Title", " pdf_url ", "Publication Date")
// onto one key.
func normHeader(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

// table is a header-indexed view over raw records.
type table struct {
	cols map[string]int
	rows [][]string
}

func newTable(records [][]string) (table, error) {
	if len(records) == 0 {
		return table{}, errors.New("no header row")
	}
	t := table{cols: map[string]int{}, rows: records[1:]}
	for i, h := range records[0] {
		if k := normHeader(h); k != "" {
			if _, dup := t.cols[k]; !dup {
				t.cols[k] = i
			}
		}
	}
	return t, nil
}

// get returns the value of the first of keys the header has.
func (t table) get(row []string, keys ...string) string {
	for _, k := range keys {
		if idx, ok := t.cols[normHeader(k)]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
	}
	return ""
}

func (t table) has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := t.cols[normHeader(k)]; ok {
			return true
		}
	}
	return false
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

func readXLSX(path string) ([][]string, error) {
	x, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer x.Close()
	sheets := x.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return x.GetRows(sheets[0])
}

// ReadSource loads the title/link list from a .csv or .xlsx file. Rows without
// a link are kept so row numbers match the file.
func ReadSource(path string) ([]service.SourceRow, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		records, err = readXLSX(path)
	case ".csv", "":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		records, err = readCSV(f)
	default:
		return nil, fmt.Errorf("%w: unsupported source file %q", service.ErrInvalidInput, filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", path, err)
	}
	t, err := newTable(records)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	if !t.has("link", "url") {
		return nil, fmt.Errorf("%w: source has no link column", service.ErrInvalidInput)
	}
	out := make([]service.SourceRow, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, service.SourceRow{
			Title: t.get(row, "title"),
			Link:  t.get(row, "link", "url"),
		})
	}
	return out, nil
}
