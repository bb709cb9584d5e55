package loader

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"healthdash/internal/record"
)

// XLSXReader streams the first worksheet of a workbook whose first
// non-empty row is the header.
type XLSXReader struct {
	file    *excelize.File
	rows    *excelize.Rows
	sheet   string
	columns []record.Field
	colIdx  map[record.Field]int
	stats   Stats
}

func NewXLSXReader(path string) (*XLSXReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, fmt.Errorf("open %s: workbook has no sheets", path)
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	r := &XLSXReader{
		file:   f,
		rows:   rows,
		sheet:  sheets[0],
		colIdx: make(map[record.Field]int),
	}
	if err := r.readHeader(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *XLSXReader) readHeader() error {
	for r.rows.Next() {
		header, err := r.rows.Columns()
		if err != nil {
			return fmt.Errorf("read header row: %w", err)
		}
		if isBlank(header) {
			continue
		}
		for i, h := range header {
			f := NormalizeHeader(h)
			if f == "" {
				continue
			}
			if _, dup := r.colIdx[f]; dup {
				continue
			}
			r.colIdx[f] = i
			r.columns = append(r.columns, f)
		}
		return nil
	}
	if err := r.rows.Error(); err != nil {
		return fmt.Errorf("read header row: %w", err)
	}
	return fmt.Errorf("read header row: sheet %q is empty", r.sheet)
}

// Next returns the Record for the next non-blank row. Returns io.EOF when
// the sheet is exhausted.
func (r *XLSXReader) Next() (record.Record, error) {
	for r.rows.Next() {
		row, err := r.rows.Columns()
		if err != nil {
			return record.Record{}, err
		}
		if isBlank(row) {
			continue
		}
		return buildRecord(func(f record.Field) string {
			return valAt(row, r.colIdx, f)
		}, &r.stats), nil
	}
	if err := r.rows.Error(); err != nil {
		return record.Record{}, err
	}
	return record.Record{}, io.EOF
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (r *XLSXReader) Columns() []record.Field { return r.columns }

func (r *XLSXReader) ParseFailures() map[record.Field]int { return r.stats.ParseFailures }

func (r *XLSXReader) Format() string { return "xlsx" }

func (r *XLSXReader) Close() error {
	if r.rows != nil {
		r.rows.Close()
	}
	return r.file.Close()
}
