package loader

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"healthdash/internal/record"
)

// SourceColumnsKey is the Parquet key/value metadata entry holding the
// source schema of a snapshot, as a "|"-joined list of canonical columns.
const SourceColumnsKey = "healthdash.source_columns"

// ParquetReader reads an analysis-set snapshot written by the Parquet sink.
type ParquetReader struct {
	file    *os.File
	reader  *parquet.GenericReader[record.Row]
	buf     []record.Row
	pos     int
	n       int
	columns []record.Field
	stats   Stats
}

func NewParquetReader(path string) (*ParquetReader, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet: %w", err)
	}

	pf, err := parquet.OpenFile(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	r := &ParquetReader{
		file:   f,
		reader: parquet.NewGenericReader[record.Row](f),
		buf:    make([]record.Row, 1024),
	}

	if v, ok := pf.Lookup(SourceColumnsKey); ok && v != "" {
		for _, c := range strings.Split(v, "|") {
			r.columns = append(r.columns, record.Field(c))
		}
	} else {
		r.columns = append(r.columns, record.SourceFields...)
	}

	return r, nil
}

// Next returns the next snapshot row. Returns io.EOF when done.
func (r *ParquetReader) Next() (record.Record, error) {
	if r.pos >= r.n {
		if err := r.fill(); err != nil {
			return record.Record{}, err
		}
	}
	row := &r.buf[r.pos]
	r.pos++

	rec := record.FromRow(row)
	if row.AdmissionDate != nil && rec.AdmissionDate == nil {
		r.stats.check(record.AdmissionDate, func(record.Field) string { return *row.AdmissionDate }, false)
	}
	if row.DischargeDate != nil && rec.DischargeDate == nil {
		r.stats.check(record.DischargeDate, func(record.Field) string { return *row.DischargeDate }, false)
	}
	return rec, nil
}

func (r *ParquetReader) fill() error {
	for i := range r.buf {
		r.buf[i] = record.Row{}
	}
	n, err := r.reader.Read(r.buf)
	r.pos, r.n = 0, n
	if n > 0 {
		return nil
	}
	if err == nil {
		err = io.EOF
	}
	return err
}

func (r *ParquetReader) Columns() []record.Field { return r.columns }

func (r *ParquetReader) ParseFailures() map[record.Field]int { return r.stats.ParseFailures }

func (r *ParquetReader) Format() string { return "parquet" }

// NumRows returns the total row count recorded in the file footer.
func (r *ParquetReader) NumRows() int64 {
	return r.reader.NumRows()
}

func (r *ParquetReader) Close() error {
	r.reader.Close()
	return r.file.Close()
}
