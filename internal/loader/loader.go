// Package loader reads encounter datasets from CSV, JSON, XLSX or Parquet
// sources and normalizes them into records.
//
// Parsing is permissive: a value that cannot be parsed becomes missing for
// that record only. The only fatal condition is a source that cannot be
// opened or whose header cannot be read.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"healthdash/internal/record"
)

// ErrUnsupportedFormat is returned by Open for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Reader is the common interface for every source format.
type Reader interface {
	// Next returns the next record, or io.EOF when the source is exhausted.
	Next() (record.Record, error)
	// Columns returns the normalized source columns seen so far, in order.
	Columns() []record.Field
	// ParseFailures counts, per field, the non-empty values that could not
	// be parsed and were left missing.
	ParseFailures() map[record.Field]int
	Format() string
	Close() error
}

// rowCounter is implemented by readers that know how many source rows they
// have consumed, blank and header rows included.
type rowCounter interface {
	RowNum() int64
}

// sizer is implemented by readers whose row count is known up front.
type sizer interface {
	NumRows() int64
}

// Open returns a Reader for path, chosen by file extension.
func Open(path string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".tsv":
		return NewCSVReader(path)
	case ".json":
		return NewJSONReader(path)
	case ".xlsx":
		return NewXLSXReader(path)
	case ".parquet":
		return NewParquetReader(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Stats describes one load.
type Stats struct {
	Rows          int
	ParseFailures map[record.Field]int
}

func (s *Stats) check(f record.Field, lookup func(record.Field) string, parsed bool) {
	if parsed || s == nil || strings.TrimSpace(lookup(f)) == "" {
		return
	}
	if s.ParseFailures == nil {
		s.ParseFailures = make(map[record.Field]int)
	}
	s.ParseFailures[f]++
}

// Dataset is a fully loaded, normalized source.
type Dataset struct {
	Source  string
	Format  string
	Columns []record.Field
	Records []record.Record
	Stats   Stats
}

// HasColumns reports whether every field is part of the dataset schema.
// Derived fields are present when the columns they derive from are.
func (d *Dataset) HasColumns(fields ...record.Field) bool {
	for _, f := range fields {
		if !d.hasColumn(f) {
			return false
		}
	}
	return true
}

func (d *Dataset) hasColumn(f record.Field) bool {
	switch f {
	case record.LengthOfStay:
		return d.hasColumn(record.AdmissionDate) && d.hasColumn(record.DischargeDate)
	case record.AdmissionMonth:
		return d.hasColumn(record.AdmissionDate)
	}
	for _, c := range d.Columns {
		if c == f {
			return true
		}
	}
	return false
}

// Load reads every record of path into memory.
func Load(path string, logger *zap.Logger) (*Dataset, error) {
	start := time.Now()

	reader, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	ds := &Dataset{
		Source: path,
		Format: reader.Format(),
	}
	if s, ok := reader.(sizer); ok {
		ds.Records = make([]record.Record, 0, s.NumRows())
	}
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			row := int64(ds.Stats.Rows + 1)
			if c, ok := reader.(rowCounter); ok {
				row = c.RowNum() + 1
			}
			return nil, fmt.Errorf("read %s row %d: %w", path, row, err)
		}
		ds.Records = append(ds.Records, rec)
		ds.Stats.Rows++
	}
	ds.Columns = reader.Columns()
	ds.Stats.ParseFailures = reader.ParseFailures()

	logger.Info("dataset loaded",
		zap.String("source", path),
		zap.String("format", ds.Format),
		zap.Int("rows", ds.Stats.Rows),
		zap.Int("columns", len(ds.Columns)),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))

	for _, f := range record.SourceFields {
		if !ds.hasColumn(f) {
			logger.Debug("source column absent", zap.String("column", string(f)))
		}
	}
	logParseFailures(logger, ds)

	return ds, nil
}

// logParseFailures reports the per-field parse failures of a finished load.
func logParseFailures(logger *zap.Logger, ds *Dataset) {
	for _, f := range record.SourceFields {
		if n := ds.Stats.ParseFailures[f]; n > 0 {
			logger.Warn("unparseable values treated as missing",
				zap.String("column", string(f)),
				zap.Int("count", n))
		}
	}
}

// openFile opens path for a reader constructor, wrapping the error with the
// path the way every reader reports it.
func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
