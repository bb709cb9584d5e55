package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"healthdash/internal/loader"
	"healthdash/internal/record"
)

// SnapshotWriter writes the analysis set to a Parquet file the loader can
// read back.
//
// Writer configuration:
//
//	Zstd: small files with fast decode for query engines.
//	8KB pages with statistics: page-level min/max lets DuckDB and friends
//	skip pages on billing amount and date predicates.
//	Source columns are kept in key/value metadata so a reload reports the
//	same schema (and so the same skipped panels) as the original source.
type SnapshotWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[record.Row]
	count  int
}

// NewSnapshotWriter creates filename and prepares a writer for a dataset
// whose source schema is columns.
func NewSnapshotWriter(filename string, columns []record.Field) (*SnapshotWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}

	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = string(c)
	}

	writer := parquet.NewGenericWriter[record.Row](file,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.PageBufferSize(8*1024),
		parquet.DataPageStatistics(true),
		parquet.CreatedBy("healthdash", "1.0", ""),
		parquet.KeyValueMetadata(loader.SourceColumnsKey, strings.Join(names, "|")),
	)

	return &SnapshotWriter{file: file, writer: writer}, nil
}

// Write appends records to the snapshot.
func (w *SnapshotWriter) Write(records []record.Record) (int, error) {
	rows := make([]record.Row, len(records))
	for i := range records {
		rows[i] = record.ToRow(&records[i])
	}
	n, err := w.writer.Write(rows)
	w.count += n
	if err != nil {
		return n, fmt.Errorf("write parquet rows: %w", err)
	}
	return n, nil
}

// Close flushes the final row group and closes the file.
func (w *SnapshotWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return w.file.Close()
}

// Count returns the total number of rows written.
func (w *SnapshotWriter) Count() int {
	return w.count
}

// WriteSnapshot writes records to filename in one call.
func WriteSnapshot(filename string, columns []record.Field, records []record.Record) (int, error) {
	w, err := NewSnapshotWriter(filename, columns)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(records); err != nil {
		w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return w.Count(), nil
}
