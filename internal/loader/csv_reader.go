package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"os"

	"healthdash/internal/record"
)

// CSVReader streams a delimited encounter file and emits one Record per
// data row.
type CSVReader struct {
	file    *os.File
	csv     *csv.Reader
	rowNum  int64
	columns []record.Field
	colIdx  map[record.Field]int // canonical column → index
	stats   Stats
}

func NewCSVReader(path string) (*CSVReader, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, err
	}

	bufReader := bufio.NewReaderSize(file, 256*1024)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.Comma = sniffDelimiter(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	r := &CSVReader{
		file:   file,
		csv:    reader,
		colIdx: make(map[record.Field]int),
	}

	if err := r.readHeader(); err != nil {
		file.Close()
		return nil, err
	}

	return r, nil
}

// sniffDelimiter picks the most frequent of ',', ';' and '\t' on the first
// line, defaulting to ','.
func sniffDelimiter(br *bufio.Reader) rune {
	line, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func (r *CSVReader) readHeader() error {
	header, err := r.csv.Read()
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}
	r.rowNum++

	for i, h := range header {
		f := NormalizeHeader(h)
		if f == "" {
			continue
		}
		// First occurrence wins on duplicate headers.
		if _, dup := r.colIdx[f]; dup {
			continue
		}
		r.colIdx[f] = i
		r.columns = append(r.columns, f)
	}
	return nil
}

// Next returns the Record for the next data row, skipping blank lines.
// Returns io.EOF when done.
func (r *CSVReader) Next() (record.Record, error) {
	for {
		row, err := r.csv.Read()
		if err != nil {
			return record.Record{}, err
		}
		r.rowNum++

		if len(row) == 0 || (len(row) == 1 && row[0] == "") {
			continue
		}

		return buildRecord(func(f record.Field) string {
			return valAt(row, r.colIdx, f)
		}, &r.stats), nil
	}
}

func (r *CSVReader) Columns() []record.Field { return r.columns }

func (r *CSVReader) ParseFailures() map[record.Field]int { return r.stats.ParseFailures }

func (r *CSVReader) Format() string {
	if r.csv.Comma == '\t' {
		return "tsv"
	}
	return "csv"
}

// RowNum returns the number of CSV rows read so far, header and blank
// rows included.
func (r *CSVReader) RowNum() int64 {
	return r.rowNum
}

func (r *CSVReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

func valAt(row []string, idx map[record.Field]int, f record.Field) string {
	if i, ok := idx[f]; ok && i < len(row) {
		return row[i]
	}
	return ""
}
