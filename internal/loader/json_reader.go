package loader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"healthdash/internal/record"
)

// JSONReader streams a JSON array of flat encounter objects, holding one
// decoded object at a time.
type JSONReader struct {
	file    *os.File
	decoder *json.Decoder
	rowNum  int64
	columns []record.Field
	seen    map[record.Field]bool
	stats   Stats
	done    bool
}

func NewJSONReader(path string) (*JSONReader, error) {
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

	decoder := json.NewDecoder(bufReader)
	decoder.UseNumber()

	r := &JSONReader{
		file:    file,
		decoder: decoder,
		seen:    make(map[record.Field]bool),
	}

	// Read opening '['
	tok, err := decoder.Token()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read opening bracket: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		file.Close()
		return nil, fmt.Errorf("expected '[', got %v", tok)
	}

	return r, nil
}

// Next decodes the next array element. Returns io.EOF after the closing ']'.
func (r *JSONReader) Next() (record.Record, error) {
	if r.done || !r.decoder.More() {
		r.done = true
		return record.Record{}, io.EOF
	}

	var raw map[string]any
	if err := r.decoder.Decode(&raw); err != nil {
		return record.Record{}, fmt.Errorf("decode item %d: %w", r.rowNum+1, err)
	}
	r.rowNum++

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cells := make(map[record.Field]string, len(raw))
	for _, k := range keys {
		f := NormalizeHeader(k)
		if f == "" {
			continue
		}
		if _, dup := cells[f]; dup {
			continue
		}
		cells[f] = jsonCell(raw[k])
		if !r.seen[f] {
			r.seen[f] = true
			r.columns = append(r.columns, f)
		}
	}

	return buildRecord(func(f record.Field) string { return cells[f] }, &r.stats), nil
}

// jsonCell renders a decoded JSON scalar as the text the field parsers
// expect. Nested values are not part of the flat schema and read as empty.
func jsonCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	}
	return ""
}

// Columns returns the keys seen so far, in the order objects introduced
// them (sorted within one object).
func (r *JSONReader) Columns() []record.Field { return r.columns }

func (r *JSONReader) ParseFailures() map[record.Field]int { return r.stats.ParseFailures }

func (r *JSONReader) Format() string { return "json" }

// RowNum returns the number of array elements decoded so far.
func (r *JSONReader) RowNum() int64 {
	return r.rowNum
}

func (r *JSONReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
