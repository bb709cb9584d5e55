// Package export writes a built dashboard and its analysis set to the
// configured sinks: a JSON document, an XLSX workbook, a Parquet snapshot
// and Postgres tables.
package export

import (
	"encoding/json"
	"fmt"
	"os"

	"healthdash/internal/dashboard"
)

// WriteJSON writes d as an indented JSON document.
func WriteJSON(path string, d *dashboard.Dashboard) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		f.Close()
		return fmt.Errorf("encode dashboard: %w", err)
	}
	return f.Close()
}
