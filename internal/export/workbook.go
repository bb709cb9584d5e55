package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"healthdash/internal/dashboard"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// WriteWorkbook writes one sheet per panel, plus a leading summary sheet
// listing every panel and every skipped panel.
func WriteWorkbook(path string, d *dashboard.Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	rows := [][]any{
		{"source", d.Source},
		{"format", d.Format},
		{"generated_at", d.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"loaded_records", d.LoadedRecords},
		{"analysis_records", d.AnalysisRecords},
		{},
		{"panel", "title", "kind", "status"},
	}
	for _, p := range d.Panels {
		rows = append(rows, []any{p.ID, p.Title, string(p.Kind), "ok"})
	}
	for _, s := range d.Skipped {
		rows = append(rows, []any{s.ID, s.Title, "", s.Reason})
	}
	if err := writeRows(f, summary, rows); err != nil {
		return err
	}
	if err := f.SetRowStyle(summary, 7, 7, header); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}

	used := map[string]bool{strings.ToLower(summary): true}
	for _, p := range d.Panels {
		name := sheetName(p.ID, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %s: %w", name, err)
		}

		cols := make([]any, len(p.Columns))
		for i, c := range p.Columns {
			cols[i] = c
		}
		if err := writeRows(f, name, append([][]any{cols}, p.Rows...)); err != nil {
			return err
		}
		if err := f.SetRowStyle(name, 1, 1, header); err != nil {
			return fmt.Errorf("style %s header: %w", name, err)
		}
		if err := f.SetPanes(name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("freeze %s header: %w", name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// sheetName truncates id to the Excel limit and de-duplicates it.
func sheetName(id string, used map[string]bool) string {
	name := id
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		base := id
		if len(base) > maxSheetName-len(suffix) {
			base = base[:maxSheetName-len(suffix)]
		}
		name = base + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}
