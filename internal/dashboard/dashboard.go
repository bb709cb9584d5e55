// Package dashboard turns a loaded dataset into the ordered set of panels
// every sink renders. Panels are plain tables (columns plus rows) so the
// JSON, workbook, Postgres and HTTP outputs share one shape.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"healthdash/internal/analysis"
	"healthdash/internal/config"
	"healthdash/internal/loader"
	"healthdash/internal/record"
)

// ErrMissingColumn marks a panel skipped because the dataset lacks a
// column it needs.
var ErrMissingColumn = errors.New("missing column")

// Kind tells a renderer how to draw a panel.
type Kind string

const (
	KindMetric        Kind = "metric"
	KindBar           Kind = "bar"
	KindStackedBar    Kind = "stacked-bar"
	KindHistogram     Kind = "histogram"
	KindBox           Kind = "box"
	KindHeatmap       Kind = "heatmap"
	KindLine          Kind = "line"
	KindScatterFrames Kind = "scatter-frames"
	KindTable         Kind = "table"
	KindSunburst      Kind = "sunburst"
)

// Panel is one visual summary. Rows hold only strings, ints, float64s and
// nils; non-finite numbers are stored as nil.
type Panel struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Kind    Kind           `json:"kind"`
	Columns []string       `json:"columns"`
	Rows    [][]any        `json:"rows"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Skip records a panel that was not produced.
type Skip struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Missing []record.Field `json:"missing"`
	Reason  string         `json:"reason"`
	Err     error          `json:"-"`
}

// Dashboard is the result of one run.
type Dashboard struct {
	Source          string               `json:"source"`
	Format          string               `json:"format"`
	Columns         []record.Field       `json:"columns"`
	GeneratedAt     time.Time            `json:"generated_at"`
	LoadedRecords   int                  `json:"loaded_records"`
	AnalysisRecords int                  `json:"analysis_records"`
	ParseFailures   map[record.Field]int `json:"parse_failures,omitempty"`
	Panels          []Panel              `json:"panels"`
	Skipped         []Skip               `json:"skipped"`

	// Records is the filtered analysis set the panels were computed from.
	Records []record.Record `json:"-"`
}

// Panel returns the panel with the given ID.
func (d *Dashboard) Panel(id string) (Panel, bool) {
	for _, p := range d.Panels {
		if p.ID == id {
			return p, true
		}
	}
	return Panel{}, false
}

// Build filters ds down to the analysis set and computes every enabled
// panel in order. Panels whose columns are absent from ds are skipped, not
// failed; the only error is ctx cancellation.
func Build(ctx context.Context, ds *loader.Dataset, cfg config.DashboardConfig, logger *zap.Logger) (*Dashboard, error) {
	logger = logger.With(zap.String("component", "dashboard"))
	start := time.Now()

	if !ds.HasColumns(analysis.RequiredFields...) {
		logger.Warn("required columns absent, analysis set is empty",
			zap.Strings("missing", fieldNames(missing(ds, analysis.RequiredFields))))
	}
	recs := analysis.Filter(ds.Records, analysis.RequiredFields)

	d := &Dashboard{
		Source:          ds.Source,
		Format:          ds.Format,
		Columns:         ds.Columns,
		GeneratedAt:     time.Now().UTC(),
		LoadedRecords:   len(ds.Records),
		AnalysisRecords: len(recs),
		ParseFailures:   ds.Stats.ParseFailures,
		Panels:          []Panel{},
		Skipped:         []Skip{},
		Records:         recs,
	}
	logger.Info("analysis set filtered",
		zap.Int("loaded", d.LoadedRecords),
		zap.Int("kept", d.AnalysisRecords),
		zap.Int("dropped", d.LoadedRecords-d.AnalysisRecords))

	specs := panelSpecs()
	warnUnknownDisabled(logger, cfg.Disabled, specs)

	for _, s := range specs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build dashboard: %w", err)
		}
		if cfg.IsDisabled(s.id) {
			logger.Debug("panel disabled", zap.String("panel", s.id))
			continue
		}
		if gone := missing(ds, s.needs); len(gone) > 0 {
			err := fmt.Errorf("panel %s: %w: %v", s.id, ErrMissingColumn, fieldNames(gone))
			d.Skipped = append(d.Skipped, Skip{
				ID:      s.id,
				Title:   s.title,
				Missing: gone,
				Reason:  err.Error(),
				Err:     err,
			})
			logger.Warn("panel skipped", zap.String("panel", s.id), zap.Error(err))
			continue
		}

		p := Panel{ID: s.id, Title: s.title, Kind: s.kind}
		s.build(&p, recs, cfg)
		sanitize(&p)
		d.Panels = append(d.Panels, p)
	}

	logger.Info("dashboard built",
		zap.Int("panels", len(d.Panels)),
		zap.Int("skipped", len(d.Skipped)),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
	return d, nil
}

func missing(ds *loader.Dataset, fields []record.Field) []record.Field {
	var out []record.Field
	for _, f := range fields {
		if !ds.HasColumns(f) {
			out = append(out, f)
		}
	}
	return out
}

func fieldNames(fields []record.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

func warnUnknownDisabled(logger *zap.Logger, disabled []string, specs []panelSpec) {
	for _, id := range disabled {
		known := false
		for _, s := range specs {
			if strings.EqualFold(strings.TrimSpace(id), s.id) {
				known = true
				break
			}
		}
		if !known {
			logger.Warn("unknown panel in disabled list", zap.String("panel", id))
		}
	}
}

// sanitize replaces NaN and ±Inf cells with nil.
func sanitize(p *Panel) {
	for _, row := range p.Rows {
		for j, v := range row {
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				row[j] = nil
			}
		}
	}
}
