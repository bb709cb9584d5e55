package dashboard

import (
	"healthdash/internal/analysis"
	"healthdash/internal/config"
	"healthdash/internal/record"
)

// monthLayout formats admission months in panel rows.
const monthLayout = "2006-01"

// Fields of the correlation heatmap and the sunburst path.
var (
	CorrelationFields = []record.Field{record.Age, record.BillingAmount, record.LengthOfStay}
	SunburstPath      = []record.Field{record.AdmissionType, record.MedicalCondition, record.Gender}
	TopBilledColumns  = []record.Field{record.Name, record.BillingAmount, record.MedicalCondition, record.Hospital, record.AdmissionType}
)

type panelSpec struct {
	id    string
	title string
	kind  Kind
	needs []record.Field
	build func(p *Panel, recs []record.Record, cfg config.DashboardConfig)
}

// panelSpecs lists the default panels in display order.
func panelSpecs() []panelSpec {
	return []panelSpec{
		{
			id: "total-records", title: "Total Records", kind: KindMetric,
			build: func(p *Panel, recs []record.Record, _ config.DashboardConfig) {
				p.Columns = []string{"metric", "value"}
				p.Rows = [][]any{{"Total Records", len(recs)}}
			},
		},
		{
			id: "gender-split", title: "Gender Distribution", kind: KindBar,
			needs: []record.Field{record.Gender},
			build: func(p *Panel, recs []record.Record, _ config.DashboardConfig) {
				countsPanel(p, analysis.ValueCounts(recs, record.Gender, 0), record.Gender)
			},
		},
		{
			id: "age-histogram", title: "Age Distribution", kind: KindHistogram,
			needs: []record.Field{record.Age},
			build: func(p *Panel, recs []record.Record, cfg config.DashboardConfig) {
				binsPanel(p, analysis.Histogram(recs, record.Age, cfg.AgeBins))
				p.Meta = map[string]any{"field": record.Age, "bins": cfg.AgeBins}
			},
		},
		{
			id: "top-conditions", title: "Top Medical Conditions", kind: KindBar,
			needs: []record.Field{record.MedicalCondition},
			build: func(p *Panel, recs []record.Record, cfg config.DashboardConfig) {
				countsPanel(p, analysis.ValueCounts(recs, record.MedicalCondition, cfg.TopConditions), record.MedicalCondition)
				p.Meta = map[string]any{"top_n": cfg.TopConditions}
			},
		},
		{
			id: "billing-by-admission-type", title: "Billing Amount by Admission Type", kind: KindBox,
			needs: []record.Field{record.AdmissionType, record.BillingAmount},
			build: func(p *Panel, recs []record.Record, _ config.DashboardConfig) {
				boxPanel(p, analysis.NumericByGroup(recs, record.AdmissionType, record.BillingAmount), record.AdmissionType)
			},
		},
		{
			id: "age-los-density", title: "Age vs Length of Stay", kind: KindHeatmap,
			needs: []record.Field{record.Age, record.LengthOfStay},
			build: func(p *Panel, recs []record.Record, cfg config.DashboardConfig) {
				densityPanel(p, analysis.Density2D(recs, record.Age, record.LengthOfStay, cfg.DensityXBins, cfg.DensityYBins))
			},
		},
		{
			id: "blood-type-by-gender", title: "Blood Type by Gender", kind: KindStackedBar,
			needs: []record.Field{record.BloodType, record.Gender},
			build: func(p *Panel, recs []record.Record, _ config.DashboardConfig) {
				crossPanel(p, analysis.CrossTabulate(recs, record.BloodType, record.Gender))
			},
		},
		{
			id: "monthly-billing", title: "Monthly Billing Trend", kind: KindLine,
			needs: []record.Field{record.AdmissionDate, record.BillingAmount},
			build: func(p *Panel, recs []record.Record, _ config.DashboardConfig) {
				p.Columns = []string{"month", string(record.BillingAmount), "count"}
				p.Rows = [][]any{}
				for _, m := range analysis.MonthlySum(recs, record.BillingAmount) {
					p.Rows = append(p.Rows, []any{m.Month.Format(monthLayout), m.Total, m.Count})
				}
			},
		},
		{
			id: "correlation", title: "Correlation Heatmap", kind: KindHeatmap,
			needs: CorrelationFields,
			build: func(p *Panel, recs []record.Record, _ config.DashboardConfig) {
				corrPanel(p, analysis.Correlation(recs, CorrelationFields))
			},
		},
		{
			id: "top-billed", title: "Top Billed Patients", kind: KindTable,
			needs: TopBilledColumns,
			build: func(p *Panel, recs []record.Record, cfg config.DashboardConfig) {
				p.Columns = fieldNames(TopBilledColumns)
				p.Rows = [][]any{}
				for _, r := range analysis.TopN(recs, record.BillingAmount, true, cfg.TopBilled) {
					row := make([]any, len(TopBilledColumns))
					for j, f := range TopBilledColumns {
						row[j] = r.Value(f)
					}
					p.Rows = append(p.Rows, row)
				}
				p.Meta = map[string]any{"top_n": cfg.TopBilled, "sort": record.BillingAmount}
			},
		},
		{
			id: "billing-age-frames", title: "Billing vs Age by Admission Month", kind: KindScatterFrames,
			needs: []record.Field{record.AdmissionDate, record.Age, record.BillingAmount},
			build: func(p *Panel, recs []record.Record, _ config.DashboardConfig) {
				framesPanel(p, analysis.MonthlyFrames(recs))
			},
		},
		{
			id: "admission-sunburst", title: "Admission Type, Condition and Gender", kind: KindSunburst,
			needs: SunburstPath,
			build: func(p *Panel, recs []record.Record, _ config.DashboardConfig) {
				p.Columns = []string{"id", "parent", "label", "depth", "count"}
				p.Rows = [][]any{}
				for _, n := range analysis.Hierarchy(recs, SunburstPath) {
					p.Rows = append(p.Rows, []any{n.ID, n.Parent, n.Label, n.Depth, n.Count})
				}
				p.Meta = map[string]any{"path": SunburstPath}
			},
		},
	}
}

func countsPanel(p *Panel, counts []analysis.CategoryCount, f record.Field) {
	p.Columns = []string{string(f), "count"}
	p.Rows = make([][]any, 0, len(counts))
	for _, c := range counts {
		p.Rows = append(p.Rows, []any{c.Value, c.Count})
	}
}

func binsPanel(p *Panel, bins []analysis.Bin) {
	p.Columns = []string{"lower", "upper", "count"}
	p.Rows = make([][]any, 0, len(bins))
	for _, b := range bins {
		p.Rows = append(p.Rows, []any{b.Lower, b.Upper, b.Count})
	}
}

func boxPanel(p *Panel, groups []analysis.GroupDistribution, f record.Field) {
	p.Columns = []string{string(f), "count", "min", "q1", "median", "q3", "max", "mean", "lower_fence", "upper_fence", "outliers"}
	p.Rows = make([][]any, 0, len(groups))
	outliers := make(map[string][]float64, len(groups))
	for _, g := range groups {
		p.Rows = append(p.Rows, []any{g.Group, g.Count, g.Min, g.Q1, g.Median, g.Q3, g.Max, g.Mean, g.LowerFence, g.UpperFence, len(g.Outliers)})
		outliers[g.Group] = g.Outliers
	}
	p.Meta = map[string]any{"outliers": outliers}
}

// densityPanel emits one row per cell, y-major, including empty cells.
func densityPanel(p *Panel, d analysis.Density) {
	x, y := string(d.XField), string(d.YField)
	p.Columns = []string{x + " from", x + " to", y + " from", y + " to", "count"}
	p.Rows = [][]any{}
	for yi, row := range d.Counts {
		for xi, n := range row {
			p.Rows = append(p.Rows, []any{d.X[xi].Lower, d.X[xi].Upper, d.Y[yi].Lower, d.Y[yi].Upper, n})
		}
	}
	p.Meta = map[string]any{"x_bins": len(d.X), "y_bins": len(d.Y)}
}

func crossPanel(p *Panel, ct analysis.CrossTab) {
	p.Columns = []string{string(ct.OuterField), string(ct.InnerField), "count"}
	p.Rows = make([][]any, 0, len(ct.Cells))
	for _, c := range ct.Cells {
		p.Rows = append(p.Rows, []any{c.Outer, c.Inner, c.Count})
	}
	p.Meta = map[string]any{"outer": ct.Outer, "inner": ct.Inner}
}

func corrPanel(p *Panel, m analysis.CorrMatrix) {
	p.Columns = append([]string{"field"}, fieldNames(m.Fields)...)
	p.Rows = make([][]any, 0, len(m.Fields))
	for i, f := range m.Fields {
		row := []any{string(f)}
		for _, v := range m.Values[i] {
			row = append(row, v)
		}
		p.Rows = append(p.Rows, row)
	}
}

func framesPanel(p *Panel, frames []analysis.MonthFrame) {
	p.Columns = []string{"month", string(record.Age), string(record.BillingAmount), string(record.LengthOfStay), string(record.MedicalCondition)}
	p.Rows = [][]any{}
	months := make([]string, 0, len(frames))
	for _, fr := range frames {
		m := fr.Month.Format(monthLayout)
		months = append(months, m)
		for _, pt := range fr.Points {
			var los, cond any
			if pt.LengthOfStay != nil {
				los = *pt.LengthOfStay
			}
			if pt.Condition != "" {
				cond = pt.Condition
			}
			p.Rows = append(p.Rows, []any{m, pt.Age, pt.BillingAmount, los, cond})
		}
	}
	p.Meta = map[string]any{"frames": months}
}

// PanelIDs returns the IDs of the default panels in display order.
func PanelIDs() []string {
	specs := panelSpecs()
	ids := make([]string, len(specs))
	for i, s := range specs {
		ids[i] = s.id
	}
	return ids
}
