package analysis

import (
	"math"
	"sort"

	"healthdash/internal/record"
)

// GroupDistribution summarizes a numeric field within one group, in the
// shape a box plot consumes. Quartiles use linear interpolation between
// closest ranks; fences are the most extreme values within 1.5·IQR of the
// quartiles and Outliers are the values beyond them, ascending.
type GroupDistribution struct {
	Group      string    `json:"group"`
	Count      int       `json:"count"`
	Min        float64   `json:"min"`
	Q1         float64   `json:"q1"`
	Median     float64   `json:"median"`
	Q3         float64   `json:"q3"`
	Max        float64   `json:"max"`
	Mean       float64   `json:"mean"`
	LowerFence float64   `json:"lower_fence"`
	UpperFence float64   `json:"upper_fence"`
	Outliers   []float64 `json:"outliers"`
}

// NumericByGroup partitions value by group. Groups appear in first-encountered
// order; records missing either field are skipped.
func NumericByGroup(records []record.Record, group, value record.Field) []GroupDistribution {
	idx := make(map[string]int)
	var names []string
	var values [][]float64

	for i := range records {
		g, ok1 := records[i].Category(group)
		v, ok2 := records[i].Number(value)
		if !ok1 || !ok2 {
			continue
		}
		j, seen := idx[g]
		if !seen {
			j = len(names)
			idx[g] = j
			names = append(names, g)
			values = append(values, nil)
		}
		values[j] = append(values[j], v)
	}

	out := make([]GroupDistribution, 0, len(names))
	for j, name := range names {
		out = append(out, summarize(name, values[j]))
	}
	return out
}

func summarize(name string, vals []float64) GroupDistribution {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	d := GroupDistribution{
		Group:    name,
		Count:    len(sorted),
		Min:      sorted[0],
		Max:      sorted[len(sorted)-1],
		Q1:       quantile(sorted, 0.25),
		Median:   quantile(sorted, 0.5),
		Q3:       quantile(sorted, 0.75),
		Mean:     sum / float64(len(sorted)),
		Outliers: []float64{},
	}

	iqr := d.Q3 - d.Q1
	lo, hi := d.Q1-1.5*iqr, d.Q3+1.5*iqr
	d.LowerFence, d.UpperFence = d.Max, d.Min
	for _, v := range sorted {
		if v < lo || v > hi {
			d.Outliers = append(d.Outliers, v)
			continue
		}
		d.LowerFence = math.Min(d.LowerFence, v)
		d.UpperFence = math.Max(d.UpperFence, v)
	}
	return d
}

// quantile expects sorted, non-empty input.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Bin is one half-open interval [Lower, Upper) of a histogram axis; the
// last bin of an axis is closed.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram counts field over bins equal-width intervals spanning the
// observed range. A degenerate range (one distinct value) yields a single
// bin [v, v+1). No values yields no bins.
func Histogram(records []record.Record, field record.Field, bins int) []Bin {
	vals := numbers(records, field)
	ax, ok := newAxis(vals, bins)
	if !ok {
		return []Bin{}
	}
	out := ax.bins()
	for _, v := range vals {
		out[ax.index(v)].Count++
	}
	return out
}

// numbers returns the present values of field in record order.
func numbers(records []record.Record, field record.Field) []float64 {
	vals := make([]float64, 0, len(records))
	for i := range records {
		if v, ok := records[i].Number(field); ok {
			vals = append(vals, v)
		}
	}
	return vals
}

// axis is an equal-width binning of [lo, hi].
type axis struct {
	lo, hi, width float64
	n             int
}

func newAxis(vals []float64, n int) (axis, bool) {
	if len(vals) == 0 {
		return axis{}, false
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if n < 1 {
		n = 1
	}
	if hi == lo {
		return axis{lo: lo, hi: lo + 1, width: 1, n: 1}, true
	}
	return axis{lo: lo, hi: hi, width: (hi - lo) / float64(n), n: n}, true
}

func (a axis) index(v float64) int {
	i := int((v - a.lo) / a.width)
	if i >= a.n {
		i = a.n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (a axis) bins() []Bin {
	out := make([]Bin, a.n)
	for i := range out {
		out[i].Lower = a.lo + float64(i)*a.width
		out[i].Upper = a.lo + float64(i+1)*a.width
	}
	out[a.n-1].Upper = a.hi
	return out
}
