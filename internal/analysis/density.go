package analysis

import (
	"healthdash/internal/record"
)

// Density is a joint binned frequency of two numeric fields.
// Counts[yi][xi] is the number of records in X[xi] × Y[yi].
type Density struct {
	XField record.Field `json:"x_field"`
	YField record.Field `json:"y_field"`
	X      []Bin        `json:"x"`
	Y      []Bin        `json:"y"`
	Counts [][]int      `json:"counts"`
}

// Density2D bins (x, y) pairs into nx × ny equal-width cells spanning the
// observed ranges, with the axis rules of Histogram. Records missing either
// value are skipped. The Count of each axis bin is its marginal total.
func Density2D(records []record.Record, x, y record.Field, nx, ny int) Density {
	var xs, ys []float64
	for i := range records {
		xv, ok1 := records[i].Number(x)
		yv, ok2 := records[i].Number(y)
		if !ok1 || !ok2 {
			continue
		}
		xs = append(xs, xv)
		ys = append(ys, yv)
	}

	d := Density{XField: x, YField: y, X: []Bin{}, Y: []Bin{}, Counts: [][]int{}}
	ax, ok := newAxis(xs, nx)
	if !ok {
		return d
	}
	ay, _ := newAxis(ys, ny)

	d.X, d.Y = ax.bins(), ay.bins()
	d.Counts = make([][]int, ay.n)
	for i := range d.Counts {
		d.Counts[i] = make([]int, ax.n)
	}
	for k := range xs {
		xi, yi := ax.index(xs[k]), ay.index(ys[k])
		d.Counts[yi][xi]++
		d.X[xi].Count++
		d.Y[yi].Count++
	}
	return d
}
