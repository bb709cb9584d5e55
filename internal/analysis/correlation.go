package analysis

import (
	"math"

	"healthdash/internal/record"
)

// CorrMatrix is a square matrix of Pearson coefficients. Values[i][j]
// correlates Fields[i] with Fields[j]; undefined coefficients are NaN.
type CorrMatrix struct {
	Fields []record.Field `json:"fields"`
	Values [][]float64    `json:"values"`
}

// At returns the coefficient for (a, b), or NaN if either field is not in
// the matrix.
func (m CorrMatrix) At(a, b record.Field) float64 {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return math.NaN()
	}
	return m.Values[i][j]
}

func (m CorrMatrix) index(f record.Field) int {
	for i, g := range m.Fields {
		if g == f {
			return i
		}
	}
	return -1
}

// Correlation computes pairwise Pearson coefficients over the given numeric
// fields. Each pair uses only the records where both values are present.
// The diagonal is exactly 1 and the lower triangle mirrors the upper one.
func Correlation(records []record.Record, fields []record.Field) CorrMatrix {
	n := len(fields)
	m := CorrMatrix{
		Fields: append([]record.Field(nil), fields...),
		Values: make([][]float64, n),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			r := 1.0
			if i != j {
				r = pearson(records, fields[i], fields[j])
			}
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

// pearson uses two passes over the complete pairs: means first, then
// centered sums. Fewer than two pairs or zero variance yields NaN.
func pearson(records []record.Record, a, b record.Field) float64 {
	var xs, ys []float64
	for i := range records {
		x, ok1 := records[i].Number(a)
		y, ok2 := records[i].Number(b)
		if ok1 && ok2 {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}

	var mx, my float64
	for k := range xs {
		mx += xs[k]
		my += ys[k]
	}
	mx /= float64(len(xs))
	my /= float64(len(ys))

	var sxy, sxx, syy float64
	for k := range xs {
		dx, dy := xs[k]-mx, ys[k]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	r := sxy / math.Sqrt(sxx*syy)
	return math.Max(-1, math.Min(1, r))
}
