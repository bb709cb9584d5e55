package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthdash/internal/record"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func datep(s string) *time.Time {
	t, err := time.Parse(record.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

// enc builds a fully populated encounter; callers clear fields as needed.
func enc(name string, age int, gender, cond string, bill float64, admitted, discharged string) record.Record {
	r := record.Record{
		Name:             name,
		Age:              intp(age),
		Gender:           gender,
		MedicalCondition: cond,
		BillingAmount:    floatp(bill),
		AdmissionType:    "Elective",
		AdmissionDate:    datep(admitted),
		DischargeDate:    datep(discharged),
		BloodType:        "O+",
		Hospital:         "General",
	}
	r.Derive()
	return r
}

func sample() []record.Record {
	return []record.Record{
		enc("a", 30, "Male", "Cancer", 100, "2024-01-15", "2024-01-20"),
		enc("b", 45, "Female", "Obesity", 500, "2024-01-28", "2024-02-02"),
		enc("c", 60, "Female", "Cancer", 500, "2024-02-03", "2024-02-04"),
		enc("d", 75, "Male", "Asthma", 250, "2024-03-10", "2024-03-30"),
	}
}

func TestFilter(t *testing.T) {
	recs := sample()
	recs[1].Age = nil
	recs[3].Gender = ""

	got := Filter(recs, RequiredFields)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "c", got[1].Name)

	assert.Len(t, Filter(recs, nil), 4, "no required fields keeps everything")
	assert.Empty(t, Filter(nil, RequiredFields))

	// idempotent
	assert.Equal(t, got, Filter(got, RequiredFields))
}

func TestValueCounts(t *testing.T) {
	recs := sample()
	counts := ValueCounts(recs, record.MedicalCondition, 0)
	assert.Equal(t, []CategoryCount{
		{Value: "Cancer", Count: 2},
		{Value: "Obesity", Count: 1},
		{Value: "Asthma", Count: 1},
	}, counts)

	total := 0
	for _, c := range ValueCounts(recs, record.Gender, 0) {
		total += c.Count
	}
	assert.Equal(t, len(recs), total)

	top := ValueCounts(recs, record.MedicalCondition, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "Obesity", top[1].Value, "ties keep first-encountered order")

	assert.Empty(t, ValueCounts(nil, record.Gender, 5))
}

func TestCrossTabulate(t *testing.T) {
	recs := sample()
	recs[3].BloodType = "A-"

	ct := CrossTabulate(recs, record.BloodType, record.Gender)
	assert.Equal(t, []string{"O+", "A-"}, ct.Outer)
	assert.Equal(t, []string{"Female", "Male"}, ct.Inner)
	assert.Equal(t, []CrossCell{
		{Outer: "O+", Inner: "Female", Count: 2},
		{Outer: "O+", Inner: "Male", Count: 1},
		{Outer: "A-", Inner: "Male", Count: 1},
	}, ct.Cells)
}

func TestNumericByGroup(t *testing.T) {
	var recs []record.Record
	for i, v := range []float64{1, 2, 3, 4, 5, 6, 7, 8, 100} {
		r := enc("x", 40, "Male", "Cancer", v, "2024-01-01", "2024-01-02")
		if i%2 == 1 {
			r.AdmissionType = "Urgent"
		}
		recs = append(recs, r)
	}
	// Urgent: 2,4,6,8  Elective: 1,3,5,7,100
	groups := NumericByGroup(recs, record.AdmissionType, record.BillingAmount)
	require.Len(t, groups, 2)

	el := groups[0]
	assert.Equal(t, "Elective", el.Group)
	assert.Equal(t, 5, el.Count)
	assert.Equal(t, 1.0, el.Min)
	assert.Equal(t, 3.0, el.Q1)
	assert.Equal(t, 5.0, el.Median)
	assert.Equal(t, 7.0, el.Q3)
	assert.Equal(t, 100.0, el.Max)
	assert.InDelta(t, 23.2, el.Mean, 1e-9)
	assert.Equal(t, 1.0, el.LowerFence)
	assert.Equal(t, 7.0, el.UpperFence)
	assert.Equal(t, []float64{100}, el.Outliers)

	ur := groups[1]
	assert.Equal(t, "Urgent", ur.Group)
	assert.Equal(t, 3.5, ur.Q1)
	assert.Equal(t, 5.0, ur.Median)
	assert.Equal(t, 6.5, ur.Q3)
	assert.Empty(t, ur.Outliers)
}

func TestHistogram(t *testing.T) {
	recs := sample()
	bins := Histogram(recs, record.Age, 3)
	require.Len(t, bins, 3)
	assert.Equal(t, 30.0, bins[0].Lower)
	assert.Equal(t, 75.0, bins[2].Upper)
	assert.Equal(t, []int{1, 1, 2}, []int{bins[0].Count, bins[1].Count, bins[2].Count})

	sum := 0
	for _, b := range bins {
		sum += b.Count
	}
	assert.Equal(t, len(recs), sum)

	one := Histogram(recs[:1], record.Age, 10)
	require.Len(t, one, 1)
	assert.Equal(t, Bin{Lower: 30, Upper: 31, Count: 1}, one[0])

	assert.Empty(t, Histogram(nil, record.Age, 10))
}

func TestDensity2D(t *testing.T) {
	recs := sample()
	recs = append(recs, record.Record{Age: intp(50)}) // no stay, skipped

	d := Density2D(recs, record.Age, record.LengthOfStay, 3, 2)
	require.Len(t, d.X, 3)
	require.Len(t, d.Y, 2)
	require.Len(t, d.Counts, 2)

	total := 0
	for _, row := range d.Counts {
		require.Len(t, row, 3)
		for _, c := range row {
			total += c
		}
	}
	assert.Equal(t, 4, total)
	// stays 5,5,1,20 over [1,20]: the 75-year-old with 20 days is top-right
	assert.Equal(t, 1, d.Counts[1][2])
	assert.Equal(t, 3, d.Y[0].Count)

	empty := Density2D(nil, record.Age, record.LengthOfStay, 3, 2)
	assert.Empty(t, empty.Counts)
}

func TestMonthlySum(t *testing.T) {
	recs := sample()
	got := MonthlySum(recs, record.BillingAmount)
	require.Len(t, got, 3)

	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, jan, got[0].Month)
	assert.Equal(t, 600.0, got[0].Total, "2024-01-15 and 2024-01-28 share a month")
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, 500.0, got[1].Total)
	assert.Equal(t, 250.0, got[2].Total)

	reversed := []record.Record{recs[3], recs[2], recs[1], recs[0]}
	again := MonthlySum(reversed, record.BillingAmount)
	for i := range got {
		assert.Equal(t, got[i].Month, again[i].Month)
	}
}

func TestMonthlyFrames(t *testing.T) {
	recs := sample()
	recs[0].DischargeDate = nil
	recs[0].Derive()

	frames := MonthlyFrames(recs)
	require.Len(t, frames, 3)
	require.Len(t, frames[0].Points, 2)
	assert.Nil(t, frames[0].Points[0].LengthOfStay)
	assert.Equal(t, 45.0, frames[0].Points[1].Age)
	assert.Equal(t, 5, *frames[0].Points[1].LengthOfStay)
	assert.Equal(t, "Asthma", frames[2].Points[0].Condition)
}

func TestCorrelation(t *testing.T) {
	recs := sample()
	fields := []record.Field{record.Age, record.BillingAmount, record.LengthOfStay}
	m := Correlation(recs, fields)

	require.Len(t, m.Values, 3)
	for i := range fields {
		assert.Equal(t, 1.0, m.Values[i][i])
		for j := range fields {
			assert.Equal(t, m.Values[i][j], m.Values[j][i])
			assert.LessOrEqual(t, math.Abs(m.Values[i][j]), 1.0)
		}
	}
}

func TestCorrelationPerfectAndUndefined(t *testing.T) {
	var recs []record.Record
	for i := 1; i <= 5; i++ {
		recs = append(recs, enc("x", 20+i, "Male", "Cancer", float64(100*i), "2024-01-01", "2024-01-03"))
	}
	m := Correlation(recs, []record.Field{record.Age, record.BillingAmount, record.LengthOfStay})

	assert.InDelta(t, 1.0, m.At(record.Age, record.BillingAmount), 1e-12)
	// every stay is 2 days: no variance
	assert.True(t, math.IsNaN(m.At(record.Age, record.LengthOfStay)))
	assert.Equal(t, 1.0, m.At(record.LengthOfStay, record.LengthOfStay), "unit diagonal even without variance")
	assert.True(t, math.IsNaN(m.At(record.Age, record.RoomNumber)))

	single := Correlation(recs[:1], []record.Field{record.Age, record.BillingAmount})
	assert.Equal(t, 1.0, single.Values[0][0])
	assert.True(t, math.IsNaN(single.Values[0][1]), "one pair is not enough")

	empty := Correlation(nil, []record.Field{record.Age})
	assert.Equal(t, [][]float64{{1}}, empty.Values)
}

func TestCorrelationPairwiseComplete(t *testing.T) {
	recs := []record.Record{
		{Age: intp(1), BillingAmount: floatp(2)},
		{Age: intp(2), BillingAmount: floatp(4)},
		{Age: intp(3), BillingAmount: floatp(6)},
		{Age: intp(4)},
		{BillingAmount: floatp(-50)},
	}
	m := Correlation(recs, []record.Field{record.Age, record.BillingAmount})
	assert.InDelta(t, 1.0, m.Values[0][1], 1e-12)
}

func TestHierarchy(t *testing.T) {
	recs := sample()
	recs[1].MedicalCondition = ""

	nodes := Hierarchy(recs, []record.Field{record.AdmissionType, record.MedicalCondition, record.Gender})
	ids := make([]string, len(nodes))
	byID := make(map[string]HierarchyNode)
	for i, n := range nodes {
		ids[i] = n.ID
		byID[n.ID] = n
	}
	assert.Equal(t, []string{
		"Elective",
		"Elective/Cancer",
		"Elective/Cancer/Male",
		"Elective/Cancer/Female",
		"Elective/Asthma",
		"Elective/Asthma/Male",
	}, ids)

	assert.Equal(t, 4, byID["Elective"].Count)
	assert.Equal(t, 2, byID["Elective/Cancer"].Count)
	assert.Equal(t, "Elective/Cancer", byID["Elective/Cancer/Female"].Parent)
	assert.Equal(t, 3, byID["Elective/Cancer/Female"].Depth)
	assert.Equal(t, "", byID["Elective"].Parent)
}

func TestHierarchyKeepsRawLabels(t *testing.T) {
	recs := sample()[:1]
	recs[0].MedicalCondition = "Cancer/Remission"

	nodes := Hierarchy(recs, []record.Field{record.AdmissionType, record.MedicalCondition, record.Gender})
	require.Len(t, nodes, 3)
	assert.Equal(t, "Cancer/Remission", nodes[1].Label)
	assert.Equal(t, "Elective/Cancer∕Remission", nodes[1].ID)
	assert.Equal(t, "Elective/Cancer∕Remission/Male", nodes[2].ID)
	assert.Equal(t, nodes[1].ID, nodes[2].Parent)
}

// aggregates runs every aggregate over recs once.
func aggregates(recs []record.Record) []any {
	corrFields := []record.Field{record.Age, record.BillingAmount, record.LengthOfStay}
	return []any{
		ValueCounts(recs, record.MedicalCondition, 0),
		CrossTabulate(recs, record.BloodType, record.Gender),
		NumericByGroup(recs, record.AdmissionType, record.BillingAmount),
		Histogram(recs, record.Age, 5),
		Density2D(recs, record.Age, record.LengthOfStay, 4, 3),
		MonthlySum(recs, record.BillingAmount),
		MonthlyFrames(recs),
		Hierarchy(recs, []record.Field{record.AdmissionType, record.MedicalCondition, record.Gender}),
		TopN(recs, record.BillingAmount, true, 3),
		Correlation(recs, corrFields),
		Correlation(recs[:1], corrFields),
	}
}

// sameBits compares two correlation matrices bit for bit, so NaN cells
// compare equal to NaN cells.
func sameBits(t *testing.T, want, got CorrMatrix) {
	t.Helper()
	require.Equal(t, want.Fields, got.Fields)
	require.Len(t, got.Values, len(want.Values))
	for i := range want.Values {
		require.Len(t, got.Values[i], len(want.Values[i]))
		for j := range want.Values[i] {
			assert.Equal(t, math.Float64bits(want.Values[i][j]), math.Float64bits(got.Values[i][j]),
				"cell %d,%d", i, j)
		}
	}
}

func TestAggregatesRepeatable(t *testing.T) {
	recs := sample()
	recs = append(recs, enc("e", 30, "Male", "Cancer", 100, "2024-01-15", "2024-01-20"))
	recs[1].AdmissionType = "Urgent"
	recs[2].BloodType = "A-"
	recs[3].DischargeDate = nil
	recs[3].Derive()

	// values captures every field by value, so writes through the shared
	// pointers show up as well as reordering.
	fields := append([]record.Field{record.LengthOfStay}, record.SourceFields...)
	values := func(rs []record.Record) [][]any {
		out := make([][]any, len(rs))
		for i := range rs {
			for _, f := range fields {
				out[i] = append(out[i], rs[i].Value(f))
			}
		}
		return out
	}
	want := values(recs)

	first := aggregates(recs)
	second := aggregates(recs)
	require.Len(t, second, len(first))
	for i := range first {
		if m, ok := first[i].(CorrMatrix); ok {
			sameBits(t, m, second[i].(CorrMatrix))
			continue
		}
		assert.Equal(t, first[i], second[i], "aggregate %d", i)
	}
	assert.True(t, math.IsNaN(first[len(first)-1].(CorrMatrix).Values[0][1]))

	assert.Equal(t, want, values(recs), "input order and values untouched")
}

func TestTopN(t *testing.T) {
	recs := []record.Record{
		{Name: "first", BillingAmount: floatp(100)},
		{Name: "second", BillingAmount: floatp(500)},
		{Name: "none"},
		{Name: "third", BillingAmount: floatp(500)},
	}

	got := TopN(recs, record.BillingAmount, true, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Name)
	assert.Equal(t, "third", got[1].Name)

	all := TopN(recs, record.BillingAmount, false, 10)
	names := []string{}
	for _, r := range all {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"first", "second", "third", "none"}, names)

	desc := TopN(recs, record.BillingAmount, true, 10)
	assert.Equal(t, "none", desc[3].Name, "missing keys sort last either way")

	assert.Equal(t, "first", recs[0].Name, "input untouched")
	assert.Empty(t, TopN(recs, record.BillingAmount, true, 0))
	assert.Empty(t, TopN(recs, record.BillingAmount, true, -1))
}

func TestTopNByCategoryAndDate(t *testing.T) {
	recs := sample()
	byName := TopN(recs, record.Name, true, 1)
	assert.Equal(t, "d", byName[0].Name)

	byDate := TopN(recs, record.AdmissionDate, false, 2)
	assert.Equal(t, "a", byDate[0].Name)
	assert.Equal(t, "b", byDate[1].Name)
}
