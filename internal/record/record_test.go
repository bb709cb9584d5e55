package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func intPtr(v int) *int { return &v }

func f64Ptr(v float64) *float64 { return &v }

func TestStayDays(t *testing.T) {
	tests := []struct {
		name      string
		admission *time.Time
		discharge *time.Time
		want      *int
	}{
		{"both dates", date(2024, 1, 15), date(2024, 1, 28), intPtr(13)},
		{"same day", date(2024, 3, 1), date(2024, 3, 1), intPtr(0)},
		{"across month end", date(2024, 1, 30), date(2024, 2, 2), intPtr(3)},
		{"leap day", date(2024, 2, 28), date(2024, 3, 1), intPtr(2)},
		{"discharge before admission", date(2024, 1, 10), date(2024, 1, 7), intPtr(-3)},
		{"missing admission", nil, date(2024, 1, 7), nil},
		{"missing discharge", date(2024, 1, 7), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StayDays(tt.admission, tt.discharge))
		})
	}
}

func TestStayDaysFloorsPartialDays(t *testing.T) {
	a := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	got := StayDays(&a, &d)
	require.NotNil(t, got)
	assert.Equal(t, -1, *got)
}

func TestTruncateMonth(t *testing.T) {
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, TruncateMonth(*date(2024, 1, 15)))
	assert.Equal(t, want, TruncateMonth(*date(2024, 1, 28)))
	assert.Equal(t, want, TruncateMonth(time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)))
}

func TestRecordAccessors(t *testing.T) {
	r := Record{
		Name:          "Bobby Jackson",
		Age:           intPtr(30),
		Gender:        "Male",
		BillingAmount: f64Ptr(18856.28),
		AdmissionDate: date(2024, 1, 31),
		DischargeDate: date(2024, 2, 2),
	}
	r.Derive()

	v, ok := r.Category(Gender)
	assert.True(t, ok)
	assert.Equal(t, "Male", v)

	_, ok = r.Category(BloodType)
	assert.False(t, ok)

	n, ok := r.Number(LengthOfStay)
	assert.True(t, ok)
	assert.Equal(t, 2.0, n)

	m, ok := r.Month()
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), m)

	assert.Equal(t, 30, r.Value(Age))
	assert.Equal(t, 18856.28, r.Value(BillingAmount))
	assert.Equal(t, "2024-01-31", r.Value(AdmissionDate))
	assert.Equal(t, "2024-01-01", r.Value(AdmissionMonth))
	assert.Nil(t, r.Value(RoomNumber))
	assert.True(t, r.Has(Name))
	assert.False(t, r.Has(Hospital))
}

func TestRowConversion(t *testing.T) {
	r := Record{
		Name:             "Leslie Terry",
		Age:              intPtr(62),
		Gender:           "Male",
		MedicalCondition: "Obesity",
		BillingAmount:    f64Ptr(33643.33),
		AdmissionType:    "Emergency",
		AdmissionDate:    date(2019, 8, 20),
		DischargeDate:    date(2019, 8, 26),
		BloodType:        "A+",
		Hospital:         "Burke, Griffin and Cooper",
		RoomNumber:       intPtr(265),
	}
	r.Derive()

	row := ToRow(&r)
	require.NotNil(t, row.AdmissionDate)
	assert.Equal(t, "2019-08-20", *row.AdmissionDate)
	assert.Nil(t, row.Doctor)
	require.NotNil(t, row.LengthOfStay)
	assert.EqualValues(t, 6, *row.LengthOfStay)

	assert.Equal(t, r, FromRow(&row))
}

func TestFromRowBadDate(t *testing.T) {
	bad := "not-a-date"
	adm := "2020-01-01"
	r := FromRow(&Row{AdmissionDate: &adm, DischargeDate: &bad})
	assert.NotNil(t, r.AdmissionDate)
	assert.Nil(t, r.DischargeDate)
	assert.Nil(t, r.LengthOfStay)
}
