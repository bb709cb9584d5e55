package loader

import (
	"math"
	"strconv"
	"strings"
	"time"

	"healthdash/internal/record"
)

// NormalizeHeader maps a raw column header to its canonical form: BOM and
// surrounding whitespace removed, inner whitespace runs collapsed to a
// single space, upper-cased.
// "  Billing   amount " → "BILLING AMOUNT"
func NormalizeHeader(h string) record.Field {
	h = strings.TrimPrefix(h, "\ufeff")
	return record.Field(strings.ToUpper(strings.Join(strings.Fields(h), " ")))
}

// dateLayouts are tried in order. There are no day-first layouts, so
// "02/01/2006" is February 1st.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1/2/06",
	"01-02-06",
	"2006-01-02 15:04",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
}

// parseDate parses s into a calendar date (midnight UTC). Returns nil when s
// is empty or matches no known layout.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// parseInt accepts plain integers and integral floats ("45.0").
func parseInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return &v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return nil
	}
	v := int(f)
	return &v
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func cleanStr(s string) string {
	return strings.ToValidUTF8(strings.TrimSpace(s), "\uFFFD")
}

// buildRecord maps one source row onto a Record. lookup returns the raw cell
// for a canonical field ("" when the column is absent). Values that are
// present but fail to parse are counted in stats and left missing.
func buildRecord(lookup func(record.Field) string, stats *Stats) record.Record {
	var r record.Record

	r.Name = cleanStr(lookup(record.Name))
	r.Gender = cleanStr(lookup(record.Gender))
	r.MedicalCondition = cleanStr(lookup(record.MedicalCondition))
	r.AdmissionType = cleanStr(lookup(record.AdmissionType))
	r.BloodType = cleanStr(lookup(record.BloodType))
	r.Hospital = cleanStr(lookup(record.Hospital))
	r.Doctor = cleanStr(lookup(record.Doctor))
	r.InsuranceProvider = cleanStr(lookup(record.InsuranceProvider))
	r.Medication = cleanStr(lookup(record.Medication))
	r.TestResults = cleanStr(lookup(record.TestResults))

	r.Age = parseInt(lookup(record.Age))
	stats.check(record.Age, lookup, r.Age != nil)
	r.RoomNumber = parseInt(lookup(record.RoomNumber))
	stats.check(record.RoomNumber, lookup, r.RoomNumber != nil)
	r.BillingAmount = parseFloat(lookup(record.BillingAmount))
	stats.check(record.BillingAmount, lookup, r.BillingAmount != nil)
	r.AdmissionDate = parseDate(lookup(record.AdmissionDate))
	stats.check(record.AdmissionDate, lookup, r.AdmissionDate != nil)
	r.DischargeDate = parseDate(lookup(record.DischargeDate))
	stats.check(record.DischargeDate, lookup, r.DischargeDate != nil)

	r.Derive()
	return r
}
