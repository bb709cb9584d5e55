// Package record defines the patient-encounter model shared by the loader,
// the analysis functions and every sink.
package record

import (
	"time"
)

// Field is a canonical column name: trimmed, single-spaced and upper-cased,
// exactly as it appears after header normalization.
type Field string

const (
	Name              Field = "NAME"
	Age               Field = "AGE"
	Gender            Field = "GENDER"
	MedicalCondition  Field = "MEDICAL CONDITION"
	BillingAmount     Field = "BILLING AMOUNT"
	AdmissionType     Field = "ADMISSION TYPE"
	AdmissionDate     Field = "DATE OF ADMISSION"
	DischargeDate     Field = "DISCHARGE DATE"
	BloodType         Field = "BLOOD TYPE"
	Hospital          Field = "HOSPITAL"
	Doctor            Field = "DOCTOR"
	InsuranceProvider Field = "INSURANCE PROVIDER"
	RoomNumber        Field = "ROOM NUMBER"
	Medication        Field = "MEDICATION"
	TestResults       Field = "TEST RESULTS"

	// Derived fields. They never come from the source; their presence in a
	// dataset schema follows from the date columns they are computed from.
	LengthOfStay   Field = "LENGTH OF STAY"
	AdmissionMonth Field = "ADMISSION MONTH"
)

// SourceFields lists the columns the loader maps onto a Record, in the
// order of the reference dataset.
var SourceFields = []Field{
	Name, Age, Gender, BloodType, MedicalCondition, AdmissionDate, Doctor,
	Hospital, InsuranceProvider, BillingAmount, RoomNumber, AdmissionType,
	DischargeDate, Medication, TestResults,
}

// Record is one patient encounter. An empty string is a missing categorical
// value; a nil pointer is a missing numeric or date value.
type Record struct {
	Name              string
	Age               *int
	Gender            string
	MedicalCondition  string
	BillingAmount     *float64
	AdmissionType     string
	AdmissionDate     *time.Time
	DischargeDate     *time.Time
	LengthOfStay      *int
	BloodType         string
	Hospital          string
	Doctor            string
	InsuranceProvider string
	RoomNumber        *int
	Medication        string
	TestResults       string
}

// Derive fills the fields computed from other fields. It is called once by
// the loader after a row has been mapped.
func (r *Record) Derive() {
	r.LengthOfStay = StayDays(r.AdmissionDate, r.DischargeDate)
}

// StayDays returns the whole-day difference discharge − admission, floored,
// or nil when either date is missing.
func StayDays(admission, discharge *time.Time) *int {
	if admission == nil || discharge == nil {
		return nil
	}
	d := discharge.Sub(*admission)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return &days
}

// TruncateMonth returns midnight UTC on the first day of t's month.
func TruncateMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Month returns the admission month of the record.
func (r *Record) Month() (time.Time, bool) {
	if r.AdmissionDate == nil {
		return time.Time{}, false
	}
	return TruncateMonth(*r.AdmissionDate), true
}

// Category returns the string value of a categorical field.
func (r *Record) Category(f Field) (string, bool) {
	var v string
	switch f {
	case Name:
		v = r.Name
	case Gender:
		v = r.Gender
	case MedicalCondition:
		v = r.MedicalCondition
	case AdmissionType:
		v = r.AdmissionType
	case BloodType:
		v = r.BloodType
	case Hospital:
		v = r.Hospital
	case Doctor:
		v = r.Doctor
	case InsuranceProvider:
		v = r.InsuranceProvider
	case Medication:
		v = r.Medication
	case TestResults:
		v = r.TestResults
	}
	return v, v != ""
}

// Number returns the numeric value of a numeric field.
func (r *Record) Number(f Field) (float64, bool) {
	switch f {
	case Age:
		return intValue(r.Age)
	case BillingAmount:
		if r.BillingAmount == nil {
			return 0, false
		}
		return *r.BillingAmount, true
	case LengthOfStay:
		return intValue(r.LengthOfStay)
	case RoomNumber:
		return intValue(r.RoomNumber)
	}
	return 0, false
}

// Date returns the value of a date field.
func (r *Record) Date(f Field) (time.Time, bool) {
	switch f {
	case AdmissionDate:
		if r.AdmissionDate != nil {
			return *r.AdmissionDate, true
		}
	case DischargeDate:
		if r.DischargeDate != nil {
			return *r.DischargeDate, true
		}
	case AdmissionMonth:
		return r.Month()
	}
	return time.Time{}, false
}

// Has reports whether field f carries a value.
func (r *Record) Has(f Field) bool {
	return r.Value(f) != nil
}

// Value returns the display value of f: string, int, float64 or a
// YYYY-MM-DD string for dates. Missing values are nil.
func (r *Record) Value(f Field) any {
	if v, ok := r.Category(f); ok {
		return v
	}
	switch f {
	case Age, LengthOfStay, RoomNumber:
		if v, ok := r.Number(f); ok {
			return int(v)
		}
	case BillingAmount:
		if v, ok := r.Number(f); ok {
			return v
		}
	case AdmissionDate, DischargeDate, AdmissionMonth:
		if t, ok := r.Date(f); ok {
			return t.Format(DateLayout)
		}
	}
	return nil
}

// DateLayout is the canonical serialized form of a calendar date.
const DateLayout = "2006-01-02"

func intValue(p *int) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return float64(*p), true
}
