package record

import (
	"time"
)

// Row is the columnar projection of a Record used by the Parquet snapshot
// and the Postgres sink.
//
//   - Optional (*type) fields use the Parquet null bitmap, so a missing age
//     or billing amount round-trips as missing rather than zero.
//   - Dates are ISO strings; low-cardinality categoricals (gender, blood
//     type, admission type) dictionary-encode to near-zero.
//   - Length of stay is stored for query convenience but recomputed from
//     the dates on read so the derivation stays the single source of truth.
type Row struct {
	Name             *string  `parquet:"name,optional"`
	Age              *int64   `parquet:"age,optional"`
	Gender           *string  `parquet:"gender,optional"`
	MedicalCondition *string  `parquet:"medical_condition,optional"`
	BillingAmount    *float64 `parquet:"billing_amount,optional"`
	AdmissionType    *string  `parquet:"admission_type,optional"`
	AdmissionDate    *string  `parquet:"admission_date,optional"`
	DischargeDate    *string  `parquet:"discharge_date,optional"`
	LengthOfStay     *int64   `parquet:"length_of_stay,optional"`
	BloodType        *string  `parquet:"blood_type,optional"`
	Hospital         *string  `parquet:"hospital,optional"`

	Doctor            *string `parquet:"doctor,optional"`
	InsuranceProvider *string `parquet:"insurance_provider,optional"`
	RoomNumber        *int64  `parquet:"room_number,optional"`
	Medication        *string `parquet:"medication,optional"`
	TestResults       *string `parquet:"test_results,optional"`
}

// ToRow converts r to its columnar projection.
func ToRow(r *Record) Row {
	return Row{
		Name:              optStr(r.Name),
		Age:               optInt(r.Age),
		Gender:            optStr(r.Gender),
		MedicalCondition:  optStr(r.MedicalCondition),
		BillingAmount:     r.BillingAmount,
		AdmissionType:     optStr(r.AdmissionType),
		AdmissionDate:     optDate(r.AdmissionDate),
		DischargeDate:     optDate(r.DischargeDate),
		LengthOfStay:      optInt(r.LengthOfStay),
		BloodType:         optStr(r.BloodType),
		Hospital:          optStr(r.Hospital),
		Doctor:            optStr(r.Doctor),
		InsuranceProvider: optStr(r.InsuranceProvider),
		RoomNumber:        optInt(r.RoomNumber),
		Medication:        optStr(r.Medication),
		TestResults:       optStr(r.TestResults),
	}
}

// FromRow converts a columnar row back into a Record. Unparseable dates
// become missing, matching the loader's policy for text sources.
func FromRow(row *Row) Record {
	r := Record{
		Name:              derefStr(row.Name),
		Age:               derefInt(row.Age),
		Gender:            derefStr(row.Gender),
		MedicalCondition:  derefStr(row.MedicalCondition),
		BillingAmount:     row.BillingAmount,
		AdmissionType:     derefStr(row.AdmissionType),
		AdmissionDate:     parseDate(row.AdmissionDate),
		DischargeDate:     parseDate(row.DischargeDate),
		BloodType:         derefStr(row.BloodType),
		Hospital:          derefStr(row.Hospital),
		Doctor:            derefStr(row.Doctor),
		InsuranceProvider: derefStr(row.InsuranceProvider),
		RoomNumber:        derefInt(row.RoomNumber),
		Medication:        derefStr(row.Medication),
		TestResults:       derefStr(row.TestResults),
	}
	r.Derive()
	return r
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optInt(p *int) *int64 {
	if p == nil {
		return nil
	}
	v := int64(*p)
	return &v
}

func optDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(p *int64) *int {
	if p == nil {
		return nil
	}
	v := int(*p)
	return &v
}

func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(DateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}
