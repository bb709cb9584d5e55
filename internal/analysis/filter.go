// Package analysis turns a normalized record set into the dashboard's
// aggregates. Functions never modify their input and always return freshly
// allocated results.
//
// Where two groups rank equally, the one whose value appears first in the
// record order comes first.
package analysis

import (
	"healthdash/internal/record"
)

// RequiredFields must all be present for a record to enter the analysis set.
var RequiredFields = []record.Field{
	record.Age,
	record.Gender,
	record.MedicalCondition,
	record.BillingAmount,
	record.AdmissionDate,
}

// Filter returns the records carrying every required field, in their
// original order. An empty result is valid.
func Filter(records []record.Record, required []record.Field) []record.Record {
	out := make([]record.Record, 0, len(records))
	for i := range records {
		if hasAll(&records[i], required) {
			out = append(out, records[i])
		}
	}
	return out
}

func hasAll(r *record.Record, fields []record.Field) bool {
	for _, f := range fields {
		if !r.Has(f) {
			return false
		}
	}
	return true
}
