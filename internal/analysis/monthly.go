package analysis

import (
	"sort"
	"time"

	"healthdash/internal/record"
)

// MonthlyTotal is the sum of a numeric field over one admission month.
type MonthlyTotal struct {
	Month time.Time `json:"month"`
	Total float64   `json:"total"`
	Count int       `json:"count"`
}

// MonthlySum sums value per admission month, chronologically. Records
// without an admission date or a value are skipped. Within a month values
// are added in record order, so repeated calls give bit-identical totals.
func MonthlySum(records []record.Record, value record.Field) []MonthlyTotal {
	idx := make(map[time.Time]int)
	out := []MonthlyTotal{}
	for i := range records {
		m, ok1 := records[i].Month()
		v, ok2 := records[i].Number(value)
		if !ok1 || !ok2 {
			continue
		}
		j, seen := idx[m]
		if !seen {
			j = len(out)
			idx[m] = j
			out = append(out, MonthlyTotal{Month: m})
		}
		out[j].Total += v
		out[j].Count++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// ScatterPoint is one record in a month frame.
type ScatterPoint struct {
	Age           float64 `json:"age"`
	BillingAmount float64 `json:"billing_amount"`
	LengthOfStay  *int    `json:"length_of_stay"`
	Condition     string  `json:"condition"`
}

// MonthFrame holds the records admitted in one month.
type MonthFrame struct {
	Month  time.Time      `json:"month"`
	Points []ScatterPoint `json:"points"`
}

// MonthlyFrames groups age/billing points by admission month for an
// animated scatter: months chronological, points in record order.
func MonthlyFrames(records []record.Record) []MonthFrame {
	idx := make(map[time.Time]int)
	out := []MonthFrame{}
	for i := range records {
		r := &records[i]
		m, ok := r.Month()
		age, ok1 := r.Number(record.Age)
		bill, ok2 := r.Number(record.BillingAmount)
		if !ok || !ok1 || !ok2 {
			continue
		}
		j, seen := idx[m]
		if !seen {
			j = len(out)
			idx[m] = j
			out = append(out, MonthFrame{Month: m})
		}
		p := ScatterPoint{Age: age, BillingAmount: bill, Condition: r.MedicalCondition}
		if r.LengthOfStay != nil {
			los := *r.LengthOfStay
			p.LengthOfStay = &los
		}
		out[j].Points = append(out[j].Points, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}
