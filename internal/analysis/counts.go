package analysis

import (
	"sort"

	"healthdash/internal/record"
)

// CategoryCount is the frequency of one categorical value.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts returns the frequency of each distinct value of field, by
// descending count. Missing values are not counted. topN <= 0 keeps all.
func ValueCounts(records []record.Record, field record.Field, topN int) []CategoryCount {
	counts := tally(records, field)
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if topN > 0 && len(counts) > topN {
		counts = counts[:topN]
	}
	return counts
}

// tally counts values of field in first-encountered order.
func tally(records []record.Record, field record.Field) []CategoryCount {
	idx := make(map[string]int)
	counts := []CategoryCount{}
	for i := range records {
		v, ok := records[i].Category(field)
		if !ok {
			continue
		}
		j, seen := idx[v]
		if !seen {
			j = len(counts)
			idx[v] = j
			counts = append(counts, CategoryCount{Value: v})
		}
		counts[j].Count++
	}
	return counts
}
