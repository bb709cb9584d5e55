package analysis

import (
	"sort"

	"healthdash/internal/record"
)

// CrossCell is the joint count of one (outer, inner) pair.
type CrossCell struct {
	Outer string `json:"outer"`
	Inner string `json:"inner"`
	Count int    `json:"count"`
}

// CrossTab holds joint counts over two categorical fields. Outer is ordered
// by total count descending, Inner lexicographically; Cells follow
// outer-then-inner order and omit zero counts.
type CrossTab struct {
	OuterField record.Field `json:"outer_field"`
	InnerField record.Field `json:"inner_field"`
	Outer      []string     `json:"outer"`
	Inner      []string     `json:"inner"`
	Cells      []CrossCell  `json:"cells"`
}

// CrossTabulate counts records by (outer, inner). Records missing either
// value are skipped.
func CrossTabulate(records []record.Record, outer, inner record.Field) CrossTab {
	type key struct{ o, i string }
	joint := make(map[key]int)
	totals := []CategoryCount{}
	outerIdx := make(map[string]int)
	innerSeen := make(map[string]bool)
	inners := []string{}

	for i := range records {
		o, ok1 := records[i].Category(outer)
		in, ok2 := records[i].Category(inner)
		if !ok1 || !ok2 {
			continue
		}
		j, seen := outerIdx[o]
		if !seen {
			j = len(totals)
			outerIdx[o] = j
			totals = append(totals, CategoryCount{Value: o})
		}
		totals[j].Count++
		if !innerSeen[in] {
			innerSeen[in] = true
			inners = append(inners, in)
		}
		joint[key{o, in}]++
	}

	sort.SliceStable(totals, func(i, j int) bool { return totals[i].Count > totals[j].Count })
	sort.Strings(inners)

	ct := CrossTab{
		OuterField: outer,
		InnerField: inner,
		Outer:      make([]string, 0, len(totals)),
		Inner:      inners,
		Cells:      []CrossCell{},
	}
	for _, t := range totals {
		ct.Outer = append(ct.Outer, t.Value)
		for _, in := range inners {
			if n := joint[key{t.Value, in}]; n > 0 {
				ct.Cells = append(ct.Cells, CrossCell{Outer: t.Value, Inner: in, Count: n})
			}
		}
	}
	return ct
}
