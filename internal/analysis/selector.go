package analysis

import (
	"sort"
	"strings"

	"healthdash/internal/record"
)

// TopN returns up to n records ordered by key, descending when desc is set.
// The sort is stable, so ties keep their input order, and records without a
// key value sort last. The input slice is not modified.
func TopN(records []record.Record, key record.Field, desc bool, n int) []record.Record {
	if n <= 0 {
		return []record.Record{}
	}
	out := append([]record.Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		ha, hb := a.Has(key), b.Has(key)
		if !ha || !hb {
			return ha && !hb
		}
		if desc {
			return compare(a, b, key) > 0
		}
		return compare(a, b, key) < 0
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// compare orders two records that both carry key.
func compare(a, b *record.Record, key record.Field) int {
	if x, ok := a.Number(key); ok {
		y, _ := b.Number(key)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	if x, ok := a.Date(key); ok {
		y, _ := b.Date(key)
		return x.Compare(y)
	}
	x, _ := a.Category(key)
	y, _ := b.Category(key)
	return strings.Compare(x, y)
}
