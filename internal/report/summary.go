package report

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// Summary holds headline metrics of a record set.
type Summary struct {
	Total   decimal.Decimal
	Count   int
	Average decimal.Decimal
}

// Summarize totals records. An empty set yields zeros.
func Summarize(records []core.Expense) Summary {
	s := Summary{Total: decimal.Zero, Average: decimal.Zero, Count: len(records)}
	for _, e := range records {
		s.Total = s.Total.Add(e.Amount)
	}
	if s.Count > 0 {
		s.Average = s.Total.Div(decimal.NewFromInt(int64(s.Count)))
	}
	return s
}

// GroupTotal is the summed amount of one group key.
type GroupTotal struct {
	Key   string
	Total decimal.Decimal
	Count int
}

// GroupTotals sums amounts by field, largest total first. Ties keep the
// order in which keys first appear in records. Records with an empty value
// form their own group with key "", so the totals always add up to the
// summary total.
func GroupTotals(records []core.Expense, field core.Field) []GroupTotal {
	return groupTotals(records, func(e core.Expense) string { return e.Value(field) }, false)
}

// GroupTotalsBy sums amounts by an arbitrary key. Records for which key
// returns "" are skipped.
func GroupTotalsBy(records []core.Expense, key func(core.Expense) string) []GroupTotal {
	return groupTotals(records, key, true)
}

func groupTotals(records []core.Expense, key func(core.Expense) string, skipEmpty bool) []GroupTotal {
	index := map[string]int{}
	var out []GroupTotal
	for _, e := range records {
		k := key(e)
		if k == "" && skipEmpty {
			continue
		}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, GroupTotal{Key: k, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
		out[i].Count++
	}
	slices.SortStableFunc(out, func(a, b GroupTotal) int { return b.Total.Cmp(a.Total) })
	return out
}

// DailyTotals sums amounts per calendar day in ascending date order.
func DailyTotals(records []core.Expense) []GroupTotal {
	out := GroupTotals(records, core.FieldDate)
	slices.SortStableFunc(out, func(a, b GroupTotal) int { return cmp.Compare(a.Key, b.Key) })
	return out
}

// CategorySubcategory keys records as "Category / Subcategory", skipping
// records without a subcategory.
func CategorySubcategory(e core.Expense) string {
	if e.Subcategory == "" {
		return ""
	}
	return e.Category + " / " + e.Subcategory
}

// SortByDateDesc returns a copy of records ordered newest first. Records on
// the same day keep their input order.
func SortByDateDesc(records []core.Expense) []core.Expense {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b core.Expense) int { return b.Date.Compare(a.Date.Time) })
	return out
}

// TopNRecent returns the n newest records. n <= 0 yields an empty slice.
func TopNRecent(records []core.Expense, n int) []core.Expense {
	if n <= 0 {
		return []core.Expense{}
	}
	sorted := SortByDateDesc(records)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Bounds returns the earliest and latest date in records.
func Bounds(records []core.Expense) (first, last core.Date, ok bool) {
	for i, e := range records {
		if i == 0 || e.Date.Before(first.Time) {
			first = e.Date
		}
		if i == 0 || e.Date.After(last.Time) {
			last = e.Date
		}
	}
	return first, last, len(records) > 0
}
