package report

import (
	"finanzas/internal/core"
)

// Digest condenses a filtered view into the aggregates handed to the
// language-model assistant. It never carries individual records.
type Digest struct {
	Summary     Summary
	Categories  []GroupTotal
	People      []GroupTotal
	Types       []GroupTotal
	TopCategory string
	From, To    core.Date
	Person      string
}

// NewDigest aggregates records, which should already be filtered by c.
func NewDigest(records []core.Expense, c Criteria) Digest {
	d := Digest{
		Summary:    Summarize(records),
		Categories: GroupTotals(records, core.FieldCategory),
		People:     GroupTotals(records, core.FieldPerson),
		Types:      GroupTotals(records, core.FieldExpenseType),
		Person:     c.Person,
	}
	if len(d.Categories) > 0 {
		d.TopCategory = d.Categories[0].Key
	}
	if c.DateRangeActive() {
		d.From, d.To = c.Dates[0], c.Dates[1]
	} else {
		d.From, d.To, _ = Bounds(records)
	}
	return d
}

// Empty reports whether the digest covers no records.
func (d Digest) Empty() bool { return d.Summary.Count == 0 }
