// Package report derives filtered views and statistics from expense
// records. Every function is pure: inputs are never modified and results
// depend only on the arguments.
package report

import (
	"slices"
	"strings"

	"finanzas/internal/core"
)

// Criteria narrows a record set. The zero value selects everything except
// for Categories, where an empty list matches nothing; use
// []string{core.AllCategories} to select all.
type Criteria struct {
	// Person is a payer name, or core.AllPeople / "" for everyone.
	Person string
	// Dates applies only when it holds exactly two endpoints, inclusive.
	Dates []core.Date
	// Categories containing core.AllCategories matches every category.
	Categories []string
}

// AllCriteria selects every record.
func AllCriteria() Criteria {
	return Criteria{Person: core.AllPeople, Categories: []string{core.AllCategories}}
}

// Filter returns the records matching every criterion, in input order.
func Filter(records []core.Expense, c Criteria) []core.Expense {
	out := make([]core.Expense, 0, len(records))
	for _, e := range records {
		if c.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (c Criteria) matches(e core.Expense) bool {
	return c.matchesPerson(e) && c.matchesDates(e) && c.matchesCategory(e)
}

func (c Criteria) matchesPerson(e core.Expense) bool {
	p := strings.TrimSpace(c.Person)
	return p == "" || p == core.AllPeople || e.Person == p
}

func (c Criteria) matchesDates(e core.Expense) bool {
	if !c.DateRangeActive() {
		return true
	}
	start, end := c.Dates[0], c.Dates[1]
	return !e.Date.Before(start.Time) && !e.Date.After(end.Time)
}

func (c Criteria) matchesCategory(e core.Expense) bool {
	if slices.Contains(c.Categories, core.AllCategories) {
		return true
	}
	return slices.Contains(c.Categories, e.Category)
}

// DateRangeActive reports whether the date criterion applies.
func (c Criteria) DateRangeActive() bool {
	return len(c.Dates) == 2 && !c.Dates[0].IsZero() && !c.Dates[1].IsZero()
}
