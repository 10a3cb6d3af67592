package http

import (
	"net/url"
	"slices"
	"strings"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/report"
)

// Filter query parameters.
const (
	paramPerson   = "person"
	paramFrom     = "from"
	paramTo       = "to"
	paramCategory = "category"
)

// FilterParams is the dashboard filter as submitted. It is echoed back into
// forms and chart links so no state lives on the server.
type FilterParams struct {
	Person     string
	From, To   string
	Categories []string
}

// ParseFilterParams reads person, from, to and repeated category values.
// Missing person or categories select everything.
func ParseFilterParams(q url.Values) FilterParams {
	p := FilterParams{
		Person: sanitizeInput(q.Get(paramPerson)),
		From:   strings.TrimSpace(q.Get(paramFrom)),
		To:     strings.TrimSpace(q.Get(paramTo)),
	}
	if p.Person == "" {
		p.Person = core.AllPeople
	}
	for _, c := range q[paramCategory] {
		if c = sanitizeInput(c); c != "" && !slices.Contains(p.Categories, c) {
			p.Categories = append(p.Categories, c)
		}
	}
	if len(p.Categories) == 0 {
		p.Categories = []string{core.AllCategories}
	}
	return p
}

// Criteria converts the parameters for the report engine. The date range
// applies only when both ends parse.
func (p FilterParams) Criteria() report.Criteria {
	c := report.Criteria{Person: p.Person, Categories: slices.Clone(p.Categories)}
	from, errFrom := core.ParseDate(p.From)
	to, errTo := core.ParseDate(p.To)
	if p.From != "" && p.To != "" && errFrom == nil && errTo == nil {
		c.Dates = []core.Date{from, to}
	}
	return c
}

// DateRangeActive reports whether the date filter applies.
func (p FilterParams) DateRangeActive() bool { return p.Criteria().DateRangeActive() }

// AllCategories reports whether every category is selected.
func (p FilterParams) AllCategories() bool { return slices.Contains(p.Categories, core.AllCategories) }

// HasCategory reports whether c is explicitly selected.
func (p FilterParams) HasCategory(c string) bool { return slices.Contains(p.Categories, c) }

// Values encodes the parameters back into query values.
func (p FilterParams) Values() url.Values {
	v := url.Values{}
	if p.Person != "" && p.Person != core.AllPeople {
		v.Set(paramPerson, p.Person)
	}
	if p.From != "" {
		v.Set(paramFrom, p.From)
	}
	if p.To != "" {
		v.Set(paramTo, p.To)
	}
	if !p.AllCategories() {
		for _, c := range p.Categories {
			v.Add(paramCategory, c)
		}
	}
	return v
}

// Query is the encoded query string, without the leading "?".
func (p FilterParams) Query() string { return p.Values().Encode() }

// Expense form fields.
const (
	formDate        = "date"
	formAmount      = "amount"
	formDescription = "description"
	formPerson      = "person"
	formCategory    = "category"
	formSubcategory = "subcategory"
	formExpenseType = "expense_type"
	formNotes       = "notes"
)

// ExpenseForm holds submitted expense values verbatim so a re-rendered form
// keeps everything the user typed.
type ExpenseForm struct {
	Date        string
	Amount      string
	Description string
	Person      string
	Category    string
	Subcategory string
	ExpenseType string
	Notes       string
}

// ParseExpenseForm reads and sanitizes the create form.
func ParseExpenseForm(form url.Values) ExpenseForm {
	return ExpenseForm{
		Date:        strings.TrimSpace(form.Get(formDate)),
		Amount:      strings.TrimSpace(form.Get(formAmount)),
		Description: sanitizeInput(form.Get(formDescription)),
		Person:      sanitizeInput(form.Get(formPerson)),
		Category:    sanitizeInput(form.Get(formCategory)),
		Subcategory: sanitizeInput(form.Get(formSubcategory)),
		ExpenseType: sanitizeInput(form.Get(formExpenseType)),
		Notes:       sanitizeInput(form.Get(formNotes)),
	}
}

// Draft converts the form for the ledger. A blank date means today; an
// unparseable amount or date is an input error on that field.
func (f ExpenseForm) Draft() (ledger.Draft, error) {
	d := ledger.Draft{
		Description: f.Description,
		Person:      f.Person,
		Category:    f.Category,
		Subcategory: f.Subcategory,
		ExpenseType: f.ExpenseType,
		Notes:       f.Notes,
	}
	amount, err := core.ParseAmount(f.Amount)
	if err != nil {
		return d, core.Invalid(core.FieldAmount, err)
	}
	d.Amount = amount
	if f.Date != "" {
		date, err := core.ParseDate(f.Date)
		if err != nil {
			return d, core.Invalid(core.FieldDate, err)
		}
		d.Date = date
	}
	return d, nil
}

// editableFields maps edit-form names to ledger fields.
var editableFields = map[string]core.Field{
	formDate:        core.FieldDate,
	formAmount:      core.FieldAmount,
	formDescription: core.FieldDescription,
	formPerson:      core.FieldPerson,
	formCategory:    core.FieldCategory,
	formSubcategory: core.FieldSubcategory,
	formExpenseType: core.FieldExpenseType,
	formNotes:       core.FieldNotes,
}

// ParseEditFields returns only the fields present in the form. Absent
// fields stay untouched in the store.
func ParseEditFields(form url.Values) map[core.Field]string {
	out := make(map[core.Field]string)
	for name, field := range editableFields {
		if _, ok := form[name]; !ok {
			continue
		}
		out[field] = sanitizeInput(form.Get(name))
	}
	return out
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
