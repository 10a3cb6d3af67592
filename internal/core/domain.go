package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field identifies one attribute of an expense record. Field values double as
// the keys accepted by partial updates.
type Field string

const (
	FieldID          Field = "id"
	FieldDate        Field = "date"
	FieldAmount      Field = "amount"
	FieldDescription Field = "description"
	FieldPerson      Field = "person"
	FieldCategory    Field = "category"
	FieldSubcategory Field = "subcategory"
	FieldExpenseType Field = "expense_type"
	FieldNotes       Field = "notes"
)

// Fields lists every record field in canonical order.
var Fields = []Field{
	FieldID,
	FieldDate,
	FieldAmount,
	FieldDescription,
	FieldPerson,
	FieldCategory,
	FieldSubcategory,
	FieldExpenseType,
	FieldNotes,
}

// ParseField maps a form or query key to a Field.
func ParseField(s string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Fields {
		if f == known {
			return f, true
		}
	}
	return "", false
}

const dateLayout = "2006-01-02"

// dateLayouts are tried in order when reading dates back from a store.
var dateLayouts = []string{
	dateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
}

type (
	// Date is a calendar date with no time-of-day component.
	Date struct {
		time.Time
	}

	// Expense is one logged household transaction.
	Expense struct {
		ID          string
		Date        Date
		Amount      decimal.Decimal
		Description string
		Person      string // who paid
		Category    string
		Subcategory string
		ExpenseType string
		Notes       string
	}
)

var (
	ErrZeroDate         = errors.New("date cannot be zero")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrEmptyDescription = errors.New("description cannot be empty")
	ErrEmptyPerson      = errors.New("person cannot be empty")
	ErrEmptyCategory    = errors.New("category cannot be empty")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate reads a calendar date in any of the layouts a spreadsheet is
// likely to hand back.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrZeroDate
	}
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return DateOf(t), nil
		}
		lastErr = err
	}
	return Date{}, lastErr
}

// String returns the ISO calendar form (YYYY-MM-DD).
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// Value returns the text representation of field f, the form every store
// cell is written in.
func (e Expense) Value(f Field) string {
	switch f {
	case FieldID:
		return e.ID
	case FieldDate:
		return e.Date.String()
	case FieldAmount:
		return e.Amount.String()
	case FieldDescription:
		return e.Description
	case FieldPerson:
		return e.Person
	case FieldCategory:
		return e.Category
	case FieldSubcategory:
		return e.Subcategory
	case FieldExpenseType:
		return e.ExpenseType
	case FieldNotes:
		return e.Notes
	}
	return ""
}

// Validate checks the invariants every written record must hold. Enum
// membership is checked separately by Taxonomy.
func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if err := ValidateDescription(e.Description); err != nil {
		return err
	}
	if strings.TrimSpace(e.Person) == "" {
		return ErrEmptyPerson
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateDescription rejects blank descriptions.
func ValidateDescription(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyDescription
	}
	return nil
}
