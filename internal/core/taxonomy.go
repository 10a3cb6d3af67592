package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Filter sentinels understood by the report engine and the dashboard.
const (
	AllPeople     = "Ambos"
	AllCategories = "Todas"
)

var (
	DefaultPeople = []string{"Milagros Valladolid", "Jose Longa"}

	DefaultCategories = []string{
		"Comida", "Hogar", "Transporte", "Ocio", "Salud", "Ropa y Calzado",
		"Tecnología", "Regalos", "Educación", "Deuda", "Otro",
	}

	DefaultExpenseTypes = []string{
		"Fijo Mensual", "Variable Diario", "Ocasional", "Ahorro/Inversión", "Deuda",
	}
)

// DefaultFallbackCategory is used when no category can be suggested.
const DefaultFallbackCategory = "Otro"

var ErrUnknownValue = errors.New("value is not one of the configured options")

// Taxonomy holds the configured enumerations an expense is checked against.
type Taxonomy struct {
	People       []string
	Categories   []string
	ExpenseTypes []string
	Fallback     string
}

// DefaultTaxonomy returns the built-in household sets.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		People:       slices.Clone(DefaultPeople),
		Categories:   slices.Clone(DefaultCategories),
		ExpenseTypes: slices.Clone(DefaultExpenseTypes),
		Fallback:     DefaultFallbackCategory,
	}
}

// Check verifies enum membership. An empty expense type is accepted.
func (t Taxonomy) Check(e Expense) error {
	for _, f := range []Field{FieldPerson, FieldCategory, FieldExpenseType} {
		if err := t.CheckField(f, e.Value(f)); err != nil {
			return err
		}
	}
	return nil
}

// CheckField verifies that v belongs to the configured set of field f.
// Fields without a configured set always pass.
func (t Taxonomy) CheckField(f Field, v string) error {
	var set []string
	switch f {
	case FieldPerson:
		set = t.People
	case FieldCategory:
		set = t.Categories
	case FieldExpenseType:
		if v == "" {
			return nil
		}
		set = t.ExpenseTypes
	default:
		return nil
	}
	if len(set) > 0 && !slices.Contains(set, v) {
		return Invalid(f, fmt.Errorf("%w: %q", ErrUnknownValue, v))
	}
	return nil
}

// Match returns the configured category equal to s, ignoring case and
// surrounding whitespace or punctuation.
func (t Taxonomy) Match(s string) (string, bool) {
	s = strings.Trim(strings.TrimSpace(s), ".\"'`*")
	for _, c := range t.Categories {
		if strings.EqualFold(c, s) {
			return c, true
		}
	}
	return "", false
}

// FallbackCategory returns the configured fallback or "Otro".
func (t Taxonomy) FallbackCategory() string {
	if t.Fallback != "" {
		return t.Fallback
	}
	return DefaultFallbackCategory
}
