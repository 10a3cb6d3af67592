package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-05", "2024-03-05", true},
		{"2024-03-05 10:11:12", "2024-03-05", true},
		{"2024-03-05T23:59:00Z", "2024-03-05", true},
		{"2024/03/05", "2024-03-05", true},
		{"05/03/2024", "2024-03-05", true},
		{"", "", false},
		{"yesterday", "", false},
		{"2024-13-01", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func sampleExpense() Expense {
	return Expense{
		ID:          "abc",
		Date:        NewDate(2025, 1, 1),
		Amount:      decimal.RequireFromString("12.5"),
		Description: "ok",
		Person:      "Jose Longa",
		Category:    "Comida",
		ExpenseType: "Variable Diario",
	}
}

func TestExpenseValidate(t *testing.T) {
	good := sampleExpense()
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	mutations := []func(*Expense){
		func(e *Expense) { e.Date = Date{} },
		func(e *Expense) { e.Description = "   " },
		func(e *Expense) { e.Amount = decimal.Zero },
		func(e *Expense) { e.Amount = decimal.NewFromInt(-5) },
		func(e *Expense) { e.Person = "" },
		func(e *Expense) { e.Category = "" },
	}
	for i, mutate := range mutations {
		e := sampleExpense()
		mutate(&e)
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestExpenseValue(t *testing.T) {
	e := sampleExpense()
	want := map[Field]string{
		FieldID:          "abc",
		FieldDate:        "2025-01-01",
		FieldAmount:      "12.5",
		FieldDescription: "ok",
		FieldPerson:      "Jose Longa",
		FieldCategory:    "Comida",
		FieldSubcategory: "",
		FieldExpenseType: "Variable Diario",
	}
	for f, w := range want {
		if got := e.Value(f); got != w {
			t.Errorf("Value(%s) = %q, want %q", f, got, w)
		}
	}
}

func TestParseField(t *testing.T) {
	if f, ok := ParseField(" Amount "); !ok || f != FieldAmount {
		t.Fatalf("expected amount, got %q %v", f, ok)
	}
	if _, ok := ParseField("color"); ok {
		t.Fatalf("unknown field accepted")
	}
}

func TestTaxonomyCheck(t *testing.T) {
	tax := DefaultTaxonomy()
	if err := tax.Check(sampleExpense()); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	e := sampleExpense()
	e.ExpenseType = ""
	if err := tax.Check(e); err != nil {
		t.Fatalf("empty expense type should pass, got %v", err)
	}

	e = sampleExpense()
	e.Category = "Viajes"
	err := tax.Check(e)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != FieldCategory {
		t.Fatalf("expected category validation error, got %v", err)
	}
	if !errors.Is(err, ErrUnknownValue) || !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("error chain broken: %v", err)
	}
}

func TestTaxonomyCheckField(t *testing.T) {
	tax := DefaultTaxonomy()
	tests := []struct {
		field   Field
		value   string
		wantErr bool
	}{
		{FieldPerson, "Jose Longa", false},
		{FieldPerson, "Nadie", true},
		{FieldCategory, "Ocio", false},
		{FieldCategory, "", true},
		{FieldExpenseType, "", false},
		{FieldExpenseType, "Mensual", true},
		{FieldNotes, "cualquier cosa", false},
	}
	for _, tt := range tests {
		err := tax.CheckField(tt.field, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckField(%s, %q) error = %v, wantErr %v", tt.field, tt.value, err, tt.wantErr)
		}
	}
	if err := (Taxonomy{}).CheckField(FieldPerson, "Nadie"); err != nil {
		t.Errorf("unconfigured set should accept anything, got %v", err)
	}
}

func TestTaxonomyMatch(t *testing.T) {
	tax := DefaultTaxonomy()
	if got, ok := tax.Match(" comida. "); !ok || got != "Comida" {
		t.Fatalf("expected Comida, got %q %v", got, ok)
	}
	if _, ok := tax.Match("Viajes"); ok {
		t.Fatalf("unexpected match")
	}
	if tax.FallbackCategory() != "Otro" {
		t.Fatalf("unexpected fallback %q", tax.FallbackCategory())
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{Invalid(FieldAmount, ErrInvalidAmount), KindInvalidInput},
		{fmt.Errorf("update: %w", ErrNotFound), KindNotFound},
		{Communication("sheets append", errors.New("503")), KindCommunication},
		{Misconfigured("GOOGLE_SPREADSHEET_ID", errors.New("missing")), KindConfiguration},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
	if Communication("noop", nil) != nil {
		t.Fatalf("nil error should stay nil")
	}
}
