package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	ports "finanzas/internal/sheets"
)

func newExpense(id string) core.Expense {
	return core.Expense{
		ID:          id,
		Date:        core.NewDate(2024, 1, 15),
		Amount:      decimal.RequireFromString("25.40"),
		Description: "mercado",
		Person:      "Jose Longa",
		Category:    "Comida",
	}
}

func TestAppendAndLoadAll(t *testing.T) {
	s, err := New(ports.SchemaV1.Header())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if got, _ := s.LoadAll(ctx); len(got) != 0 {
		t.Fatalf("expected empty store, got %d rows", len(got))
	}
	if err := s.Append(ctx, newExpense("a")); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" || !got[0].Amount.Equal(decimal.RequireFromString("25.4")) {
		t.Fatalf("unexpected rows %+v", got)
	}
}

func TestUpdateFindDelete(t *testing.T) {
	s, _ := New(ports.SchemaV1.Header())
	ctx := context.Background()
	_ = s.Append(ctx, newExpense("a"))
	_ = s.Append(ctx, newExpense("b"))

	ref, err := s.FindRowByID(ctx, "b")
	if err != nil || ref.Row != 3 {
		t.Fatalf("expected row 3, got %+v (err=%v)", ref, err)
	}

	if err := s.UpdateFields(ctx, "a", map[core.Field]string{core.FieldAmount: "99", core.FieldID: "z"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	rows := s.Rows()
	if rows[0][2] != "99" || rows[0][0] != "a" {
		t.Fatalf("unexpected row after update %v", rows[0])
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "a"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
	if err := s.UpdateFields(ctx, "missing", nil); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.FindRowByID(ctx, "a"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewFromCSVDropsBadDates(t *testing.T) {
	data := strings.Join([]string{
		"ID_Gasto,Fecha,Monto,Descripcion,Persona,Categoria,Subcategoria,Tipo_Gasto,Notas",
		"1,2024-02-01,10,pan,Jose Longa,Comida,,,",
		"2,ayer,5,leche,Jose Longa,Comida,,,",
		"3,2024-02-03,abc,taxi,Milagros Valladolid,Transporte",
	}, "\n")
	s, err := NewFromCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	got, _ := s.LoadAll(context.Background())
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[1].ID != "3" || !got[1].Amount.IsZero() {
		t.Fatalf("bad amount should be kept as zero: %+v", got[1])
	}
}

func TestNewRejectsIncompleteHeader(t *testing.T) {
	if _, err := New([]string{"ID_Gasto", "Fecha"}); !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewFromFilesWithoutSeed(t *testing.T) {
	s, err := NewFromFiles(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	h, _ := s.Header(context.Background())
	if len(h) != 9 {
		t.Fatalf("expected v1 header, got %v", h)
	}
}

func TestNewFromFilesWithSeed(t *testing.T) {
	dir := t.TempDir()
	seed := "ID_Gasto,Fecha,Monto,Descripcion,Persona,Categoria,Subcategoria,Tipo_Gasto,Notas\nx,2024-05-05,3.5,cafe,Jose Longa,Ocio,,,\n"
	if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, _ := s.LoadAll(context.Background())
	if len(got) != 1 || got[0].Description != "cafe" {
		t.Fatalf("unexpected rows %+v", got)
	}
}
