package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	r, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "finanzas.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func expense(id, amount string) core.Expense {
	return core.Expense{
		ID:          id,
		Date:        core.NewDate(2024, 6, 1),
		Amount:      decimal.RequireFromString(amount),
		Description: "luz",
		Person:      "Milagros Valladolid",
		Category:    "Hogar",
		ExpenseType: "Fijo Mensual",
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	if got, err := r.LoadAll(ctx); err != nil || len(got) != 0 {
		t.Fatalf("expected empty store, got %v (err=%v)", got, err)
	}
	if err := r.Append(ctx, expense("a", "80.25")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := r.Append(ctx, expense("b", "10")); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := r.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || !got[0].Amount.Equal(decimal.RequireFromString("80.25")) {
		t.Fatalf("unexpected rows %+v", got)
	}
	if got[0].Date.String() != "2024-06-01" || got[0].ExpenseType != "Fijo Mensual" {
		t.Fatalf("fields not preserved: %+v", got[0])
	}
}

func TestSQLiteUpdateAndDelete(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	_ = r.Append(ctx, expense("a", "1"))
	_ = r.Append(ctx, expense("b", "2"))

	err := r.UpdateFields(ctx, "b", map[core.Field]string{
		core.FieldAmount: "3.5",
		core.FieldID:     "c",
		core.Field("x"):  "ignored",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := r.LoadAll(ctx)
	if got[1].ID != "b" || !got[1].Amount.Equal(decimal.RequireFromString("3.5")) {
		t.Fatalf("unexpected row after update %+v", got[1])
	}

	if err := r.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.Delete(ctx, "a"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := r.UpdateFields(ctx, "zzz", map[core.Field]string{core.FieldNotes: "x"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, _ = r.LoadAll(ctx)
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("unexpected rows after delete %+v", got)
	}
}

func TestSQLiteMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finanzas.db")
	for i := 0; i < 2; i++ {
		version, err := RunMigrations(path)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if version != 1 {
			t.Errorf("run %d: schema version = %d, want 1", i, version)
		}
	}
}

func TestSQLiteBadDateRowsDropped(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	_ = r.Append(ctx, expense("a", "1"))
	if _, err := r.db.ExecContext(ctx, `UPDATE expenses SET date = 'mañana' WHERE id = 'a'`); err != nil {
		t.Fatal(err)
	}
	_ = r.Append(ctx, expense("b", "2"))
	got, err := r.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("expected only b, got %+v", got)
	}
}
