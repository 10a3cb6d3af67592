package sheets

import (
	"context"

	"finanzas/internal/core"
)

// RowRef addresses a located record. Row is the 1-based sheet row for
// tabular stores (the header is row 1) and the rowid for SQL stores.
type RowRef struct {
	ID  string
	Row int
}

// Ports for outbound adapters.
type (
	LedgerReader interface {
		// Header returns the store's column names in declared order.
		Header(ctx context.Context) ([]string, error)
		// LoadAll returns every data row that carries a parseable date.
		LoadAll(ctx context.Context) ([]core.Expense, error)
	}

	LedgerWriter interface {
		// Append writes exactly one row. It performs no duplicate-id check.
		Append(ctx context.Context, e core.Expense) error
		// UpdateFields overwrites the cells of the row identified by id for
		// every field present in both values and the header.
		UpdateFields(ctx context.Context, id string, values map[core.Field]string) error
		// Delete removes the row identified by id.
		Delete(ctx context.Context, id string) error
	}

	RowFinder interface {
		// FindRowByID returns the first row whose id cell equals id, or
		// core.ErrNotFound.
		FindRowByID(ctx context.Context, id string) (RowRef, error)
	}

	LedgerStore interface {
		LedgerReader
		LedgerWriter
		RowFinder
	}
)
