package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"

	"finanzas/internal/core"
	"finanzas/internal/log"
	ports "finanzas/internal/sheets"

	_ "modernc.org/sqlite"
)

const table = "expenses"

// SQLiteRepository is a ledger store on a local SQLite file. Every cell is
// kept as TEXT so it behaves like the spreadsheet it stands in for.
type SQLiteRepository struct {
	db     *sql.DB
	layout ports.Layout
}

var _ ports.LedgerStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.NewComponentLogger(log.ComponentStorage).Debug("SQLite ledger ready", "path", dbPath, "schema_version", version)

	layout, err := ports.SchemaV1.Bind(ports.SchemaV1.Header())
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{db: db, layout: layout}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return core.Communication("ping sqlite", r.db.PingContext(ctx))
}

// Header reports the version-1 column names; the table columns map to them
// one to one.
func (r *SQLiteRepository) Header(_ context.Context) ([]string, error) {
	return ports.SchemaV1.Header(), nil
}

func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]core.Expense, error) {
	query, args, err := sq.Select(columns()...).From(table).OrderBy("row_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.Communication("select expenses", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		cells := make([]string, len(core.Fields))
		dest := make([]any, len(cells))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, core.Communication("scan expense", err)
		}
		if e, ok := r.layout.Decode(cells); ok {
			out = append(out, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, core.Communication("iterate expenses", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Append(ctx context.Context, e core.Expense) error {
	values := make([]any, 0, len(core.Fields))
	for _, f := range core.Fields {
		values = append(values, e.Value(f))
	}
	query, args, err := sq.Insert(table).Columns(columns()...).Values(values...).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return core.Communication("insert expense", err)
	}

	log.FromContext(ctx).WithComponent(log.ComponentStorage).DebugContext(ctx, "Expense saved to SQLite",
		log.FieldExpenseID, e.ID,
		log.FieldAmount, e.Amount.String())
	return nil
}

func (r *SQLiteRepository) FindRowByID(ctx context.Context, id string) (ports.RowRef, error) {
	query, args, err := sq.Select("row_id").From(table).
		Where(sq.Eq{"id": id}).
		OrderBy("row_id").
		Limit(1).
		ToSql()
	if err != nil {
		return ports.RowRef{}, fmt.Errorf("build find: %w", err)
	}
	var rowID int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&rowID)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.RowRef{}, fmt.Errorf("expense %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return ports.RowRef{}, core.Communication("find expense", err)
	}
	return ports.RowRef{ID: id, Row: rowID}, nil
}

func (r *SQLiteRepository) UpdateFields(ctx context.Context, id string, values map[core.Field]string) error {
	ref, err := r.FindRowByID(ctx, id)
	if err != nil {
		return err
	}
	set := make(map[string]any, len(values))
	for f, v := range values {
		if f == core.FieldID {
			continue
		}
		if _, ok := r.layout.Column(f); ok {
			set[string(f)] = v
		}
	}
	if len(set) == 0 {
		return nil
	}
	query, args, err := sq.Update(table).SetMap(set).Where(sq.Eq{"row_id": ref.Row}).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return core.Communication("update expense", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	ref, err := r.FindRowByID(ctx, id)
	if err != nil {
		return err
	}
	query, args, err := sq.Delete(table).Where(sq.Eq{"row_id": ref.Row}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return core.Communication("delete expense", err)
	}
	return nil
}

// columns lists the table columns in canonical field order.
func columns() []string {
	out := make([]string, len(core.Fields))
	for i, f := range core.Fields {
		out[i] = string(f)
	}
	return out
}
