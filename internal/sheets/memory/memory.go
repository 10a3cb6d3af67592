package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"finanzas/internal/core"
	ports "finanzas/internal/sheets"
)

// SeedFile is the optional CSV read by NewFromFiles. Its first record is the
// header row.
const SeedFile = "ledger_seed.csv"

// Store is a tabular ledger held in memory: one header row plus string
// cells, the same shape as a spreadsheet tab.
type Store struct {
	mu     sync.Mutex
	header []string
	layout ports.Layout
	rows   [][]string
}

var _ ports.LedgerStore = (*Store)(nil)

// New creates an empty store with the given header.
func New(header []string) (*Store, error) {
	layout, err := ports.SchemaV1.Bind(header)
	if err != nil {
		return nil, err
	}
	return &Store{header: slices.Clone(header), layout: layout}, nil
}

// NewFromFiles creates a store with the version-1 header and loads rows from
// base/ledger_seed.csv when that file exists.
func NewFromFiles(base string) (*Store, error) {
	f, err := os.Open(filepath.Join(base, SeedFile))
	if err != nil {
		if os.IsNotExist(err) {
			return New(ports.SchemaV1.Header())
		}
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return NewFromCSV(f)
}

// NewFromCSV loads a header and rows from r.
func NewFromCSV(r io.Reader) (*Store, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read seed csv: %w", err)
	}
	if len(records) == 0 {
		return New(ports.SchemaV1.Header())
	}
	s, err := New(records[0])
	if err != nil {
		return nil, err
	}
	for _, rec := range records[1:] {
		s.rows = append(s.rows, s.pad(rec))
	}
	return s, nil
}

func (s *Store) Header(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.header), nil
}

func (s *Store) LoadAll(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.rows))
	for _, row := range s.rows {
		if e, ok := s.layout.Decode(row); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Append stores one row in header order.
func (s *Store) Append(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, s.layout.Encode(e))
	return nil
}

func (s *Store) FindRowByID(_ context.Context, id string) (ports.RowRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id)
	if i < 0 {
		return ports.RowRef{}, fmt.Errorf("expense %q: %w", id, core.ErrNotFound)
	}
	return ports.RowRef{ID: id, Row: i + 2}, nil
}

func (s *Store) UpdateFields(_ context.Context, id string, values map[core.Field]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id)
	if i < 0 {
		return fmt.Errorf("expense %q: %w", id, core.ErrNotFound)
	}
	for col, v := range s.layout.Cells(values) {
		s.rows[i][col] = v
	}
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id)
	if i < 0 {
		return fmt.Errorf("expense %q: %w", id, core.ErrNotFound)
	}
	s.rows = slices.Delete(s.rows, i, i+1)
	return nil
}

// Rows returns a copy of the raw cells, header excluded.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = slices.Clone(r)
	}
	return out
}

// find must be called with mu held.
func (s *Store) find(id string) int {
	for i, row := range s.rows {
		if s.layout.ID(row) == id {
			return i
		}
	}
	return -1
}

func (s *Store) pad(rec []string) []string {
	if len(rec) >= len(s.header) {
		return rec
	}
	row := make([]string, len(s.header))
	copy(row, rec)
	return row
}
