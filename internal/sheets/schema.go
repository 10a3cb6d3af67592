package sheets

import (
	"errors"
	"fmt"
	"strings"

	"finanzas/internal/core"
)

// Schema maps record fields to header cell names.
type Schema struct {
	Version int
	Columns map[core.Field]string
}

// SchemaV1 is the column layout of the household spreadsheet.
var SchemaV1 = Schema{
	Version: 1,
	Columns: map[core.Field]string{
		core.FieldID:          "ID_Gasto",
		core.FieldDate:        "Fecha",
		core.FieldAmount:      "Monto",
		core.FieldDescription: "Descripcion",
		core.FieldPerson:      "Persona",
		core.FieldCategory:    "Categoria",
		core.FieldSubcategory: "Subcategoria",
		core.FieldExpenseType: "Tipo_Gasto",
		core.FieldNotes:       "Notas",
	},
}

var ErrMissingColumn = errors.New("header is missing a required column")

// Header returns the schema's column names in canonical field order.
func (s Schema) Header() []string {
	out := make([]string, 0, len(s.Columns))
	for _, f := range core.Fields {
		if name, ok := s.Columns[f]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Bind validates header against the schema and returns the resulting layout.
// Extra columns are tolerated; a missing one is a configuration error.
func (s Schema) Bind(header []string) (Layout, error) {
	index := make(map[core.Field]int, len(s.Columns))
	var missing []string
	for _, f := range core.Fields {
		name, ok := s.Columns[f]
		if !ok {
			continue
		}
		col := indexOf(header, name)
		if col < 0 {
			missing = append(missing, name)
			continue
		}
		index[f] = col
	}
	if len(missing) > 0 {
		return Layout{}, core.Misconfigured("ledger header",
			fmt.Errorf("%w: %s (schema v%d, got %v)", ErrMissingColumn, strings.Join(missing, ", "), s.Version, header))
	}
	return Layout{width: len(header), index: index}, nil
}

// Layout is a schema bound to a concrete header row.
type Layout struct {
	width int
	index map[core.Field]int
}

// Width is the number of header columns, extra ones included.
func (l Layout) Width() int { return l.width }

// Column returns the 0-based column index of field f.
func (l Layout) Column(f core.Field) (int, bool) {
	i, ok := l.index[f]
	return i, ok
}

// Encode renders e as a row in header order. Unmapped columns stay empty.
func (l Layout) Encode(e core.Expense) []string {
	row := make([]string, l.width)
	for f, i := range l.index {
		row[i] = e.Value(f)
	}
	return row
}

// Decode reads one stored row. The amount is coerced (garbage becomes zero);
// ok is false when the date cannot be parsed and the row must be dropped.
func (l Layout) Decode(row []string) (core.Expense, bool) {
	cell := func(f core.Field) string {
		i, ok := l.index[f]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	d, err := core.ParseDate(cell(core.FieldDate))
	if err != nil {
		return core.Expense{}, false
	}
	return core.Expense{
		ID:          cell(core.FieldID),
		Date:        d,
		Amount:      core.CoerceAmount(cell(core.FieldAmount)),
		Description: cell(core.FieldDescription),
		Person:      cell(core.FieldPerson),
		Category:    cell(core.FieldCategory),
		Subcategory: cell(core.FieldSubcategory),
		ExpenseType: cell(core.FieldExpenseType),
		Notes:       cell(core.FieldNotes),
	}, true
}

// ID returns the identifier cell of row.
func (l Layout) ID(row []string) string {
	i, ok := l.index[core.FieldID]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Cells maps the fields of values that exist in the header to column indices.
// The id column is never part of the result.
func (l Layout) Cells(values map[core.Field]string) map[int]string {
	out := make(map[int]string, len(values))
	for f, v := range values {
		if f == core.FieldID {
			continue
		}
		if i, ok := l.index[f]; ok {
			out[i] = v
		}
	}
	return out
}

// ColumnLetter converts a 0-based column index to A1 notation (0 -> A, 26 -> AA).
func ColumnLetter(i int) string {
	var b []byte
	for i >= 0 {
		b = append([]byte{byte('A' + i%26)}, b...)
		i = i/26 - 1
	}
	return string(b)
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}
