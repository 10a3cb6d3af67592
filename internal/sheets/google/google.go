package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"finanzas/internal/core"
	ports "finanzas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab a freshly created household spreadsheet uses.
const DefaultSheetName = "Hoja 1"

// Options configures the Sheets client.
type Options struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	schema        ports.Schema

	mu      sync.Mutex
	sheetID *int64 // numeric tab id, resolved on first delete
}

// Ensure interface conformance
var _ ports.LedgerStore = (*Client)(nil)

// New creates a Sheets client authenticated with a service account. When
// extra client options are given they replace credential loading entirely.
func New(ctx context.Context, o Options, extra ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(o.SpreadsheetID) == "" {
		return nil, core.Misconfigured("GOOGLE_SPREADSHEET_ID", errors.New("missing spreadsheet id"))
	}
	opts := extra
	if len(extra) == 0 {
		creds, err := loadCredentials(ctx, o)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, core.Communication("create sheets service", err)
	}
	return NewWithService(svc, o.SpreadsheetID, o.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = DefaultSheetName
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		schema:        ports.SchemaV1,
	}
}

// loadCredentials reads service account credentials from inline JSON, a file,
// or GOOGLE_APPLICATION_CREDENTIALS.
func loadCredentials(ctx context.Context, o Options) ([]byte, error) {
	file := strings.TrimSpace(o.CredentialsFile)
	if strings.TrimSpace(o.CredentialsJSON) == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case strings.TrimSpace(o.CredentialsJSON) != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "json_length", len(o.CredentialsJSON))
		return []byte(o.CredentialsJSON), nil
	case file != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, core.Misconfigured("GOOGLE_SERVICE_ACCOUNT_FILE", fmt.Errorf("read service account file: %w", err))
		}
		return b, nil
	default:
		return nil, core.Misconfigured("GOOGLE_SERVICE_ACCOUNT_JSON",
			errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)"))
	}
}

func (c *Client) Header(ctx context.Context) ([]string, error) {
	values, err := c.read(ctx, c.a1("1:1"))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

func (c *Client) LoadAll(ctx context.Context) ([]core.Expense, error) {
	values, err := c.read(ctx, c.a1(""))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return []core.Expense{}, nil
	}
	layout, err := c.schema.Bind(values[0])
	if err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(values)-1)
	dropped := 0
	for _, row := range values[1:] {
		e, ok := layout.Decode(row)
		if !ok {
			dropped++
			continue
		}
		out = append(out, e)
	}
	if dropped > 0 {
		slog.DebugContext(ctx, "Dropped rows with unparseable dates", "sheet", c.sheetName, "count", dropped)
	}
	return out, nil
}

// Append writes one row in the tab's declared column order. Values are sent
// RAW so text such as "=2+2" or "12.5" is never reinterpreted by the sheet.
func (c *Client) Append(ctx context.Context, e core.Expense) error {
	header, err := c.Header(ctx)
	if err != nil {
		return err
	}
	layout, err := c.schema.Bind(header)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{toAny(layout.Encode(e))}}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.a1("A1"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return core.Communication(fmt.Sprintf("append to %s", c.sheetName), err)
	}
	return nil
}

func (c *Client) FindRowByID(ctx context.Context, id string) (ports.RowRef, error) {
	ref, _, err := c.locate(ctx, id)
	return ref, err
}

// UpdateFields overwrites individual cells of the located row. Values are
// sent RAW so the sheet stores them as entered text.
func (c *Client) UpdateFields(ctx context.Context, id string, values map[core.Field]string) error {
	ref, layout, err := c.locate(ctx, id)
	if err != nil {
		return err
	}
	cells := layout.Cells(values)
	if len(cells) == 0 {
		return nil
	}
	cols := make([]int, 0, len(cells))
	for col := range cells {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	data := make([]*gsheet.ValueRange, 0, len(cols))
	for _, col := range cols {
		data = append(data, &gsheet.ValueRange{
			Range:  c.a1(fmt.Sprintf("%s%d", ports.ColumnLetter(col), ref.Row)),
			Values: [][]any{{cells[col]}},
		})
	}
	req := &gsheet.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: data}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return core.Communication(fmt.Sprintf("update row %d of %s", ref.Row, c.sheetName), err)
	}
	return nil
}

// Delete removes the whole sheet row holding id.
func (c *Client) Delete(ctx context.Context, id string) error {
	ref, _, err := c.locate(ctx, id)
	if err != nil {
		return err
	}
	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(ref.Row - 1),
					EndIndex:   int64(ref.Row),
					// the first tab has id 0, which omitempty would drop
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return core.Communication(fmt.Sprintf("delete row %d of %s", ref.Row, c.sheetName), err)
	}
	return nil
}

// locate scans the id column for the first exact match.
func (c *Client) locate(ctx context.Context, id string) (ports.RowRef, ports.Layout, error) {
	values, err := c.read(ctx, c.a1(""))
	if err != nil {
		return ports.RowRef{}, ports.Layout{}, err
	}
	if len(values) == 0 {
		return ports.RowRef{}, ports.Layout{}, fmt.Errorf("expense %q: %w", id, core.ErrNotFound)
	}
	layout, err := c.schema.Bind(values[0])
	if err != nil {
		return ports.RowRef{}, ports.Layout{}, err
	}
	for i, row := range values[1:] {
		if layout.ID(row) == id {
			// values[0] is sheet row 1
			return ports.RowRef{ID: id, Row: i + 2}, layout, nil
		}
	}
	return ports.RowRef{}, ports.Layout{}, fmt.Errorf("expense %q: %w", id, core.ErrNotFound)
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, core.Communication("read spreadsheet metadata", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, core.Misconfigured("GOOGLE_SHEET_NAME", fmt.Errorf("tab %q not found in spreadsheet", c.sheetName))
}

func (c *Client) read(ctx context.Context, rng string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, core.Communication(fmt.Sprintf("read %s", rng), err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		out = append(out, toStrings(row))
	}
	return out, nil
}

// a1 qualifies a cell range with the quoted tab name; an empty range selects
// the whole tab.
func (c *Client) a1(rng string) string {
	name := "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'"
	if rng == "" {
		return name
	}
	return name + "!" + rng
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
