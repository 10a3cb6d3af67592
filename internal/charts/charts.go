// Package charts renders dashboard charts as PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"

	"finanzas/internal/core"
	"finanzas/internal/report"
)

var (
	ErrNoData      = errors.New("no data to chart")
	ErrUnknownKind = errors.New("unknown chart kind")
)

// Kind names one chart shown on the dashboard.
type Kind string

const (
	KindCategories    Kind = "categories"
	KindDaily         Kind = "daily"
	KindPeople        Kind = "people"
	KindSubcategories Kind = "subcategories"
)

// Kinds lists every chart in dashboard order.
var Kinds = []Kind{KindCategories, KindDaily, KindPeople, KindSubcategories}

// ParseKind validates a chart name taken from a URL.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

const (
	width    = 800
	height   = 400
	barWidth = 50
)

// Renderer draws charts with a currency symbol on amount labels.
type Renderer struct {
	Currency string
}

func New(currency string) *Renderer {
	if currency == "" {
		currency = core.DefaultCurrency
	}
	return &Renderer{Currency: currency}
}

// Groups returns the totals chart kind plots for records.
func Groups(kind Kind, records []core.Expense) ([]report.GroupTotal, error) {
	switch kind {
	case KindCategories:
		return report.GroupTotals(records, core.FieldCategory), nil
	case KindDaily:
		return report.DailyTotals(records), nil
	case KindPeople:
		return report.GroupTotals(records, core.FieldPerson), nil
	case KindSubcategories:
		return report.GroupTotalsBy(records, report.CategorySubcategory), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// HasData reports whether kind would draw anything for records.
func HasData(kind Kind, records []core.Expense) bool {
	groups, err := Groups(kind, records)
	return err == nil && len(positive(groups)) > 0
}

// Render draws kind from already filtered records.
func (r *Renderer) Render(kind Kind, records []core.Expense) ([]byte, error) {
	groups, err := Groups(kind, records)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindCategories:
		return r.CategoryPie(groups)
	case KindDaily:
		return r.DailyLine(groups)
	case KindPeople:
		return r.PersonBar(groups)
	default:
		return r.SubcategoryBar(groups)
	}
}

// CategoryPie shows each category's share of the total.
func (r *Renderer) CategoryPie(groups []report.GroupTotal) ([]byte, error) {
	groups = positive(groups)
	if len(groups) == 0 {
		return nil, ErrNoData
	}
	total := decimal.Zero
	for _, g := range groups {
		total = total.Add(g.Total)
	}

	values := make([]chart.Value, 0, len(groups))
	for _, g := range groups {
		pct := g.Total.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64()
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%.1f%%)", label(g.Key), pct),
			Value: g.Total.InexactFloat64(),
		})
	}

	pie := chart.PieChart{
		Title:      "Gasto por categoría",
		Width:      width,
		Height:     width,
		Values:     values,
		Background: background(),
	}
	return render("category pie", pie.Render)
}

// DailyLine plots the total spent per day. Groups must be keyed by ISO date
// in ascending order, as report.DailyTotals returns them.
func (r *Renderer) DailyLine(groups []report.GroupTotal) ([]byte, error) {
	if len(groups) == 0 {
		return nil, ErrNoData
	}
	if len(groups) == 1 {
		// a single day has no line to draw
		return r.bar("Gasto diario", groups)
	}

	xs := make([]time.Time, 0, len(groups))
	ys := make([]float64, 0, len(groups))
	peak := 0.0
	for _, g := range groups {
		d, err := core.ParseDate(g.Key)
		if err != nil {
			return nil, fmt.Errorf("daily line: %w", err)
		}
		v := g.Total.InexactFloat64()
		xs = append(xs, d.Time)
		ys = append(ys, v)
		peak = max(peak, v)
	}
	if peak <= 0 {
		return nil, ErrNoData
	}

	graph := chart.Chart{
		Title:      "Gasto diario",
		Width:      width,
		Height:     height,
		Background: background(),
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("02/01"),
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: peak * 1.1},
			ValueFormatter: r.amountFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Gasto",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2,
				},
			},
		},
	}
	return render("daily line", graph.Render)
}

// PersonBar compares totals per person.
func (r *Renderer) PersonBar(groups []report.GroupTotal) ([]byte, error) {
	return r.bar("Gasto por persona", groups)
}

// SubcategoryBar compares totals per "category - subcategory" key.
func (r *Renderer) SubcategoryBar(groups []report.GroupTotal) ([]byte, error) {
	return r.bar("Gasto por subcategoría", groups)
}

func (r *Renderer) bar(title string, groups []report.GroupTotal) ([]byte, error) {
	groups = positive(groups)
	if len(groups) == 0 {
		return nil, ErrNoData
	}
	bars := make([]chart.Value, 0, len(groups))
	peak := 0.0
	for _, g := range groups {
		v := g.Total.InexactFloat64()
		bars = append(bars, chart.Value{Label: label(g.Key), Value: v})
		peak = max(peak, v)
	}

	graph := chart.BarChart{
		Title:      title,
		Width:      max(width, len(bars)*(barWidth+30)+120),
		Height:     height,
		BarWidth:   barWidth,
		Background: background(),
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: peak * 1.1},
			ValueFormatter: r.amountFormatter,
		},
		Bars: bars,
	}
	return render(title, graph.Render)
}

func (r *Renderer) amountFormatter(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	return core.FormatAmount(decimal.NewFromFloat(f).Round(0), r.Currency)
}

func render(name string, fn func(chart.RendererProvider, io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := fn(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func background() chart.Style {
	return chart.Style{
		Padding:   chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		FillColor: chart.ColorWhite,
	}
}

func positive(groups []report.GroupTotal) []report.GroupTotal {
	out := make([]report.GroupTotal, 0, len(groups))
	for _, g := range groups {
		if g.Total.IsPositive() {
			out = append(out, g)
		}
	}
	return out
}

func label(key string) string {
	if key == "" {
		return "(sin valor)"
	}
	return key
}
