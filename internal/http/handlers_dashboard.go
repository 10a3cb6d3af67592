package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/charts"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/report"
)

// MsgLoadFailed is shown instead of the dashboard when the ledger cannot be read.
const MsgLoadFailed = "No se pudieron cargar los gastos. Inténtalo de nuevo más tarde."

var chartTitles = map[charts.Kind]string{
	charts.KindCategories:    "Gasto por categoría",
	charts.KindDaily:         "Gasto diario",
	charts.KindPeople:        "Gasto por persona",
	charts.KindSubcategories: "Gasto por subcategoría",
}

type chartLink struct {
	Title string
	URL   string
}

// groupRow is a group total with its share of the view total.
type groupRow struct {
	report.GroupTotal
	Share string
}

type dashboardView struct {
	Filter        FilterParams
	Taxonomy      core.Taxonomy
	LoadError     string
	Empty         bool
	Summary       report.Summary
	ByCategory    []groupRow
	ByPerson      []groupRow
	ByType        []groupRow
	BySubcategory []groupRow
	Records       []core.Expense
	Recent        []core.Expense
	Charts        []chartLink
	AIEnabled     bool
	InsightCount  int
	// MinDate and MaxDate bound the whole ledger and seed the date inputs.
	MinDate string
	MaxDate string
}

type indexView struct {
	Form      formView
	Dashboard dashboardView
}

// handleIndex renders the full page: create form, filters and dashboard.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	filter := ParseFilterParams(r.URL.Query())
	data := indexView{
		Form:      s.newFormView(ExpenseForm{}),
		Dashboard: s.buildDashboard(r, filter),
	}
	s.execute(r, http.StatusOK, "index.html", data).Write(w)
}

// handleDashboard renders the dashboard partial for the requested filters.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filter := ParseFilterParams(r.URL.Query())
	s.execute(r, http.StatusOK, "dashboard", s.buildDashboard(r, filter)).
		Header("Cache-Control", "no-store").
		Write(w)
}

// buildDashboard loads the full ledger and aggregates the filtered view. A
// failing store yields a view that only carries the error message.
func (s *Server) buildDashboard(r *http.Request, filter FilterParams) dashboardView {
	view := dashboardView{
		Filter:       filter,
		Taxonomy:     s.ledger.Taxonomy(),
		AIEnabled:    s.assistant.Enabled(),
		InsightCount: s.assistant.InsightCount(),
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	records, err := s.ledger.Load(ctx)
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Dashboard load failed",
			log.FieldError, err,
			log.FieldErrorKind, string(core.KindOf(err)))
		view.LoadError = MsgLoadFailed
		return view
	}

	if first, last, ok := report.Bounds(records); ok {
		view.MinDate, view.MaxDate = first.String(), last.String()
	}

	filtered := report.Filter(records, filter.Criteria())
	view.Summary = report.Summarize(filtered)
	view.Empty = view.Summary.Count == 0
	if view.Empty {
		return view
	}

	view.ByCategory = withShares(report.GroupTotals(filtered, core.FieldCategory), view.Summary.Total)
	view.ByPerson = withShares(report.GroupTotals(filtered, core.FieldPerson), view.Summary.Total)
	view.ByType = withShares(report.GroupTotals(filtered, core.FieldExpenseType), view.Summary.Total)
	view.BySubcategory = withShares(report.GroupTotalsBy(filtered, report.CategorySubcategory), view.Summary.Total)
	view.Records = report.SortByDateDesc(filtered)
	view.Recent = report.TopNRecent(filtered, s.manageLimit)

	query := filter.Query()
	for _, kind := range charts.Kinds {
		if !charts.HasData(kind, filtered) {
			continue
		}
		u := "/charts/" + string(kind) + ".png"
		if query != "" {
			u += "?" + query
		}
		view.Charts = append(view.Charts, chartLink{Title: chartTitles[kind], URL: u})
	}

	s.requestLogger(r).DebugContext(r.Context(), "Dashboard built",
		log.FieldRecords, len(filtered),
		log.FieldPerson, filter.Person)
	return view
}

func withShares(groups []report.GroupTotal, total decimal.Decimal) []groupRow {
	rows := make([]groupRow, len(groups))
	for i, g := range groups {
		share := "0%"
		if total.IsPositive() {
			share = g.Total.Div(total).Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
		}
		rows[i] = groupRow{GroupTotal: g, Share: share}
	}
	return rows
}

// handleChart serves /charts/{kind}.png for the filters in the query.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok {
		http.NotFound(w, r)
		return
	}
	kind, err := charts.ParseKind(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	records, err := s.ledger.Load(ctx)
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Chart load failed", log.FieldChart, string(kind), log.FieldError, err)
		http.Error(w, MsgLoadFailed, http.StatusServiceUnavailable)
		return
	}

	filtered := report.Filter(records, ParseFilterParams(r.URL.Query()).Criteria())
	img, err := s.charts.Render(kind, filtered)
	switch {
	case errors.Is(err, charts.ErrNoData):
		http.Error(w, "Sin datos para el gráfico.", http.StatusNotFound)
		return
	case err != nil:
		s.requestLogger(r).WithComponent(log.ComponentCharts).ErrorContext(r.Context(), "Chart render failed",
			log.FieldChart, string(kind),
			log.FieldError, err)
		http.Error(w, "No se pudo generar el gráfico.", http.StatusInternalServerError)
		return
	}

	NewHTMXResponse().
		Header("Content-Type", "image/png").
		Header("Cache-Control", "no-store").
		Body(img).
		Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady verifies the store header binds to the ledger schema.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.storeTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{"templates": "ok", "ai": "disabled"}
	if s.assistant.Enabled() {
		checks["ai"] = "enabled"
	}
	if err := s.ledger.CheckSchema(ctx); err != nil {
		s.requestLogger(r).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		checks["store"] = "failed: " + string(core.KindOf(err))
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics reports security and cache counters in plain text.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	hits, misses := s.assistant.Cache().Stats()
	var b strings.Builder
	fmt.Fprintf(&b, "# Security\n")
	fmt.Fprintf(&b, "suspicious_requests_total %d\n", s.detector.Suspicious())
	fmt.Fprintf(&b, "rate_limit_hits_total %d\n", s.limiter.Hits())
	fmt.Fprintf(&b, "rate_limit_active_clients %d\n", s.limiter.ActiveClients())
	fmt.Fprintf(&b, "# Suggestion cache\n")
	fmt.Fprintf(&b, "suggestion_cache_entries %d\n", s.assistant.Cache().Size())
	fmt.Fprintf(&b, "suggestion_cache_hits_total %d\n", hits)
	fmt.Fprintf(&b, "suggestion_cache_misses_total %d\n", misses)
	fmt.Fprintf(&b, "uptime_seconds %d\n", int64(time.Since(s.started).Seconds()))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
