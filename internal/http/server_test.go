package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"finanzas/internal/ai"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
	ports "finanzas/internal/sheets"
	"finanzas/internal/sheets/memory"
)

var testTaxonomy = core.Taxonomy{
	People:       []string{"Ana", "Luis"},
	Categories:   []string{"Comida", "Transporte", "Otro"},
	ExpenseTypes: []string{"Fijo Mensual", "Variable Diario"},
	Fallback:     "Otro",
}

type fakeProvider struct {
	answer string
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(context.Context, ai.Prompt) (string, error) {
	f.calls++
	return f.answer, f.err
}

// brokenStore fails every read, like an unreachable spreadsheet.
type brokenStore struct{ *memory.Store }

func (brokenStore) LoadAll(context.Context) ([]core.Expense, error) {
	return nil, core.Communication("sheets read", errors.New("connection refused"))
}

func (brokenStore) Header(context.Context) ([]string, error) {
	return nil, core.Communication("sheets header", errors.New("connection refused"))
}

type testEnv struct {
	server *Server
	store  *memory.Store
}

func seedRecords() []core.Expense {
	return []core.Expense{
		{ID: "e1", Date: core.NewDate(2024, 5, 1), Amount: decimal.RequireFromString("12.50"), Description: "Pan integral", Person: "Ana", Category: "Comida", Subcategory: "Panadería"},
		{ID: "e2", Date: core.NewDate(2024, 5, 3), Amount: decimal.RequireFromString("30"), Description: "Taxi nocturno", Person: "Luis", Category: "Transporte", ExpenseType: "Variable Diario"},
	}
}

func newTestEnv(t *testing.T, provider ai.Provider, opts Options, seed ...core.Expense) testEnv {
	t.Helper()
	store, err := memory.New(ports.SchemaV1.Header())
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	for _, e := range seed {
		if err := store.Append(context.Background(), e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return testEnv{server: newServer(t, store, provider, opts), store: store}
}

func newServer(t *testing.T, store ports.LedgerStore, provider ai.Provider, opts Options) *Server {
	t.Helper()
	svc := ledger.NewService(store, testTaxonomy)
	assistant := ai.NewAssistant(provider, ai.Settings{Fallback: testTaxonomy.Fallback})
	s, err := NewServer(opts, svc, assistant, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func (e testEnv) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	return serve(e.server, method, target, form)
}

func serve(s *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, req)
	return w
}

func assertContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("body does not contain %q", want)
		}
	}
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t, nil, Options{}, seedRecords()...)

	w := env.do(http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", w.Code)
	}
	assertContains(t, w.Body.String(),
		"Registrar gasto",
		"Pan integral", "Taxi nocturno",
		"S/ 42.50", "S/ 21.25",
		"/charts/categories.png",
		"La funcionalidad de IA no está disponible",
		`name="from" value="2024-05-01" min="2024-05-01" max="2024-05-03"`,
		"<td>(sin valor)</td><td class=\"num\">S/ 12.50</td>",
	)
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}

	if w := env.do(http.MethodGet, "/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want 404", w.Code)
	}
}

func TestDashboardFilters(t *testing.T) {
	env := newTestEnv(t, nil, Options{}, seedRecords()...)

	tests := []struct {
		name    string
		query   string
		want    []string
		notWant []string
	}{
		{"all", "", []string{"Pan integral", "Taxi nocturno"}, nil},
		{"person", "person=Ana", []string{"Pan integral", "S/ 12.50"}, []string{"Taxi nocturno"}},
		{"category", "category=Transporte", []string{"Taxi nocturno"}, []string{"Pan integral"}},
		{"date range", "from=2024-05-02&to=2024-05-31", []string{"Taxi nocturno"}, []string{"Pan integral"}},
		{"half open range is ignored", "from=2024-05-02", []string{"Pan integral", "Taxi nocturno"}, nil},
		{"chart links keep filters", "person=Luis", []string{"/charts/daily.png?person=Luis"}, []string{"/charts/subcategories.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodGet, "/ui/dashboard?"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			body := w.Body.String()
			assertContains(t, body, tt.want...)
			for _, nw := range tt.notWant {
				if strings.Contains(body, nw) {
					t.Errorf("body unexpectedly contains %q", nw)
				}
			}
		})
	}

	w := env.do(http.MethodGet, "/ui/dashboard?person=Nadie", nil)
	assertContains(t, w.Body.String(), "No hay gastos para los filtros seleccionados.")
}

func TestDashboardStoreFailure(t *testing.T) {
	store, _ := memory.New(ports.SchemaV1.Header())
	s := newServer(t, brokenStore{store}, nil, Options{})

	w := serve(s, http.MethodGet, "/ui/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	assertContains(t, w.Body.String(), MsgLoadFailed)
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Error("driver error leaked to the page")
	}

	if w := serve(s, http.MethodGet, "/readyz", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", w.Code)
	}
	if w := serve(s, http.MethodGet, "/charts/daily.png", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("chart status = %d, want 503", w.Code)
	}
}

func TestCreateExpense(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	form := url.Values{
		"date":        {"2024-05-03"},
		"amount":      {"12,50"},
		"description": {"Pan"},
		"person":      {"Ana"},
		"category":    {"Comida"},
	}
	w := env.do(http.MethodPost, "/expenses", form)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	assertContains(t, w.Body.String(), ledger.MsgCreated)
	assertContains(t, w.Header().Get("HX-Trigger"), EventExpenseChanged)
	if rows := env.store.Rows(); len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
}

func TestCreateExpenseRejected(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(url.Values)
		wantMsg string
	}{
		{"zero amount", func(v url.Values) { v.Set("amount", "0") }, "El monto debe ser mayor que cero."},
		{"unparseable amount", func(v url.Values) { v.Set("amount", "doce") }, "El monto debe ser mayor que cero."},
		{"empty description", func(v url.Values) { v.Set("description", "  ") }, "La descripción no puede estar vacía."},
		{"unknown person", func(v url.Values) { v.Set("person", "Pedro") }, "Selecciona una persona válida."},
		{"bad date", func(v url.Values) { v.Set("date", "mañana") }, "La fecha no es válida."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, Options{})
			form := url.Values{
				"amount":      {"10"},
				"description": {"Cena especial"},
				"person":      {"Luis"},
				"category":    {"Comida"},
				"notes":       {"cumpleaños"},
			}
			tt.mutate(form)

			w := env.do(http.MethodPost, "/expenses", form)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", w.Code)
			}
			assertContains(t, w.Body.String(), tt.wantMsg, "cumpleaños")
			if w.Header().Get("HX-Trigger") != "" {
				t.Error("rejected create must not trigger a reload")
			}
			if rows := env.store.Rows(); len(rows) != 0 {
				t.Errorf("rows = %d, want 0", len(rows))
			}
		})
	}
}

func TestSuggestCategory(t *testing.T) {
	form := url.Values{"description": {"Taxi al aeropuerto"}, "amount": {"25"}, "person": {"Luis"}}

	t.Run("suggested", func(t *testing.T) {
		env := newTestEnv(t, &fakeProvider{answer: " transporte."}, Options{})
		w := env.do(http.MethodPost, "/expenses/suggest", form)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		assertContains(t, w.Body.String(),
			`<option value="Transporte" selected>`,
			"Categoría sugerida: Transporte.",
			`value="Taxi al aeropuerto"`,
			`value="25"`,
		)
		if len(env.store.Rows()) != 0 {
			t.Error("suggestion must not write")
		}
	})

	t.Run("unknown answer falls back", func(t *testing.T) {
		env := newTestEnv(t, &fakeProvider{answer: "Viajes"}, Options{})
		w := env.do(http.MethodPost, "/expenses/suggest", form)
		assertContains(t, w.Body.String(), `<option value="Otro" selected>`, "No se pudo sugerir una categoría.")
	})

	t.Run("provider error falls back", func(t *testing.T) {
		env := newTestEnv(t, &fakeProvider{err: errors.New("timeout")}, Options{})
		w := env.do(http.MethodPost, "/expenses/suggest", form)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		assertContains(t, w.Body.String(), `<option value="Otro" selected>`)
	})

	t.Run("disabled", func(t *testing.T) {
		env := newTestEnv(t, nil, Options{})
		w := env.do(http.MethodPost, "/expenses/suggest", form)
		assertContains(t, w.Body.String(), MsgSuggestDisabled, `value="Taxi al aeropuerto"`)
	})

	t.Run("needs description", func(t *testing.T) {
		p := &fakeProvider{answer: "Comida"}
		env := newTestEnv(t, p, Options{})
		w := env.do(http.MethodPost, "/expenses/suggest", url.Values{"amount": {"3"}})
		assertContains(t, w.Body.String(), MsgSuggestNeedsDescription)
		if p.calls != 0 {
			t.Errorf("provider called %d times", p.calls)
		}
	})
}

func TestUpdateExpense(t *testing.T) {
	env := newTestEnv(t, nil, Options{}, seedRecords()...)

	w := env.do(http.MethodPost, "/expenses/e1", url.Values{"amount": {"20"}, "notes": {"con queso"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	assertContains(t, w.Body.String(), ledger.MsgUpdated)
	assertContains(t, w.Header().Get("HX-Trigger"), EventExpenseChanged)

	records, err := env.store.LoadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !records[0].Amount.Equal(decimal.NewFromInt(20)) || records[0].Notes != "con queso" || records[0].Description != "Pan integral" {
		t.Errorf("record after update = %+v", records[0])
	}

	if w := env.do(http.MethodPost, "/expenses/e1", url.Values{"amount": {"-3"}}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative amount status = %d, want 422", w.Code)
	}
	w = env.do(http.MethodPost, "/expenses/e1", url.Values{"category": {"NoExiste"}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown category status = %d, want 422", w.Code)
	}
	assertContains(t, w.Body.String(), "Selecciona una categoría válida.")
	if w := env.do(http.MethodPost, "/expenses/e1", url.Values{"person": {""}}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank person status = %d, want 422", w.Code)
	}
	w = env.do(http.MethodPost, "/expenses/missing", url.Values{"amount": {"5"}})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", w.Code)
	}
	assertContains(t, w.Body.String(), ledger.MsgNotFound)
}

func TestDeleteExpense(t *testing.T) {
	env := newTestEnv(t, nil, Options{}, seedRecords()...)

	if w := env.do(http.MethodDelete, "/expenses/e1", nil); w.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/expenses/e2/delete", url.Values{}); w.Code != http.StatusOK {
		t.Fatalf("POST delete status = %d", w.Code)
	}
	if rows := env.store.Rows(); len(rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(rows))
	}

	w := env.do(http.MethodDelete, "/expenses/e1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
	assertContains(t, w.Body.String(), ledger.MsgNotFound)
}

func TestCharts(t *testing.T) {
	env := newTestEnv(t, nil, Options{}, seedRecords()...)

	tests := []struct {
		target string
		want   int
	}{
		{"/charts/categories.png", http.StatusOK},
		{"/charts/daily.png?person=Ana", http.StatusOK},
		{"/charts/people.png", http.StatusOK},
		{"/charts/subcategories.png", http.StatusOK},
		{"/charts/radar.png", http.StatusNotFound},
		{"/charts/categories", http.StatusNotFound},
		{"/charts/categories.png?person=Nadie", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := env.do(http.MethodGet, tt.target, nil)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && w.Header().Get("Content-Type") != "image/png" {
				t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestAIEndpoints(t *testing.T) {
	p := &fakeProvider{answer: "Gastaron sobre todo en transporte.\n\nConviene planificar."}
	env := newTestEnv(t, p, Options{}, seedRecords()...)

	for _, target := range []string{"/ai/summary", "/ai/insights"} {
		w := env.do(http.MethodPost, target, url.Values{"person": {"Luis"}})
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", target, w.Code)
		}
		assertContains(t, w.Body.String(), "<p>Gastaron sobre todo en transporte.</p>", "<p>Conviene planificar.</p>")
	}

	w := env.do(http.MethodPost, "/ai/ask", url.Values{"question": {"¿Cuánto gastamos?"}})
	assertContains(t, w.Body.String(), "¿Cuánto gastamos?", "Conviene planificar.")

	calls := p.calls
	w = env.do(http.MethodPost, "/ai/summary", url.Values{"person": {"Nadie"}})
	assertContains(t, w.Body.String(), ai.MsgNoData)
	if p.calls != calls {
		t.Error("empty view must not call the provider")
	}

	disabled := newTestEnv(t, nil, Options{}, seedRecords()...)
	w = disabled.do(http.MethodPost, "/ai/summary", url.Values{})
	assertContains(t, w.Body.String(), ai.MsgDisabled)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	w := env.do(http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", w.Code, w.Body.String())
	}
	w = env.do(http.MethodGet, "/readyz", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"store":"ok"`) {
		t.Errorf("readyz = %d %s", w.Code, w.Body.String())
	}
	w = env.do(http.MethodGet, "/metrics", nil)
	assertContains(t, w.Body.String(), "rate_limit_hits_total 0", "suggestion_cache_entries 0")
}

func TestRateLimitOnMutations(t *testing.T) {
	env := newTestEnv(t, nil, Options{RateLimitPerMinute: 1}, seedRecords()...)

	env.do(http.MethodPost, "/expenses", url.Values{"amount": {"1"}})
	w := env.do(http.MethodPost, "/expenses", url.Values{"amount": {"1"}})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	if w := env.do(http.MethodGet, "/ui/dashboard", nil); w.Code != http.StatusOK {
		t.Errorf("GET must not be rate limited, status = %d", w.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	w := env.do(http.MethodGet, "/static/style.css", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Cache-Control"), "public, max-age=3600") {
		t.Errorf("Cache-Control = %q", w.Header().Get("Cache-Control"))
	}
}

func TestNewServerRejectsBadTrustedProxy(t *testing.T) {
	store, _ := memory.New(ports.SchemaV1.Header())
	svc := ledger.NewService(store, testTaxonomy)
	if _, err := NewServer(Options{TrustedProxies: []string{"not-a-cidr"}}, svc, nil, nil); !errors.Is(err, core.ErrConfiguration) {
		t.Errorf("error = %v, want configuration error", err)
	}
}
