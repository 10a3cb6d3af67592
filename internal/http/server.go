package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/ai"
	"finanzas/internal/charts"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	appweb "finanzas/web"
)

const (
	defaultStoreTimeout = 15 * time.Second
	defaultManageLimit  = 20
	staticMaxAge        = 3600

	msgRenderFailed = "No se pudo mostrar la página."
	msgBadForm      = "Formato de solicitud inválido."
	msgRateLimited  = "Demasiadas solicitudes. Inténtalo de nuevo en un minuto."
)

// Options tunes the dashboard server.
type Options struct {
	Addr string
	// Currency prefixes every rendered amount.
	Currency string
	// ManageRecentLimit caps the rows offered for edit and delete.
	ManageRecentLimit int
	// StoreTimeout bounds every ledger read and write.
	StoreTimeout       time.Duration
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	templates *template.Template
	ledger    *ledger.Service
	assistant *ai.Assistant
	charts    *charts.Renderer
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	logger    *log.Logger

	currency     string
	manageLimit  int
	storeTimeout time.Duration
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(opts Options, svc *ledger.Service, assistant *ai.Assistant, renderer *charts.Renderer) (*Server, error) {
	if opts.Currency == "" {
		opts.Currency = core.DefaultCurrency
	}
	if opts.ManageRecentLimit <= 0 {
		opts.ManageRecentLimit = defaultManageLimit
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if assistant == nil {
		assistant = ai.NewAssistant(nil, ai.Settings{Fallback: svc.Taxonomy().FallbackCategory()})
	}
	if renderer == nil {
		renderer = charts.New(opts.Currency)
	}

	limitCfg := ratelimit.DefaultConfig()
	limitCfg.RequestsPerMinute = opts.RateLimitPerMinute

	s := &Server{
		ledger:       svc,
		assistant:    assistant,
		charts:       renderer,
		limiter:      ratelimit.NewLimiter(limitCfg),
		detector:     security.NewDetector(),
		logger:       log.NewComponentLogger(log.ComponentHTTP),
		currency:     opts.Currency,
		manageLimit:  opts.ManageRecentLimit,
		storeTimeout: opts.StoreTimeout,
		started:      time.Now(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.limiter.Stop()
			return nil, core.Misconfigured("TRUSTED_PROXIES", err)
		}
	}

	t, err := template.New("").Funcs(s.templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.limiter.Stop()
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /charts/{file}", s.handleChart)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /expenses/suggest", s.handleSuggestCategory)
	mux.HandleFunc("POST /expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("POST /expenses/{id}/delete", s.handleDeleteExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("POST /ai/summary", s.handleAISummary)
	mux.HandleFunc("POST /ai/insights", s.handleAIInsights)
	mux.HandleFunc("POST /ai/ask", s.handleAIAsk)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, msgRateLimited).Write(w)
	})

	var handler http.Handler = mux
	handler = limited(handler)
	handler = headers.Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = log.RequestLogger(s.logger, trace.FromRequest, s.detector.ExtractClientIP)(handler)
	handler = trace.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Shutdown stops the rate limiter janitor and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// storeContext bounds a ledger call made on behalf of r.
func (s *Server) storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.storeTimeout)
}

// requestLogger returns the request-scoped logger set by the logging
// middleware.
func (s *Server) requestLogger(r *http.Request) *log.Logger {
	return log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
}

// execute renders template name into a response with the given status. A
// template failure becomes a 500.
func (s *Server) execute(r *http.Request, status int, name string, data any) *HTMXResponseBuilder {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.requestLogger(r).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name)
		return InternalServerError(msgRenderFailed)
	}
	return NewHTMXResponse().Status(status).BodyHTML(buf.String())
}

// statusFor maps a mutation failure to its response status.
func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindNone:
		return http.StatusOK
	case core.KindInvalidInput:
		return http.StatusUnprocessableEntity
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConfiguration:
		return http.StatusServiceUnavailable
	case core.KindCommunication:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": func(d decimal.Decimal) string { return core.FormatAmount(d, s.currency) },
		"date":  func(d core.Date) string { return d.String() },
		"label": func(key string) string {
			if key == "" {
				return "(sin valor)"
			}
			return key
		},
		"paragraphs": paragraphs,
		"dict":       dict,
	}
}

// dict builds a map from alternating keys and values so a partial can take
// more than one argument.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// paragraphs splits model output on blank lines.
func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
