package http

import (
	"context"
	"net/http"

	"finanzas/internal/ai"
	"finanzas/internal/log"
	"finanzas/internal/report"
)

type aiView struct {
	Title    string
	Question string
	Text     string
}

func (s *Server) handleAISummary(w http.ResponseWriter, r *http.Request) {
	s.handleAI(w, r, "Resumen", func(ctx context.Context, d report.Digest) string {
		return s.assistant.Summary(ctx, d)
	})
}

func (s *Server) handleAIInsights(w http.ResponseWriter, r *http.Request) {
	s.handleAI(w, r, "Patrones", func(ctx context.Context, d report.Digest) string {
		return s.assistant.Insights(ctx, d)
	})
}

func (s *Server) handleAIAsk(w http.ResponseWriter, r *http.Request) {
	s.handleAI(w, r, "Respuesta", func(ctx context.Context, d report.Digest) string {
		return s.assistant.Ask(ctx, d, r.PostFormValue("question"))
	})
}

// handleAI builds a digest of the filtered view and renders the assistant's
// text. The assistant never fails; the worst case is a static message.
func (s *Server) handleAI(w http.ResponseWriter, r *http.Request, title string, run func(context.Context, report.Digest) string) {
	if err := r.ParseForm(); err != nil {
		BadRequestError(msgBadForm).Write(w)
		return
	}
	view := aiView{Title: title, Question: sanitizeInput(r.PostForm.Get("question"))}

	if !s.assistant.Enabled() {
		view.Text = ai.MsgDisabled
		s.execute(r, http.StatusOK, "ai_result", view).Write(w)
		return
	}

	filter := ParseFilterParams(r.Form)
	ctx, cancel := s.storeContext(r)
	records, err := s.ledger.Load(ctx)
	cancel()
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "AI digest load failed", log.FieldError, err)
		view.Text = MsgLoadFailed
		s.execute(r, http.StatusOK, "ai_result", view).Write(w)
		return
	}

	c := filter.Criteria()
	view.Text = run(r.Context(), report.NewDigest(report.Filter(records, c), c))
	s.execute(r, http.StatusOK, "ai_result", view).Write(w)
}
