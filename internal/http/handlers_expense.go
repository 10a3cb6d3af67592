package http

import (
	"fmt"
	"net/http"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/log"
)

// formView feeds the create form partial. Every submitted value travels
// back in Form so nothing is kept between requests.
type formView struct {
	Form     ExpenseForm
	Taxonomy core.Taxonomy
	Outcome  *ledger.Outcome
	// Notice reports the outcome of a category suggestion.
	Notice    string
	Fallback  bool
	AIEnabled bool
	Today     string
}

func (s *Server) newFormView(form ExpenseForm) formView {
	return formView{
		Form:      form,
		Taxonomy:  s.ledger.Taxonomy(),
		AIEnabled: s.assistant.Enabled(),
		Today:     core.DateOf(time.Now()).String(),
	}
}

// handleCreateExpense validates and appends a new expense. Success resets the
// form and tells the dashboard to reload; failure re-renders the form with
// the submitted values and an inline message.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.requestLogger(r).WarnContext(r.Context(), "Parse form error", log.FieldError, err)
		BadRequestError(msgBadForm).Write(w)
		return
	}
	form := ParseExpenseForm(r.PostForm)

	var id string
	draft, err := form.Draft()
	if err == nil {
		ctx, cancel := s.storeContext(r)
		id, err = s.ledger.Create(ctx, draft)
		cancel()
	}
	outcome := ledger.NewOutcome(ledger.OpCreate, id, err)

	if !outcome.OK {
		s.requestLogger(r).InfoContext(r.Context(), "Expense rejected",
			log.FieldOperation, "create",
			log.FieldErrorKind, string(outcome.Kind),
			log.FieldError, err)
		view := s.newFormView(form)
		view.Outcome = &outcome
		s.execute(r, statusFor(outcome.Kind), "form", view).Write(w)
		return
	}

	// Keep the person so consecutive entries by the same member are quick.
	view := s.newFormView(ExpenseForm{Person: form.Person})
	view.Outcome = &outcome
	s.execute(r, http.StatusOK, "form", view).
		TriggerExpenseChanged(id).
		TriggerFormReset().
		TriggerSuccessNotification(outcome.Message).
		Write(w)
}

// handleSuggestCategory fills the category from the description and echoes
// the rest of the form unchanged.
func (s *Server) handleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError(msgBadForm).Write(w)
		return
	}
	form := ParseExpenseForm(r.PostForm)
	view := s.newFormView(form)

	switch {
	case !s.assistant.Enabled():
		view.Notice = MsgSuggestDisabled
		view.Fallback = true
	case form.Description == "":
		view.Notice = MsgSuggestNeedsDescription
		view.Fallback = true
	default:
		tax := s.ledger.Taxonomy()
		suggestion := s.assistant.SuggestCategory(r.Context(), form.Description, tax.Categories)
		view.Form.Category = suggestion.Category
		view.Fallback = suggestion.Fallback
		if suggestion.Fallback {
			view.Notice = fmt.Sprintf(MsgSuggestFallback, suggestion.Category)
		} else {
			view.Notice = fmt.Sprintf(MsgSuggested, suggestion.Category)
		}
	}
	s.execute(r, http.StatusOK, "form", view).Write(w)
}

// Suggestion notices.
const (
	MsgSuggested               = "Categoría sugerida: %s."
	MsgSuggestFallback         = "No se pudo sugerir una categoría. Se usará '%s'."
	MsgSuggestDisabled         = "La sugerencia con IA no está disponible. Revisa la configuración de la API Key."
	MsgSuggestNeedsDescription = "Escribe una descripción para sugerir la categoría."
)

// handleUpdateExpense overwrites the submitted fields of one record.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError(msgBadForm).Write(w)
		return
	}
	id := r.PathValue("id")
	ctx, cancel := s.storeContext(r)
	defer cancel()
	err := s.ledger.Update(ctx, id, ParseEditFields(r.PostForm))
	s.writeOutcome(w, r, ledger.NewOutcome(ledger.OpUpdate, id, err), err)
}

// handleDeleteExpense removes one record. It serves both the DELETE verb and
// the POST fallback used by plain forms.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx, cancel := s.storeContext(r)
	defer cancel()
	err := s.ledger.Delete(ctx, id)
	s.writeOutcome(w, r, ledger.NewOutcome(ledger.OpDelete, id, err), err)
}

func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, outcome ledger.Outcome, err error) {
	if !outcome.OK {
		s.requestLogger(r).InfoContext(r.Context(), "Expense mutation failed",
			log.FieldExpenseID, outcome.ID,
			log.FieldErrorKind, string(outcome.Kind),
			log.FieldError, err)
		s.execute(r, statusFor(outcome.Kind), "outcome", outcome).Write(w)
		return
	}
	s.execute(r, http.StatusOK, "outcome", outcome).
		TriggerExpenseChanged(outcome.ID).
		TriggerSuccessNotification(outcome.Message).
		Write(w)
}
