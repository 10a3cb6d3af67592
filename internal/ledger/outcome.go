package ledger

import (
	"errors"

	"finanzas/internal/core"
)

// User-facing messages.
const (
	MsgCreated       = "Gasto registrado correctamente."
	MsgUpdated       = "Gasto actualizado correctamente."
	MsgDeleted       = "Gasto eliminado correctamente."
	MsgSaveFailed    = "No se pudo guardar el gasto. Inténtalo de nuevo más tarde."
	MsgUpdateFailed  = "No se pudo actualizar el gasto. Inténtalo de nuevo más tarde."
	MsgDeleteFailed  = "No se pudo eliminar el gasto. Inténtalo de nuevo más tarde."
	MsgNotFound      = "No se encontró el gasto indicado."
	MsgConfiguration = "La hoja de gastos no está configurada correctamente."
)

var fieldMessages = map[core.Field]string{
	core.FieldDescription: "La descripción no puede estar vacía.",
	core.FieldAmount:      "El monto debe ser mayor que cero.",
	core.FieldDate:        "La fecha no es válida.",
	core.FieldPerson:      "Selecciona una persona válida.",
	core.FieldCategory:    "Selecciona una categoría válida.",
	core.FieldExpenseType: "Selecciona un tipo de gasto válido.",
	core.FieldID:          "Falta el identificador del gasto.",
}

// Outcome is the success flag and message shown inline after a mutation.
type Outcome struct {
	OK      bool
	Message string
	Kind    core.Kind
	ID      string
}

// Op selects the generic failure wording.
type Op int

const (
	OpCreate Op = iota
	OpUpdate
	OpDelete
)

// NewOutcome converts the result of a mutation into its user-facing form.
// Validation and not-found errors are explained; anything else gets a
// generic message so driver details never reach the page.
func NewOutcome(op Op, id string, err error) Outcome {
	if err == nil {
		msg := MsgCreated
		switch op {
		case OpUpdate:
			msg = MsgUpdated
		case OpDelete:
			msg = MsgDeleted
		}
		return Outcome{OK: true, Message: msg, ID: id}
	}

	kind := core.KindOf(err)
	out := Outcome{Kind: kind, ID: id}
	switch kind {
	case core.KindInvalidInput:
		out.Message = "Datos inválidos."
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			if m, ok := fieldMessages[verr.Field]; ok {
				out.Message = m
			}
		}
	case core.KindNotFound:
		out.Message = MsgNotFound
	case core.KindConfiguration:
		out.Message = MsgConfiguration
	default:
		switch op {
		case OpUpdate:
			out.Message = MsgUpdateFailed
		case OpDelete:
			out.Message = MsgDeleteFailed
		default:
			out.Message = MsgSaveFailed
		}
	}
	return out
}
