package ai

import (
	"fmt"
	"strings"

	"finanzas/internal/core"
	"finanzas/internal/report"
)

// Static replies shown instead of a model answer.
const (
	MsgDisabled    = "La funcionalidad de IA no está disponible. Revisa la configuración de la API Key."
	MsgNoData      = "No hay datos suficientes en el período seleccionado para generar un resumen."
	MsgFailed      = "Ocurrió un error al intentar generar el resumen. Por favor, inténtalo de nuevo más tarde."
	MsgEmptyAnswer = "La IA no devolvió ninguna respuesta. Inténtalo de nuevo."
	MsgNoQuestion  = "Escribe una pregunta sobre tus gastos."
)

const advisorSystem = "Eres un asesor financiero amigable que ayuda a una pareja a entender sus gastos del hogar. Responde siempre en español."

func suggestPrompt(description string, categories []string, fallback string) string {
	return fmt.Sprintf(`Dada la siguiente descripción de un gasto, clasifícalo en una de las categorías listadas.
Responde únicamente con el nombre exacto de la categoría, sin explicaciones ni puntuación.

Descripción: "%s"
Categorías: %s

Si ninguna categoría parece apropiada, responde con '%s'.`, description, strings.Join(categories, ", "), fallback)
}

func summaryPrompt(d report.Digest, currency string) string {
	return fmt.Sprintf(`Analiza los siguientes datos de gastos:

%s
Escribe un resumen breve (máximo 3 párrafos) dirigido a ellos como "ustedes". Incluye un punto positivo, un área a mejorar y un consejo práctico.`, describeDigest(d, currency))
}

func insightsPrompt(d report.Digest, currency string, n int) string {
	return fmt.Sprintf(`Analiza los siguientes datos de gastos:

%s
Identifica exactamente %d patrones o hallazgos relevantes en estos datos. Responde con una lista numerada, una línea por hallazgo, sin introducción.`, describeDigest(d, currency), n)
}

func askPrompt(d report.Digest, currency, question string) string {
	return fmt.Sprintf(`Estos son los datos agregados de gastos disponibles:

%s
Responde la siguiente pregunta usando solo estos datos. Si los datos no bastan para responder, dilo claramente.

Pregunta: %s`, describeDigest(d, currency), question)
}

// describeDigest renders aggregates only; individual records never reach
// the model.
func describeDigest(d report.Digest, currency string) string {
	var b strings.Builder
	if !d.From.IsZero() {
		fmt.Fprintf(&b, "Período: %s a %s\n", d.From, d.To)
	}
	if d.Person != "" {
		fmt.Fprintf(&b, "Persona: %s\n", d.Person)
	}
	fmt.Fprintf(&b, "Gasto total: %s\n", core.FormatAmount(d.Summary.Total, currency))
	fmt.Fprintf(&b, "Número de gastos: %d\n", d.Summary.Count)
	fmt.Fprintf(&b, "Gasto promedio: %s\n", core.FormatAmount(d.Summary.Average, currency))
	if d.TopCategory != "" {
		fmt.Fprintf(&b, "Categoría principal: %s\n", d.TopCategory)
	}
	writeGroups(&b, "Gasto por categoría", d.Categories, currency)
	writeGroups(&b, "Gasto por persona", d.People, currency)
	writeGroups(&b, "Gasto por tipo", d.Types, currency)
	return b.String()
}

func writeGroups(b *strings.Builder, title string, groups []report.GroupTotal, currency string) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, g := range groups {
		key := g.Key
		if key == "" {
			key = "(sin valor)"
		}
		fmt.Fprintf(b, "- %s: %s (%d)\n", key, core.FormatAmount(g.Total, currency), g.Count)
	}
}
