// Package answer composes grounded answers to sales questions, either via a
// hosted model constrained to the official sheet or via a rule-based
// fallback over the same text.
package answer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/bigdipper/sales-assistant/internal/catalog"
)

// salesSystemPrompt is the fixed system instruction. A fact absent from the
// sheet is stated as unconfirmed, never asserted.
const salesSystemPrompt = `Sos un Asistente Técnico-Comercial para vendedores de Big Dipper (Argentina).
Tu objetivo: ayudar a responder consultas de clientes rápido y bien, SIN inventar datos técnicos.

Reglas:
- Usá SIEMPRE la "ficha oficial" (descripciones, datasheet, links) como única base fáctica.
- Si el usuario pregunta algo que NO está explícito en la ficha, NO lo afirmes como hecho.
  Decí explícitamente que no está confirmado, qué habría que confirmar, y sugerí el próximo paso.
- Nunca presentes un dato no confirmado como verificado.
- Si hay múltiples productos en la consulta, compará y respondé compatibilidad de forma prudente.
- Estilo: español argentino, claro, directo, orientado a cerrar venta (sin humo).
- Formato sugerido:
  1) Respuesta corta (sí/no o recomendación)
  2) Sustento con 2-6 bullets basados en ficha
  3) Si faltan datos: qué confirmar / disclaimer
  4) Próximo paso (pregunta al cliente o sugerencia de alternativa)`

// maxLinksPerProduct bounds how many related links enter the context.
const maxLinksPerProduct = 4

// BuildGroundingContext renders the labeled sheet blocks that form the sole
// permitted factual source for the generation call.
func BuildGroundingContext(question string, products []catalog.Record, sheets map[string]string) string {
	var lines []string
	lines = append(lines, "CONSULTA DEL VENDEDOR/CLIENTE:")
	lines = append(lines, strings.TrimSpace(question))
	lines = append(lines, "")
	lines = append(lines, "FICHAS OFICIALES DISPONIBLES (NO INVENTAR FUERA DE ESTO):")

	for _, p := range products {
		lines = append(lines, fmt.Sprintf("\n---\nProducto: %s (ProductId: %d)", p.Code, p.ID))
		lines = append(lines, "Descripción corta: "+p.DescriptionShort)
		lines = append(lines, "Descripción larga:")
		lines = append(lines, p.DescriptionLong)
		if p.DataSheet != "" {
			lines = append(lines, "Datasheet: "+p.DataSheet)
		}
		if sheet := sheets[p.Code]; sheet != "" {
			lines = append(lines, "Extracto del datasheet:")
			lines = append(lines, sheet)
		}
		if len(p.Links) > 0 {
			lines = append(lines, "Links:")
			for i, link := range p.Links {
				if i >= maxLinksPerProduct {
					break
				}
				lines = append(lines, "- "+link)
			}
		}
	}

	return strings.Join(lines, "\n")
}

// TokenBudget caps prompt text by token count.
type TokenBudget struct {
	enc *tiktoken.Tiktoken
	max int
}

// NewTokenBudget creates a budget. When the encoder cannot be initialized
// (offline environments), counting falls back to a rune heuristic.
func NewTokenBudget(max int) *TokenBudget {
	if max <= 0 {
		max = 6000
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		enc = nil
	}
	return &TokenBudget{enc: enc, max: max}
}

// Truncate cuts text to the budget, preserving a leading slice.
func (b *TokenBudget) Truncate(text string) string {
	if b.enc == nil {
		// Rough heuristic: ~4 runes per token.
		limit := b.max * 4
		runes := []rune(text)
		if len(runes) <= limit {
			return text
		}
		return string(runes[:limit])
	}

	tokens := b.enc.Encode(text, nil, nil)
	if len(tokens) <= b.max {
		return text
	}
	return b.enc.Decode(tokens[:b.max])
}
