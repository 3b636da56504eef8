package answer

import (
	"fmt"
	"strings"

	"github.com/bigdipper/sales-assistant/internal/catalog"
)

// noSheetAnswer is returned when no product record is available to ground
// on. Inventing an answer without a sheet is never an option.
const noSheetAnswer = "No tengo ninguna ficha oficial cargada para responder esto. " +
	"Pasame el modelo exacto o la URL del producto y lo busco."

// cue ties a question topic to the sheet tokens that may confirm it. The
// rule strategy only ever affirms a fact whose token appears in the sheet;
// everything else is reported as not confirmable.
type cue struct {
	Topic          string
	QuestionTokens []string
	SheetTokens    []string
	Affirm         string // format string receiving the matched token
	Deny           string
}

var answerCues = []cue{
	{
		Topic:          "exterior",
		QuestionTokens: []string{"exterior", "intemperie", "outdoor", "afuera", "lluvia", "agua"},
		SheetTokens:    []string{"IP69", "IP68", "IP67", "IP66", "IP65"},
		Affirm:         "Apto para exterior: la ficha declara protección %s.",
		Deny:           "Uso en exterior: no confirmable desde la ficha (no declara grado de protección IP).",
	},
	{
		Topic:          "poe",
		QuestionTokens: []string{"poe", "802.3", "power over ethernet"},
		SheetTokens:    []string{"802.3AF", "802.3AT", "POE+", "POE"},
		Affirm:         "Alimentación: la ficha menciona %s.",
		Deny:           "Alimentación PoE: no confirmable desde la ficha (no menciona PoE).",
	},
	{
		Topic:          "wifi",
		QuestionTokens: []string{"wifi", "wi-fi", "inalambric", "inalámbric", "wireless"},
		SheetTokens:    []string{"WI-FI", "WIFI", "WIRELESS", "2.4GHZ", "5GHZ"},
		Affirm:         "Conectividad inalámbrica: la ficha menciona %s.",
		Deny:           "Conectividad inalámbrica: no confirmable desde la ficha.",
	},
	{
		Topic:          "audio",
		QuestionTokens: []string{"audio", "microfono", "micrófono", "sonido"},
		SheetTokens:    []string{"MICRÓFONO", "MICROFONO", "AUDIO"},
		Affirm:         "Audio: la ficha menciona %s.",
		Deny:           "Audio: no confirmable desde la ficha.",
	},
}

// RuleAnswer builds the deterministic fallback answer for the primary
// product. It pattern-matches the long description for the explicit fact
// requested and never asserts anything beyond it.
func RuleAnswer(question string, rec catalog.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**%s**\n\n", rec.Code)
	if rec.DescriptionShort != "" {
		fmt.Fprintf(&b, "- %s\n", rec.DescriptionShort)
	}
	fmt.Fprintf(&b, "- Stock: %d\n", rec.Stock)
	fmt.Fprintf(&b, "- Precio: USD %.2f\n", rec.Price)

	sheet := strings.ToUpper(rec.DescriptionShort + "\n" + rec.DescriptionLong)
	q := strings.ToLower(question)

	matchedTopic := false
	for _, c := range answerCues {
		if !containsAny(q, c.QuestionTokens) {
			continue
		}
		matchedTopic = true
		if token, ok := firstIn(sheet, c.SheetTokens); ok {
			fmt.Fprintf(&b, "- %s\n", fmt.Sprintf(c.Affirm, token))
		} else {
			fmt.Fprintf(&b, "- %s\n", c.Deny)
		}
	}

	if !matchedTopic {
		b.WriteString("\nSi querés, decime **qué necesitás resolver** (uso, ambiente, distancia, compatibilidad) y lo traduzco a una recomendación comercial.")
	} else {
		b.WriteString("\nLo no confirmado conviene validarlo contra el datasheet antes de cerrar la venta.")
	}

	return b.String()
}

func containsAny(haystack string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

// firstIn returns the first sheet token present, preferring the more
// specific tokens listed first.
func firstIn(sheet string, tokens []string) (string, bool) {
	for _, t := range tokens {
		if strings.Contains(sheet, t) {
			return t, true
		}
	}
	return "", false
}
