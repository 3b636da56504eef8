package answer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bigdipper/sales-assistant/internal/catalog"
)

var outdoorCam = catalog.Record{
	ID:               6964,
	Code:             "IPC-4M-FA-ZERO",
	DescriptionShort: "Cámara IP 4MP",
	DescriptionLong:  "Cámara IP 4MP para exterior, carcasa IP67, alimentación PoE 802.3af",
	Price:            99.9,
	Stock:            4,
}

var indoorCam = catalog.Record{
	ID:               77,
	Code:             "LM108-V2",
	DescriptionShort: "Cámara cubo interior",
	DescriptionLong:  "Cámara cubo 2MP para interior, alimentación 12V",
	Price:            35,
	Stock:            10,
}

func TestRuleAnswerHeader(t *testing.T) {
	got := RuleAnswer("precio?", outdoorCam)

	assert.Contains(t, got, "**IPC-4M-FA-ZERO**")
	assert.Contains(t, got, "Cámara IP 4MP")
	assert.Contains(t, got, "Stock: 4")
	assert.Contains(t, got, "Precio: USD 99.90")
}

func TestRuleAnswerGrounding(t *testing.T) {
	t.Run("affirms only what the sheet declares", func(t *testing.T) {
		got := RuleAnswer("sirve para exterior? soporta PoE?", outdoorCam)
		assert.Contains(t, got, "protección IP67")
		assert.Contains(t, got, "802.3AF")
	})

	t.Run("absent facts are reported as unconfirmed, never asserted", func(t *testing.T) {
		got := RuleAnswer("sirve para exterior? soporta PoE?", indoorCam)
		assert.Contains(t, got, "no confirmable desde la ficha (no declara grado de protección IP)")
		assert.Contains(t, got, "no confirmable desde la ficha (no menciona PoE)")
		assert.NotContains(t, got, "Apto para exterior")
	})

	t.Run("matched topics carry the validation disclaimer", func(t *testing.T) {
		got := RuleAnswer("soporta poe?", outdoorCam)
		assert.Contains(t, got, "validarlo contra el datasheet")
	})

	t.Run("no matched topic invites a concrete need", func(t *testing.T) {
		got := RuleAnswer("qué te parece?", outdoorCam)
		assert.Contains(t, got, "qué necesitás resolver")
		assert.NotContains(t, got, "no confirmable")
	})

	t.Run("wifi cue", func(t *testing.T) {
		wifi := indoorCam
		wifi.DescriptionLong = "Cámara cubo 2MP Wi-Fi 2.4GHz"
		got := RuleAnswer("es inalámbrica?", wifi)
		assert.Contains(t, got, "la ficha menciona WI-FI")
	})
}

func TestBuildGroundingContext(t *testing.T) {
	ctx := BuildGroundingContext("sirve para exterior?", []catalog.Record{outdoorCam}, map[string]string{
		"IPC-4M-FA-ZERO": "Grado de protección: IP67\nAlimentación: PoE 802.3af",
	})

	assert.True(t, strings.HasPrefix(ctx, "CONSULTA DEL VENDEDOR/CLIENTE:"))
	assert.Contains(t, ctx, "sirve para exterior?")
	assert.Contains(t, ctx, "NO INVENTAR FUERA DE ESTO")
	assert.Contains(t, ctx, "Producto: IPC-4M-FA-ZERO (ProductId: 6964)")
	assert.Contains(t, ctx, "Extracto del datasheet:")
	assert.Contains(t, ctx, "Grado de protección: IP67")
}

func TestBuildGroundingContextCapsLinks(t *testing.T) {
	linked := outdoorCam
	linked.Links = []string{"l1", "l2", "l3", "l4", "l5", "l6"}

	ctx := BuildGroundingContext("links?", []catalog.Record{linked}, nil)
	assert.Contains(t, ctx, "- l4")
	assert.NotContains(t, ctx, "- l5")
}

func TestTokenBudgetTruncate(t *testing.T) {
	b := NewTokenBudget(10)

	short := "hola"
	assert.Equal(t, short, b.Truncate(short))

	long := strings.Repeat("palabra descripción técnica ", 200)
	cut := b.Truncate(long)
	assert.Less(t, len(cut), len(long))
	assert.True(t, strings.HasPrefix(long, cut))
}
