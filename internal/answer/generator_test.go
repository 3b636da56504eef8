package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdipper/sales-assistant/internal/catalog"
	"github.com/bigdipper/sales-assistant/internal/observability"
)

// stubCompleter scripts the hosted model call.
type stubCompleter struct {
	text    string
	err     error
	enabled bool
	system  string
	user    string
}

func (s *stubCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	s.system = system
	s.user = user
	return s.text, s.err
}

func (s *stubCompleter) Enabled() bool { return s.enabled }

func TestGeneratorAnswer(t *testing.T) {
	products := []catalog.Record{outdoorCam}

	t.Run("model strategy when the call succeeds", func(t *testing.T) {
		completer := &stubCompleter{text: "Sí, es apta para exterior (IP67).", enabled: true}
		g := NewGenerator(completer, nil, observability.Nop())

		res := g.Answer(context.Background(), "sirve para exterior?", products, nil)
		assert.Equal(t, StrategyModel, res.Strategy)
		assert.Equal(t, "Sí, es apta para exterior (IP67).", res.Text)

		// The call is grounded: fixed system prompt plus the sheet context.
		assert.Contains(t, completer.system, "SIN inventar datos técnicos")
		assert.Contains(t, completer.user, "Producto: IPC-4M-FA-ZERO")
	})

	t.Run("call failure falls back to rules", func(t *testing.T) {
		completer := &stubCompleter{err: errors.New("upstream 500"), enabled: true}
		g := NewGenerator(completer, nil, observability.Nop())

		res := g.Answer(context.Background(), "soporta poe?", products, nil)
		assert.Equal(t, StrategyRules, res.Strategy)
		assert.Contains(t, res.Text, "**IPC-4M-FA-ZERO**")
	})

	t.Run("disabled completer never gets called", func(t *testing.T) {
		completer := &stubCompleter{text: "should not appear", enabled: false}
		g := NewGenerator(completer, nil, observability.Nop())

		res := g.Answer(context.Background(), "precio?", products, nil)
		require.Equal(t, StrategyRules, res.Strategy)
		assert.Empty(t, completer.user)
	})

	t.Run("nil completer forces rules", func(t *testing.T) {
		g := NewGenerator(nil, nil, observability.Nop())
		res := g.Answer(context.Background(), "precio?", products, nil)
		assert.Equal(t, StrategyRules, res.Strategy)
	})

	t.Run("no products asks for a reference instead of panicking", func(t *testing.T) {
		completer := &stubCompleter{text: "should not appear", enabled: true}
		g := NewGenerator(completer, nil, observability.Nop())

		res := g.Answer(context.Background(), "precio?", nil, nil)
		assert.Equal(t, StrategyRules, res.Strategy)
		assert.Equal(t, noSheetAnswer, res.Text)
		assert.Empty(t, completer.user)
	})
}
