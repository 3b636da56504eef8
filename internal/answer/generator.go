package answer

import (
	"context"

	"github.com/bigdipper/sales-assistant/internal/catalog"
	"github.com/bigdipper/sales-assistant/internal/observability"
)

// Answer strategies.
const (
	StrategyModel = "model"
	StrategyRules = "rules"
)

// Completer is the hosted generation surface the generator needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Enabled() bool
}

// Result is a generated answer plus the strategy that produced it.
type Result struct {
	Text     string
	Strategy string
}

// Generator produces grounded answers. Model-backed first; any call
// failure or empty output falls through to the rule strategy, never to an
// error surfaced to the user.
type Generator struct {
	completer Completer
	budget    *TokenBudget
	logger    *observability.Logger
}

// NewGenerator creates an answer generator. completer may be nil to force
// the rule strategy.
func NewGenerator(completer Completer, budget *TokenBudget, logger *observability.Logger) *Generator {
	if budget == nil {
		budget = NewTokenBudget(0)
	}
	return &Generator{
		completer: completer,
		budget:    budget,
		logger:    logger,
	}
}

// Answer generates an answer to question grounded in products and their
// datasheet excerpts. Pure apart from the outbound generation call.
func (g *Generator) Answer(ctx context.Context, question string, products []catalog.Record, sheets map[string]string) Result {
	if len(products) == 0 {
		return Result{Text: noSheetAnswer, Strategy: StrategyRules}
	}

	if g.completer != nil && g.completer.Enabled() {
		prompt := g.budget.Truncate(BuildGroundingContext(question, products, sheets))

		text, err := g.completer.Complete(ctx, salesSystemPrompt, prompt)
		if err == nil {
			return Result{Text: text, Strategy: StrategyModel}
		}
		g.logger.Warn().Err(err).Msg("generation call failed, falling back to rules")
	}

	return Result{Text: RuleAnswer(question, products[0]), Strategy: StrategyRules}
}
