// Package chat orchestrates a conversation turn: extract, resolve, merge
// with session memory, generate, persist.
package chat

import (
	"context"

	"github.com/bigdipper/sales-assistant/internal/answer"
	"github.com/bigdipper/sales-assistant/internal/catalog"
	"github.com/bigdipper/sales-assistant/internal/extract"
	"github.com/bigdipper/sales-assistant/internal/observability"
	"github.com/bigdipper/sales-assistant/internal/resolver"
	"github.com/bigdipper/sales-assistant/internal/session"
)

// ClarificationMessage is returned when neither the message nor session
// memory yields a product to ground on. Answering without grounding is
// never an option.
const ClarificationMessage = "No pude enganchar ningún producto en tu consulta.\n\n" +
	"Pegame **una URL** tipo `bigdipper.com.ar/products/view/####` " +
	"o el **modelo exacto** (como figura en Big Dipper).\n\n" +
	"Tip: también sirve si pegás el **JSON** de la ficha."

// maxDatasheetFetches bounds datasheet downloads per turn.
const maxDatasheetFetches = 2

// SheetFetcher fetches bounded datasheet text; failures yield "".
type SheetFetcher interface {
	Text(ctx context.Context, url string) string
}

// ResolutionInfo describes how one candidate reference fared, for the
// troubleshooting panel.
type ResolutionInfo struct {
	Query  string `json:"query"`
	Status string `json:"status"`
	Source string `json:"source,omitempty"`
	Code   string `json:"code,omitempty"`
}

// Detection carries what the extractor and resolver saw this turn.
type Detection struct {
	URLs        []extract.URLMatch `json:"urls,omitempty"`
	Codes       []string           `json:"codes,omitempty"`
	PastedJSON  bool               `json:"pastedJson,omitempty"`
	Resolutions []ResolutionInfo   `json:"resolutions,omitempty"`
}

// Reply is the outcome of one conversation turn.
type Reply struct {
	SessionID     string
	Answer        string
	Strategy      string
	Products      []catalog.Record
	UsedMemory    bool
	Clarification bool
	Detection     *Detection
}

// Service runs the conversation loop.
type Service struct {
	sessions  *session.Manager
	resolver  *resolver.Resolver
	generator *answer.Generator
	sheets    SheetFetcher // nil disables datasheet grounding
	logger    *observability.Logger
}

// NewService creates the conversation service.
func NewService(sessions *session.Manager, res *resolver.Resolver, gen *answer.Generator, sheets SheetFetcher, logger *observability.Logger) *Service {
	return &Service{
		sessions:  sessions,
		resolver:  res,
		generator: gen,
		sheets:    sheets,
		logger:    logger,
	}
}

// Sessions exposes the session manager to the surface layers.
func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

// HandleMessage processes one user message to completion. Resolution and
// generation failures degrade to a fallback answer or the clarification
// message; nothing here returns an error to the caller.
func (s *Service) HandleMessage(ctx context.Context, sessionID, text string, debug bool) Reply {
	sess := s.sessions.Get(sessionID)
	log := s.logger.WithSession(sess.ID)

	userTurn := sess.AppendTurn(session.RoleUser, text)
	s.sessions.PersistTurn(sess.ID, userTurn)

	detection := &Detection{}
	products, usedMemory := s.gatherProducts(ctx, sess, text, detection, log)

	reply := Reply{
		SessionID:  sess.ID,
		Products:   products,
		UsedMemory: usedMemory,
	}
	if debug {
		reply.Detection = detection
	}

	if len(products) == 0 {
		reply.Answer = ClarificationMessage
		reply.Clarification = true
	} else {
		result := s.generator.Answer(ctx, text, products, s.fetchSheets(ctx, products))
		reply.Answer = result.Text
		reply.Strategy = result.Strategy
	}

	assistantTurn := sess.AppendTurn(session.RoleAssistant, reply.Answer)
	s.sessions.PersistTurn(sess.ID, assistantTurn)

	log.Info().
		Int("products", len(products)).
		Bool("used_memory", usedMemory).
		Bool("clarification", reply.Clarification).
		Str("strategy", reply.Strategy).
		Msg("turn handled")

	return reply
}

// gatherProducts extracts references from the message and resolves them,
// falling back to the recently discussed products when the message carries
// none.
func (s *Service) gatherProducts(ctx context.Context, sess *session.Memory, text string, detection *Detection, log *observability.Logger) ([]catalog.Record, bool) {
	var outcomes []resolver.Outcome

	// A pasted sheet short-circuits extraction and the network entirely.
	if extract.LooksLikeProductJSON(text) {
		if raw, ok := extract.ParseProductJSON(text); ok {
			detection.PastedJSON = true
			outcomes = append(outcomes, s.resolver.AdoptPasted(ctx, sess, raw))
		}
	}

	if !detection.PastedJSON {
		detection.URLs = extract.ExtractURLs(text)
		detection.Codes = extract.ExtractCodes(text)

		// URLs first: a direct id reference beats a heuristic code match.
		for _, u := range detection.URLs {
			outcomes = append(outcomes, s.resolver.ResolveByID(ctx, sess, u.ID))
		}
		for _, code := range detection.Codes {
			outcomes = append(outcomes, s.resolver.ResolveByCode(ctx, sess, code))
		}
	}

	var products []catalog.Record
	seen := make(map[string]struct{})
	for _, out := range outcomes {
		detection.Resolutions = append(detection.Resolutions, ResolutionInfo{
			Query:  out.Query,
			Status: string(out.Status),
			Source: out.Source,
			Code:   out.Record.Code,
		})
		if !out.Resolved() {
			continue
		}
		key := out.Record.Code
		if key == "" {
			products = append(products, out.Record)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		products = append(products, out.Record)
	}

	if len(products) > 0 {
		return products, false
	}

	recent := sess.RecallRecent()
	if len(recent) > 0 {
		log.Debug().Strs("codes", sess.RecentCodes()).Msg("no product in message, using session memory")
		return recent, true
	}

	return nil, false
}

// fetchSheets pulls bounded datasheet text for the first products that
// declare one. Failures yield empty entries, never errors.
func (s *Service) fetchSheets(ctx context.Context, products []catalog.Record) map[string]string {
	if s.sheets == nil {
		return nil
	}

	sheets := make(map[string]string)
	fetched := 0
	for _, p := range products {
		if fetched >= maxDatasheetFetches {
			break
		}
		if p.DataSheet == "" || p.Code == "" {
			continue
		}
		if text := s.sheets.Text(ctx, p.DataSheet); text != "" {
			sheets[p.Code] = text
		}
		fetched++
	}
	return sheets
}
