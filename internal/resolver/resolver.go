// Package resolver turns extracted product references into catalog records,
// consulting session memory and the shared cache before the backend.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bigdipper/sales-assistant/internal/cache"
	"github.com/bigdipper/sales-assistant/internal/catalog"
	"github.com/bigdipper/sales-assistant/internal/extract"
	"github.com/bigdipper/sales-assistant/internal/observability"
	"github.com/bigdipper/sales-assistant/internal/session"
)

// Status is the explicit result of a resolution. Callers switch on it;
// "not found" is a value, never a raised error.
type Status string

const (
	StatusResolved  Status = "resolved"
	StatusNotFound  Status = "not_found"
	StatusTransient Status = "transient"
)

// Resolution sources, reported for the troubleshooting panel.
const (
	SourceSessionCache = "session-cache"
	SourceSharedCache  = "shared-cache"
	SourceBackend      = "backend"
	SourcePasted       = "pasted"
)

// Outcome is the result of resolving one product reference.
type Outcome struct {
	Status Status
	Record catalog.Record
	Source string
	Query  string
}

// Resolved reports whether the outcome carries a record.
func (o Outcome) Resolved() bool {
	return o.Status == StatusResolved
}

// Backend is the catalog surface the resolver needs.
type Backend interface {
	FetchByID(ctx context.Context, id int) (catalog.Record, error)
	SearchByCode(ctx context.Context, code string) (catalog.Record, error)
}

// Resolver resolves product references.
type Resolver struct {
	backend Backend
	shared  cache.Client
	ttl     time.Duration
	logger  *observability.Logger
}

// New creates a resolver. shared may be nil to disable the cross-session cache.
func New(backend Backend, shared cache.Client, ttl time.Duration, logger *observability.Logger) *Resolver {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Resolver{
		backend: backend,
		shared:  shared,
		ttl:     ttl,
		logger:  logger,
	}
}

// ResolveByID resolves a numeric product identifier.
func (r *Resolver) ResolveByID(ctx context.Context, sess *session.Memory, id int) Outcome {
	if rec, ok := sess.LookupID(id); ok {
		return r.hit(sess, rec, SourceSessionCache, "")
	}
	if rec, ok := r.sharedGet(ctx, cache.ProductIDKey(id)); ok {
		return r.hit(sess, rec, SourceSharedCache, "")
	}

	rec, err := r.backend.FetchByID(ctx, id)
	if err != nil {
		return r.miss(err, "")
	}
	return r.store(ctx, sess, rec, SourceBackend, "")
}

// ResolveByCode resolves a model code. A resolved record's normalized code
// always equals the queried normalized code.
func (r *Resolver) ResolveByCode(ctx context.Context, sess *session.Memory, code string) Outcome {
	want := extract.NormalizeCode(code)
	if want == "" {
		return Outcome{Status: StatusNotFound, Query: code}
	}

	if rec, ok := sess.LookupCode(want); ok {
		return r.hit(sess, rec, SourceSessionCache, want)
	}
	if rec, ok := r.sharedGet(ctx, cache.ProductCodeKey(want)); ok {
		return r.hit(sess, rec, SourceSharedCache, want)
	}

	rec, err := r.backend.SearchByCode(ctx, want)
	if err != nil {
		return r.miss(err, want)
	}
	if rec.Code != want {
		// The backend should never hand back a different product; treat
		// it as a miss rather than grounding an answer in the wrong sheet.
		r.logger.Warn().Str("want", want).Str("got", rec.Code).Msg("search returned mismatched code")
		return Outcome{Status: StatusNotFound, Query: want}
	}
	return r.store(ctx, sess, rec, SourceBackend, want)
}

// AdoptPasted accepts a record the user pasted as structured JSON.
func (r *Resolver) AdoptPasted(ctx context.Context, sess *session.Memory, raw map[string]any) Outcome {
	rec := catalog.CompactRecord(raw)
	if !rec.Valid() {
		return Outcome{Status: StatusNotFound, Source: SourcePasted}
	}
	return r.store(ctx, sess, rec, SourcePasted, rec.Code)
}

func (r *Resolver) hit(sess *session.Memory, rec catalog.Record, source, query string) Outcome {
	sess.Remember(rec)
	return Outcome{Status: StatusResolved, Record: rec, Source: source, Query: query}
}

// store writes a freshly resolved record through to session memory and the
// shared cache, then reports success.
func (r *Resolver) store(ctx context.Context, sess *session.Memory, rec catalog.Record, source, query string) Outcome {
	sess.Remember(rec)
	r.sharedPut(ctx, rec)
	return Outcome{Status: StatusResolved, Record: rec, Source: source, Query: query}
}

// miss converts a backend error into the matching terminal outcome. The
// conversation loop treats both the same way; the distinction surfaces only
// in logs and the debug panel.
func (r *Resolver) miss(err error, query string) Outcome {
	if errors.Is(err, catalog.ErrNotFound) {
		return Outcome{Status: StatusNotFound, Query: query}
	}
	r.logger.Debug().Err(err).Str("query", query).Msg("resolution failed transiently")
	return Outcome{Status: StatusTransient, Query: query}
}

func (r *Resolver) sharedGet(ctx context.Context, key string) (catalog.Record, bool) {
	if r.shared == nil {
		return catalog.Record{}, false
	}
	data, err := r.shared.Get(ctx, key)
	if err != nil {
		return catalog.Record{}, false
	}
	var rec catalog.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return catalog.Record{}, false
	}
	return rec, rec.Valid()
}

func (r *Resolver) sharedPut(ctx context.Context, rec catalog.Record) {
	if r.shared == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if rec.Code != "" {
		_ = r.shared.Set(ctx, cache.ProductCodeKey(rec.Code), data, r.ttl)
	}
	if rec.ID != 0 {
		_ = r.shared.Set(ctx, cache.ProductIDKey(rec.ID), data, r.ttl)
	}
}
