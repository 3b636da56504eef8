package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdipper/sales-assistant/internal/cache"
	"github.com/bigdipper/sales-assistant/internal/catalog"
	"github.com/bigdipper/sales-assistant/internal/observability"
	"github.com/bigdipper/sales-assistant/internal/session"
)

// fakeBackend answers from fixed maps and counts calls.
type fakeBackend struct {
	byID        map[int]catalog.Record
	byCode      map[string]catalog.Record
	err         error
	fetchCalls  int
	searchCalls int
}

func (f *fakeBackend) FetchByID(ctx context.Context, id int) (catalog.Record, error) {
	f.fetchCalls++
	if f.err != nil {
		return catalog.Record{}, f.err
	}
	rec, ok := f.byID[id]
	if !ok {
		return catalog.Record{}, catalog.ErrNotFound
	}
	return rec, nil
}

func (f *fakeBackend) SearchByCode(ctx context.Context, code string) (catalog.Record, error) {
	f.searchCalls++
	if f.err != nil {
		return catalog.Record{}, f.err
	}
	rec, ok := f.byCode[code]
	if !ok {
		return catalog.Record{}, catalog.ErrNotFound
	}
	return rec, nil
}

var testRecord = catalog.Record{
	ID:               6964,
	Code:             "IPC-4M-FA-ZERO",
	DescriptionShort: "Cámara IP 4MP",
	DescriptionLong:  "Cámara IP 4MP exterior IP67",
	Price:            99,
	Stock:            4,
}

func newTestResolver(backend Backend) (*Resolver, *session.Memory) {
	shared := cache.NewMemoryClient(100)
	return New(backend, shared, time.Minute, observability.Nop()), session.NewMemory("s1", 5)
}

func TestResolveByCode(t *testing.T) {
	t.Run("backend resolution writes through both caches", func(t *testing.T) {
		backend := &fakeBackend{byCode: map[string]catalog.Record{"IPC-4M-FA-ZERO": testRecord}}
		r, sess := newTestResolver(backend)
		ctx := context.Background()

		out := r.ResolveByCode(ctx, sess, "ipc-4m-fa-zero")
		require.Equal(t, StatusResolved, out.Status)
		assert.Equal(t, SourceBackend, out.Source)
		assert.Equal(t, "IPC-4M-FA-ZERO", out.Query)
		assert.Equal(t, testRecord, out.Record)

		// Second resolution is a session cache hit, no backend call.
		out = r.ResolveByCode(ctx, sess, "IPC-4M-FA-ZERO")
		require.Equal(t, StatusResolved, out.Status)
		assert.Equal(t, SourceSessionCache, out.Source)
		assert.Equal(t, 1, backend.searchCalls)

		// A different session hits the shared cache.
		other := session.NewMemory("s2", 5)
		out = r.ResolveByCode(ctx, other, "IPC-4M-FA-ZERO")
		require.Equal(t, StatusResolved, out.Status)
		assert.Equal(t, SourceSharedCache, out.Source)
		assert.Equal(t, 1, backend.searchCalls)
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		r, sess := newTestResolver(&fakeBackend{})
		out := r.ResolveByCode(context.Background(), sess, "NOPE-123")
		assert.Equal(t, StatusNotFound, out.Status)
		assert.Empty(t, sess.RecentCodes())
	})

	t.Run("backend outage is transient", func(t *testing.T) {
		r, sess := newTestResolver(&fakeBackend{err: errors.New("connection refused")})
		out := r.ResolveByCode(context.Background(), sess, "LM108-V2")
		assert.Equal(t, StatusTransient, out.Status)
	})

	t.Run("mismatched backend record is rejected", func(t *testing.T) {
		wrong := testRecord
		wrong.Code = "IPC-4M-FA-PRO"
		backend := &fakeBackend{byCode: map[string]catalog.Record{"IPC-4M-FA-ZERO": wrong}}
		r, sess := newTestResolver(backend)

		out := r.ResolveByCode(context.Background(), sess, "IPC-4M-FA-ZERO")
		assert.Equal(t, StatusNotFound, out.Status)
		assert.Empty(t, sess.RecentCodes())
	})

	t.Run("empty code never reaches the backend", func(t *testing.T) {
		backend := &fakeBackend{}
		r, sess := newTestResolver(backend)

		out := r.ResolveByCode(context.Background(), sess, "   ")
		assert.Equal(t, StatusNotFound, out.Status)
		assert.Zero(t, backend.searchCalls)
	})
}

func TestResolveByID(t *testing.T) {
	t.Run("backend then caches", func(t *testing.T) {
		backend := &fakeBackend{byID: map[int]catalog.Record{6964: testRecord}}
		r, sess := newTestResolver(backend)
		ctx := context.Background()

		out := r.ResolveByID(ctx, sess, 6964)
		require.Equal(t, StatusResolved, out.Status)
		assert.Equal(t, SourceBackend, out.Source)

		out = r.ResolveByID(ctx, sess, 6964)
		assert.Equal(t, SourceSessionCache, out.Source)
		assert.Equal(t, 1, backend.fetchCalls)

		// Resolving by id also primes the code cache.
		out = r.ResolveByCode(ctx, sess, "IPC-4M-FA-ZERO")
		assert.Equal(t, SourceSessionCache, out.Source)
		assert.Zero(t, backend.searchCalls)
	})

	t.Run("unknown id", func(t *testing.T) {
		r, sess := newTestResolver(&fakeBackend{})
		out := r.ResolveByID(context.Background(), sess, 12345)
		assert.Equal(t, StatusNotFound, out.Status)
	})
}

func TestAdoptPasted(t *testing.T) {
	r, sess := newTestResolver(&fakeBackend{})
	ctx := context.Background()

	t.Run("valid pasted record", func(t *testing.T) {
		out := r.AdoptPasted(ctx, sess, map[string]any{
			"ProductId": float64(6964),
			"Code":      "ipc-4m-fa-zero",
		})
		require.Equal(t, StatusResolved, out.Status)
		assert.Equal(t, SourcePasted, out.Source)
		assert.Equal(t, "IPC-4M-FA-ZERO", out.Record.Code)
		assert.Equal(t, []string{"IPC-4M-FA-ZERO"}, sess.RecentCodes())
	})

	t.Run("invalid payload", func(t *testing.T) {
		out := r.AdoptPasted(ctx, sess, map[string]any{"Price": float64(10)})
		assert.Equal(t, StatusNotFound, out.Status)
	})
}

func TestResolverNilSharedCache(t *testing.T) {
	backend := &fakeBackend{byCode: map[string]catalog.Record{"LM108-V2": {ID: 1, Code: "LM108-V2"}}}
	r := New(backend, nil, 0, observability.Nop())
	sess := session.NewMemory("s1", 5)

	out := r.ResolveByCode(context.Background(), sess, "LM108-V2")
	assert.Equal(t, StatusResolved, out.Status)
}
