package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdipper/sales-assistant/internal/observability"
)

// backendStub simulates the vendor backend, recording every probe.
type backendStub struct {
	mu       sync.Mutex
	requests []string
	handler  http.HandlerFunc
}

func (b *backendStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
	b.mu.Unlock()
	b.handler(w, r)
}

func (b *backendStub) seen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func newTestClient(t *testing.T, stub *backendStub) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, ScrapeFallback: true}, observability.Nop()), srv
}

func productJSON(id int, code string) map[string]any {
	return map[string]any{
		"ProductId":        id,
		"Code":             code,
		"DescriptionShort": "Cámara IP",
		"DescriptionLong":  "Cámara IP 4MP exterior IP67",
		"Price":            99.0,
		"Stock":            4,
	}
}

func TestFetchByID(t *testing.T) {
	t.Run("view endpoint answers", func(t *testing.T) {
		stub := &backendStub{handler: func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/Products/View", r.URL.Path)
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, float64(6964), payload["ProductId"])
			json.NewEncoder(w).Encode(productJSON(6964, "IPC-4M-FA-ZERO"))
		}}
		client, _ := newTestClient(t, stub)

		rec, err := client.FetchByID(context.Background(), 6964)
		require.NoError(t, err)
		assert.Equal(t, 6964, rec.ID)
		assert.Equal(t, "IPC-4M-FA-ZERO", rec.Code)
	})

	t.Run("json served under wrong content type still accepted", func(t *testing.T) {
		stub := &backendStub{handler: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, `{"ProductId": 42, "Code": "LM108-V2"}`)
		}}
		client, _ := newTestClient(t, stub)

		rec, err := client.FetchByID(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, "LM108-V2", rec.Code)
	})

	t.Run("html view falls back to page scrape", func(t *testing.T) {
		stub := &backendStub{handler: func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/Products/View" {
				w.Header().Set("Content-Type", "text/html")
				fmt.Fprint(w, "<html>not json</html>")
				return
			}
			require.Equal(t, "/products/view/6964", r.URL.Path)
			fmt.Fprint(w, `<html><script>var p = {"ProductId": 6964, "Code": "IPC-4M-FA-ZERO"};</script></html>`)
		}}
		client, _ := newTestClient(t, stub)

		rec, err := client.FetchByID(context.Background(), 6964)
		require.NoError(t, err)
		assert.Equal(t, "IPC-4M-FA-ZERO", rec.Code)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		stub := &backendStub{handler: func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}}
		client, _ := newTestClient(t, stub)

		_, err := client.FetchByID(context.Background(), 999999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unreachable backend is a transport error", func(t *testing.T) {
		stub := &backendStub{handler: func(w http.ResponseWriter, r *http.Request) {}}
		client, srv := newTestClient(t, stub)
		srv.Close()

		_, err := client.FetchByID(context.Background(), 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestSearchByCode(t *testing.T) {
	t.Run("first attempt matches and short-circuits", func(t *testing.T) {
		stub := &backendStub{handler: func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/Products/Search", r.URL.Path)
			json.NewEncoder(w).Encode([]any{productJSON(6964, "IPC-4M-FA-ZERO")})
		}}
		client, _ := newTestClient(t, stub)

		rec, err := client.SearchByCode(context.Background(), "ipc-4m-fa-zero")
		require.NoError(t, err)
		assert.Equal(t, "IPC-4M-FA-ZERO", rec.Code)
		assert.Equal(t, []string{"POST /Products/Search"}, stub.seen())
	})

	t.Run("chain advances past failing endpoints", func(t *testing.T) {
		stub := &backendStub{}
		stub.handler = func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/Products/Search" {
				http.NotFound(w, r)
				return
			}
			var payload map[string]any
			json.NewDecoder(r.Body).Decode(&payload)
			if payload["q"] == nil {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"results": []any{productJSON(77, "LM108-V2")},
			})
		}
		client, _ := newTestClient(t, stub)

		rec, err := client.SearchByCode(context.Background(), "LM108-V2")
		require.NoError(t, err)
		assert.Equal(t, 77, rec.ID)

		// Eight failed probes before /api/Products/Search?q answered.
		assert.Equal(t, "POST /api/Products/Search", stub.seen()[8])
		assert.Len(t, stub.seen(), 9)
	})

	t.Run("non-matching codes are never accepted", func(t *testing.T) {
		stub := &backendStub{handler: func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/search" {
				fmt.Fprint(w, "<html>sin resultados</html>")
				return
			}
			// Every endpoint returns a similarly named but different product.
			json.NewEncoder(w).Encode([]any{productJSON(1, "IPC-4M-FA-PRO")})
		}}
		client, _ := newTestClient(t, stub)

		_, err := client.SearchByCode(context.Background(), "IPC-4M-FA-ZERO")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("partial item completed through view endpoint", func(t *testing.T) {
		stub := &backendStub{handler: func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/Products/Search":
				json.NewEncoder(w).Encode([]any{map[string]any{"ProductId": 6964, "Code": "IPC-4M-FA-ZERO"}})
			case "/Products/View":
				json.NewEncoder(w).Encode(productJSON(6964, "IPC-4M-FA-ZERO"))
			default:
				http.NotFound(w, r)
			}
		}}
		client, _ := newTestClient(t, stub)

		rec, err := client.SearchByCode(context.Background(), "IPC-4M-FA-ZERO")
		require.NoError(t, err)
		assert.Equal(t, "Cámara IP 4MP exterior IP67", rec.DescriptionLong)
	})

	t.Run("search page scrape is the last resort", func(t *testing.T) {
		stub := &backendStub{handler: func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/search":
				assert.Equal(t, "IPC-4M-FA-ZERO", r.URL.Query().Get("q"))
				fmt.Fprint(w, `<html>IPC-4M-FA-ZERO <a href="/products/view/6964">ver</a></html>`)
			case "/Products/View":
				json.NewEncoder(w).Encode(productJSON(6964, "IPC-4M-FA-ZERO"))
			default:
				http.NotFound(w, r)
			}
		}}
		client, _ := newTestClient(t, stub)

		rec, err := client.SearchByCode(context.Background(), "IPC-4M-FA-ZERO")
		require.NoError(t, err)
		assert.Equal(t, 6964, rec.ID)
	})

	t.Run("all endpoints missing yields not found", func(t *testing.T) {
		stub := &backendStub{handler: func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}}
		client, _ := newTestClient(t, stub)

		_, err := client.SearchByCode(context.Background(), "NOPE-123")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unreachable backend is not conflated with not found", func(t *testing.T) {
		stub := &backendStub{handler: func(w http.ResponseWriter, r *http.Request) {}}
		client, srv := newTestClient(t, stub)
		srv.Close()

		_, err := client.SearchByCode(context.Background(), "LM108-V2")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty code short-circuits", func(t *testing.T) {
		stub := &backendStub{handler: func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		}}
		client, _ := newTestClient(t, stub)

		_, err := client.SearchByCode(context.Background(), "   ")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCandidateItems(t *testing.T) {
	item := map[string]any{"Code": "X"}

	assert.Len(t, candidateItems([]any{item, "junk", item}), 2)
	assert.Len(t, candidateItems(map[string]any{"results": []any{item}}), 1)
	assert.Len(t, candidateItems(map[string]any{"Data": []any{item}}), 1)
	assert.Empty(t, candidateItems(map[string]any{"other": []any{item}}))
	assert.Empty(t, candidateItems("junk"))
}

func TestIsTransport(t *testing.T) {
	assert.False(t, isTransport(nil))
	assert.False(t, isTransport(fmt.Errorf("wrap: %w", ErrNotFound)))
	assert.True(t, isTransport(errors.New("connection refused")))
}
