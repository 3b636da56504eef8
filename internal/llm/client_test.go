package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", Model: "test-model", Temperature: 0.4, MaxTokens: 650})
}

func TestClientComplete(t *testing.T) {
	t.Run("successful completion", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req Request
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "test-model", req.Model)
			assert.False(t, req.Stream)
			require.Len(t, req.Messages, 2)
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "user", req.Messages[1].Role)

			json.NewEncoder(w).Encode(Response{Choices: []Choice{
				{Message: Message{Role: "assistant", Content: "  Sí, soporta PoE.  "}},
			}})
		})

		text, err := client.Complete(context.Background(), "sos un asistente", "soporta poe?")
		require.NoError(t, err)
		assert.Equal(t, "Sí, soporta PoE.", text)
	})

	t.Run("no choices is an empty completion", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(Response{})
		})

		_, err := client.Complete(context.Background(), "s", "u")
		assert.ErrorIs(t, err, ErrEmptyCompletion)
	})

	t.Run("blank text is an empty completion", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(Response{Choices: []Choice{{Message: Message{Content: "   "}}}})
		})

		_, err := client.Complete(context.Background(), "s", "u")
		assert.ErrorIs(t, err, ErrEmptyCompletion)
	})

	t.Run("upstream error carries status and body excerpt", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error": "rate limited"}`)
		})

		_, err := client.Complete(context.Background(), "s", "u")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
		assert.Contains(t, err.Error(), "rate limited")
	})
}

func TestClientEnabled(t *testing.T) {
	assert.True(t, NewClient(Config{APIKey: "k"}).Enabled())
	assert.False(t, NewClient(Config{}).Enabled())
}

func TestClientDefaults(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, defaultBaseURL, c.cfg.BaseURL)
	assert.Equal(t, defaultModel, c.cfg.Model)
	assert.NotZero(t, c.cfg.Timeout)
}
