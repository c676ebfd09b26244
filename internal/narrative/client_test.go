package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/radarcol/radarcol/internal/errors"
)

func newTestGroqServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGroqClientComplete(t *testing.T) {
	var captured chatRequest
	srv := newTestGroqServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"content": "{\"resumen\": \"ok\"}"}}]}`))
	})

	client := NewGroqClient("test-key", "llama-3.3-70b-versatile").WithBaseURL(srv.URL)
	content, err := client.Complete(context.Background(), "analiza este contrato")

	require.NoError(t, err)
	assert.Equal(t, `{"resumen": "ok"}`, content)
	assert.Equal(t, "llama-3.3-70b-versatile", captured.Model)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, "analiza este contrato", captured.Messages[0].Content)
	assert.InDelta(t, 0.1, captured.Temperature, 1e-9)
	assert.Equal(t, 1000, captured.MaxTokens)
}

func TestGroqClientRateLimited(t *testing.T) {
	srv := newTestGroqServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limit exceeded"}`, http.StatusTooManyRequests)
	})

	client := NewGroqClient("test-key", "llama-3.3-70b-versatile").WithBaseURL(srv.URL)
	_, err := client.Complete(context.Background(), "prompt")

	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimit(err), "429 must surface as a rate-limit error")
}

func TestGroqClientServerError(t *testing.T) {
	srv := newTestGroqServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	client := NewGroqClient("test-key", "llama-3.3-70b-versatile").WithBaseURL(srv.URL)
	_, err := client.Complete(context.Background(), "prompt")

	require.Error(t, err)
	assert.False(t, apperrors.IsRateLimit(err))
}

func TestGroqClientEmptyChoices(t *testing.T) {
	srv := newTestGroqServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	})

	client := NewGroqClient("test-key", "llama-3.3-70b-versatile").WithBaseURL(srv.URL)
	_, err := client.Complete(context.Background(), "prompt")

	assert.Error(t, err)
}
