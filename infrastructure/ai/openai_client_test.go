package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"polymath-backend/infrastructure/config"
)

func testClient(t *testing.T, baseURL string) *OpenAIClient {
	t.Helper()
	client, err := NewOpenAIClient(&config.Config{
		OpenAIAPIKey:         "test-key",
		OpenAIBaseURL:        baseURL,
		OpenAIModel:          "gpt-4o-mini",
		OpenAIEmbedModel:     "text-embedding-3-small",
		OpenAITimeoutSeconds: 5,
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestNewOpenAIClient_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(&config.Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&httpError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, isRetryable(&httpError{StatusCode: http.StatusInternalServerError}))
	assert.True(t, isRetryable(&httpError{StatusCode: http.StatusServiceUnavailable}))

	assert.False(t, isRetryable(&httpError{StatusCode: http.StatusBadRequest}))
	assert.False(t, isRetryable(&httpError{StatusCode: http.StatusUnauthorized}))
	assert.False(t, isRetryable(errors.New("connection refused")))
}

func TestBackoffPolicy(t *testing.T) {
	assert.Equal(t, 1*time.Second, singleBackoff.delay(0))
	assert.Equal(t, 2*time.Second, singleBackoff.delay(1))
	assert.Equal(t, 4*time.Second, singleBackoff.delay(2))
	assert.Equal(t, 10*time.Second, singleBackoff.delay(10), "capped")

	assert.Equal(t, 2*time.Second, batchBackoff.delay(0))
	assert.Equal(t, 20*time.Second, batchBackoff.delay(8), "capped")
}

func TestEmbedBatch_ReordersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		// Vectors returned out of input order.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float64{0.2}},
				{"index": 0, "embedding": []float64{0.1}},
			},
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	vectors, err := client.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.1}, {0.2}}, vectors)
}

func TestEmbedBatch_Empty(t *testing.T) {
	client := testClient(t, "http://unused")
	vectors, err := client.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestEmbed_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error": "bad request"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.Embed(context.Background(), "text")

	require.Error(t, err)
	var he *httpError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "4xx other than 429 fails immediately")
}

func TestEmbed_ServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float64{0.5}}},
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	vec, err := client.Embed(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, vec)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "generated text"}},
			},
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	text, err := client.GenerateText(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, "generated text", text)
}

func TestGenerateText_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{}})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.GenerateText(context.Background(), "s", "u")
	assert.Error(t, err)
}
