package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labot-admin-go/internal/config"
)

func embeddingServer(t *testing.T, dims int, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req["model"])

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
			return
		}
		vector := make([]float32, dims)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 0, "embedding": vector},
			},
		})
	}))
}

func newTestClient(url string) Client {
	return NewClient(config.EmbeddingConfig{
		APIKey:     "test-key",
		BaseURL:    url,
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
	})
}

func TestCreateEmbedding(t *testing.T) {
	srv := embeddingServer(t, 1536, http.StatusOK)
	defer srv.Close()

	vector, err := newTestClient(srv.URL).CreateEmbedding(context.Background(), "¿Qué es una oposición?")
	require.NoError(t, err)
	assert.Len(t, vector, 1536)
}

func TestCreateEmbeddingRejectsWrongDimensions(t *testing.T) {
	srv := embeddingServer(t, 8, http.StatusOK)
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateEmbedding(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 1536")
}

func TestCreateEmbeddingProviderError(t *testing.T) {
	srv := embeddingServer(t, 0, http.StatusTooManyRequests)
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateEmbedding(context.Background(), "q")
	require.Error(t, err)
}
