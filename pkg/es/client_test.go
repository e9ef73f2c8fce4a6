package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labot-admin-go/internal/config"
	"labot-admin-go/internal/model"
)

type fakeCluster struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
}

func (f *fakeCluster) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		key := r.Method + " " + r.URL.Path
		f.requests = append(f.requests, key)
		f.bodies[key] = string(body)
		f.mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/cache_groups":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && r.URL.Path == "/cache_groups":
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/cache_groups/_doc/"):
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
		case r.URL.Path == "/cache_groups/_search":
			_, _ = w.Write([]byte(`{"hits":{"hits":[{"_score":0.93,"_source":{"group_id":7,"question":"¿Qué es una oposición?","regions":["nacional"]}}]}}`))
		default:
			t.Errorf("unexpected request %s", key)
			w.WriteHeader(http.StatusBadRequest)
		}
	}
}

func TestCacheGroupIndexLifecycle(t *testing.T) {
	cluster := &fakeCluster{bodies: map[string]string{}}
	srv := httptest.NewServer(cluster.handler(t))
	defer srv.Close()

	idx, err := NewCacheGroupIndex(config.ElasticsearchConfig{Addresses: srv.URL, IndexName: "cache_groups"}, 1536)
	require.NoError(t, err)
	assert.Contains(t, cluster.bodies["PUT /cache_groups"], `"dims": 1536`)

	err = idx.IndexCacheGroup(context.Background(), model.CacheGroupDocument{GroupID: 7, Question: "¿Qué es una oposición?", Vector: []float32{0.1}})
	require.NoError(t, err)
	assert.Contains(t, cluster.requests, "PUT /cache_groups/_doc/7")

	results, err := idx.SearchSimilar(context.Background(), []float32{0.1}, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint(7), results[0].GroupID)
	assert.Equal(t, []string{"nacional"}, results[0].Regions)
	assert.InDelta(t, 0.93, results[0].Score, 1e-9)

	var query map[string]interface{}
	for key, body := range cluster.bodies {
		if strings.HasSuffix(key, "/_search") {
			require.NoError(t, json.Unmarshal([]byte(body), &query))
		}
	}
	knn := query["knn"].(map[string]interface{})
	assert.Equal(t, float64(30), knn["num_candidates"])
}

func TestNewCacheGroupIndexWithoutAddressIsNop(t *testing.T) {
	idx, err := NewCacheGroupIndex(config.ElasticsearchConfig{}, 1536)
	require.NoError(t, err)
	assert.IsType(t, NopIndex{}, idx)

	results, err := idx.SearchSimilar(context.Background(), nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
