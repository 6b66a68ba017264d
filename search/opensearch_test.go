package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectorload/config"
	"vectorload/embedding"
)

type fakeOpenSearch struct {
	indexExists  bool
	existsStatus int
	count        int
	createCalls  int
	mapping      map[string]any
	indexed      map[string]embedding.Document
}

func (f *fakeOpenSearch) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/index_sample":
			if f.existsStatus != 0 {
				w.WriteHeader(f.existsStatus)
				return
			}
			if !f.indexExists {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && r.URL.Path == "/index_sample":
			f.createCalls++
			f.indexExists = true
			require.NoError(t, json.NewDecoder(r.Body).Decode(&f.mapping))
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		case r.Method == http.MethodGet && r.URL.Path == "/index_sample/_count":
			_, _ = w.Write([]byte(fmt.Sprintf(`{"count":%d}`, f.count)))
		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/index_sample/_doc/"):
			var document embedding.Document
			require.NoError(t, json.NewDecoder(r.Body).Decode(&document))
			if f.indexed == nil {
				f.indexed = make(map[string]embedding.Document)
			}
			f.indexed[strings.TrimPrefix(r.URL.Path, "/index_sample/_doc/")] = document
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/index_sample/_search":
			_, _ = w.Write([]byte(`{"hits":{"hits":[{"_id":"doc-1","_source":{"id":"doc-1","content":"first"}}]}}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	})
}

func newOpenSearchTestBackend(t *testing.T, endpoint string) *OpenSearchBackend {
	backend, err := NewOpenSearchBackend(context.Background(), endpoint, "index_sample", config.OpenSearchConfig{
		Username: "admin",
		Password: "admin",
	})
	require.NoError(t, err)
	return backend
}

func TestOpenSearchEnsureIndexCreatesWhenAbsent(t *testing.T) {
	service := &fakeOpenSearch{}
	server := httptest.NewServer(service.handler(t))
	defer server.Close()

	backend := newOpenSearchTestBackend(t, server.URL)
	require.NoError(t, backend.EnsureIndex(context.Background(), 100))
	assert.Equal(t, 1, service.createCalls)

	settings := service.mapping["settings"].(map[string]any)
	assert.Equal(t, true, settings["index"].(map[string]any)["knn"])

	properties := service.mapping["mappings"].(map[string]any)["properties"].(map[string]any)
	vectorField := properties["embedding"].(map[string]any)
	assert.Equal(t, "knn_vector", vectorField["type"])
	assert.Equal(t, float64(100), vectorField["dimension"])

	// Second call finds the index and does not create again
	require.NoError(t, backend.EnsureIndex(context.Background(), 100))
	assert.Equal(t, 1, service.createCalls)
}

func TestOpenSearchEnsureIndexCheckFailure(t *testing.T) {
	service := &fakeOpenSearch{existsStatus: http.StatusInternalServerError}
	server := httptest.NewServer(service.handler(t))
	defer server.Close()

	backend := newOpenSearchTestBackend(t, server.URL)
	err := backend.EnsureIndex(context.Background(), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected response checking for index")
	assert.Contains(t, err.Error(), "500")
	assert.Zero(t, service.createCalls)
}

func TestOpenSearchDocumentCount(t *testing.T) {
	service := &fakeOpenSearch{indexExists: true, count: 7}
	server := httptest.NewServer(service.handler(t))
	defer server.Close()

	backend := newOpenSearchTestBackend(t, server.URL)
	count, err := backend.DocumentCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestOpenSearchUploadDocuments(t *testing.T) {
	service := &fakeOpenSearch{indexExists: true}
	server := httptest.NewServer(service.handler(t))
	defer server.Close()

	backend := newOpenSearchTestBackend(t, server.URL)
	documents := []embedding.Document{
		{ID: "doc-1", Content: "first", Vector: []float32{0.1, 0.2}},
		{ID: "doc-2", Content: "second", Vector: []float32{0.3, 0.4}},
	}
	require.NoError(t, backend.UploadDocuments(context.Background(), documents))

	require.Len(t, service.indexed, 2)
	assert.Equal(t, documents[0], service.indexed["doc-1"])
	assert.Equal(t, documents[1], service.indexed["doc-2"])
}

func TestOpenSearchQuery(t *testing.T) {
	service := &fakeOpenSearch{indexExists: true}
	server := httptest.NewServer(service.handler(t))
	defer server.Close()

	backend := newOpenSearchTestBackend(t, server.URL)
	documents, err := backend.Query(context.Background(), []float32{0.1, 0.2}, 5)
	require.NoError(t, err)
	require.Len(t, documents, 1)
	assert.Equal(t, "doc-1", documents[0].ID)
	assert.Equal(t, "first", documents[0].Content)
}
