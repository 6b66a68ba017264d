package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"vectorload/embedding"
)

// SearchScope is the authorization scope requested for calls to the search
// service.
const SearchScope = "https://search.azure.com/.default"

const (
	azureAPIVersion = "2024-07-01"

	// Azure caps an indexing batch at 1000 actions
	azureUploadBatchSize = 1000
)

// AzureBackend talks to the Azure AI Search REST API. There is no Go SDK for
// the service; the surface used here is small enough to call directly.
type AzureBackend struct {
	endpoint  string
	indexName string
	client    *http.Client
}

func NewAzureBackend(endpoint string, transport http.RoundTripper, indexName string) *AzureBackend {
	return &AzureBackend{
		endpoint:  strings.TrimRight(endpoint, "/"),
		indexName: indexName,
		client:    &http.Client{Transport: transport},
	}
}

type azureField struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Key        bool   `json:"key,omitempty"`
	Searchable bool   `json:"searchable,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`
	Profile    string `json:"vectorSearchProfile,omitempty"`
}

type azureIndexDefinition struct {
	Name         string       `json:"name"`
	Fields       []azureField `json:"fields"`
	VectorSearch struct {
		Algorithms []map[string]string `json:"algorithms"`
		Profiles   []map[string]string `json:"profiles"`
	} `json:"vectorSearch"`
}

func (b *AzureBackend) EnsureIndex(ctx context.Context, dimensions int) error {
	response, err := b.do(ctx, http.MethodGet, b.indexURL(""), nil)
	if err != nil {
		return err
	}
	_ = response.Body.Close()
	if response.StatusCode == http.StatusOK {
		return nil
	}
	if response.StatusCode != http.StatusNotFound {
		return fmt.Errorf("unexpected status %d checking for index %s", response.StatusCode, b.indexName)
	}

	definition := azureIndexDefinition{
		Name: b.indexName,
		Fields: []azureField{
			{Name: "id", Type: "Edm.String", Key: true},
			{Name: "content", Type: "Edm.String", Searchable: true},
			{Name: "embedding", Type: "Collection(Edm.Single)", Searchable: true, Dimensions: dimensions, Profile: "embedding-profile"},
		},
	}
	definition.VectorSearch.Algorithms = []map[string]string{{"name": "embedding-hnsw", "kind": "hnsw"}}
	definition.VectorSearch.Profiles = []map[string]string{{"name": "embedding-profile", "algorithm": "embedding-hnsw"}}

	body, err := json.Marshal(definition)
	if err != nil {
		return fmt.Errorf("failed to build index definition: %w", err)
	}

	response, err = b.do(ctx, http.MethodPut, b.indexURL(""), body)
	if err != nil {
		return err
	}
	defer func() { _ = response.Body.Close() }()
	if response.StatusCode >= 300 {
		return fmt.Errorf("unexpected response creating index %s: %s", b.indexName, responseText(response))
	}
	return nil
}

func (b *AzureBackend) DocumentCount(ctx context.Context) (int, error) {
	response, err := b.do(ctx, http.MethodGet, b.indexURL("/docs/$count"), nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = response.Body.Close() }()
	if response.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected response counting documents in index %s: %s", b.indexName, responseText(response))
	}

	text, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read document count: %w", err)
	}
	count, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(string(text), "\ufeff")))
	if err != nil {
		return 0, fmt.Errorf("failed to parse document count %q: %w", string(text), err)
	}
	return count, nil
}

func (b *AzureBackend) UploadDocuments(ctx context.Context, documents []embedding.Document) error {
	type action struct {
		Action string `json:"@search.action"`
		embedding.Document
	}

	for start := 0; start < len(documents); start += azureUploadBatchSize {
		end := start + azureUploadBatchSize
		if end > len(documents) {
			end = len(documents)
		}

		actions := make([]action, 0, end-start)
		for _, document := range documents[start:end] {
			actions = append(actions, action{Action: "mergeOrUpload", Document: document})
		}
		body, err := json.Marshal(struct {
			Value []action `json:"value"`
		}{Value: actions})
		if err != nil {
			return fmt.Errorf("failed to build upload batch: %w", err)
		}

		response, err := b.do(ctx, http.MethodPost, b.indexURL("/docs/index"), body)
		if err != nil {
			return err
		}
		if response.StatusCode >= 300 {
			text := responseText(response)
			_ = response.Body.Close()
			return fmt.Errorf("unexpected response uploading documents %d-%d: %s", start, end, text)
		}
		_ = response.Body.Close()
	}
	return nil
}

func (b *AzureBackend) Query(ctx context.Context, vector []float32, k int) ([]embedding.Document, error) {
	body, err := json.Marshal(map[string]any{
		"select": "id,content",
		"vectorQueries": []map[string]any{
			{"kind": "vector", "vector": vector, "fields": "embedding", "k": k},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vector query: %w", err)
	}

	response, err := b.do(ctx, http.MethodPost, b.indexURL("/docs/search"), body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = response.Body.Close() }()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response to vector query: %s", responseText(response))
	}

	result := struct {
		Value []embedding.Document `json:"value"`
	}{}
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to deserialize search results: %w", err)
	}
	return result.Value, nil
}

func (b *AzureBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

func (b *AzureBackend) indexURL(suffix string) string {
	return fmt.Sprintf("%s/indexes/%s%s?api-version=%s", b.endpoint, url.PathEscape(b.indexName), suffix, azureAPIVersion)
}

func (b *AzureBackend) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := b.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	return response, nil
}

func responseText(response *http.Response) string {
	text, err := io.ReadAll(response.Body)
	if err != nil {
		return response.Status
	}
	return fmt.Sprintf("%s: %s", response.Status, string(text))
}
