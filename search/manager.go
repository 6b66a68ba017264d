package search

import (
	"context"
	"fmt"

	"vectorload/config"
	"vectorload/credential"
	"vectorload/embedding"
)

// Backend is the index store behind the manager. Implementations own the
// index schema and wire format for their service.
type Backend interface {
	EnsureIndex(ctx context.Context, dimensions int) error
	DocumentCount(ctx context.Context) (int, error)
	UploadDocuments(ctx context.Context, documents []embedding.Document) error
	Query(ctx context.Context, vector []float32, k int) ([]embedding.Document, error)
	Close() error
}

// Embedder generates query vectors. The manager never constructs its own
// embeddings client; one is injected and its lifetime belongs to the caller.
type Embedder interface {
	Embed(ctx context.Context, input []string) ([][]float32, error)
}

// Manager owns index provisioning, the emptiness check, and document upload
// for one named index.
type Manager struct {
	backend    Backend
	embedder   Embedder
	indexName  string
	dimensions int
	model      string
}

func NewManager(backend Backend, embedder Embedder, indexName string, dimensions int, model string) *Manager {
	return &Manager{
		backend:    backend,
		embedder:   embedder,
		indexName:  indexName,
		dimensions: dimensions,
		model:      model,
	}
}

// NewBackend builds the configured backend. The azure backend authorizes with
// the shared credential; the others carry their own auth material.
func NewBackend(ctx context.Context, cfg *config.Config, cred *credential.Credential) (Backend, error) {
	switch cfg.Backend {
	case config.BackendAzure:
		return NewAzureBackend(cfg.SearchEndpoint, cred.Transport(SearchScope), cfg.IndexName), nil
	case config.BackendOpenSearch:
		return NewOpenSearchBackend(ctx, cfg.SearchEndpoint, cfg.IndexName, cfg.OpenSearch)
	case config.BackendPinecone:
		return NewPineconeBackend(cfg.IndexName, cfg.Pinecone)
	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.Backend)
	}
}

// EnsureIndexCreated creates the index with the given vector dimensionality
// if it does not already exist. Safe to call when it does.
func (m *Manager) EnsureIndexCreated(ctx context.Context, dimensions int) error {
	return m.backend.EnsureIndex(ctx, dimensions)
}

func (m *Manager) DocumentCount(ctx context.Context) (int, error) {
	return m.backend.DocumentCount(ctx)
}

func (m *Manager) IsIndexEmpty(ctx context.Context) (bool, error) {
	count, err := m.backend.DocumentCount(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// UploadDocuments loads precomputed embeddings from the CSV file at path and
// writes them to the index.
func (m *Manager) UploadDocuments(ctx context.Context, path string) error {
	documents, err := LoadDocuments(path)
	if err != nil {
		return err
	}
	if err := m.backend.UploadDocuments(ctx, documents); err != nil {
		return fmt.Errorf("failed to upload documents to index %s: %w", m.indexName, err)
	}
	return nil
}

// Search embeds the query text and returns the k nearest documents.
func (m *Manager) Search(ctx context.Context, text string, k int) ([]embedding.Document, error) {
	vectors, err := m.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query vector: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for the query")
	}
	return m.backend.Query(ctx, vectors[0], k)
}

func (m *Manager) Close() error {
	return m.backend.Close()
}
