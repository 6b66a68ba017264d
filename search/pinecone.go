package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"vectorload/config"
	"vectorload/embedding"
)

const pineconeUploadBatchSize = 100

// PineconeBackend stores documents as vectors in a serverless Pinecone
// index, with the source text carried in metadata.
type PineconeBackend struct {
	client    *pinecone.Client
	index     *pinecone.IndexConnection
	indexName string
	cloud     string
	region    string
}

func NewPineconeBackend(indexName string, cfg config.PineconeConfig) (*PineconeBackend, error) {
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to build pinecone client: %w", err)
	}

	return &PineconeBackend{
		client:    client,
		indexName: indexName,
		cloud:     cfg.Cloud,
		region:    cfg.Region,
	}, nil
}

func (b *PineconeBackend) EnsureIndex(ctx context.Context, dimensions int) error {
	_, err := b.client.DescribeIndex(ctx, b.indexName)
	if err == nil {
		return nil
	}
	if !isIndexNotFound(err) {
		return fmt.Errorf("failed to check for index %s: %w", b.indexName, err)
	}

	_, err = b.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      b.indexName,
		Dimension: int32(dimensions),
		Metric:    pinecone.Cosine,
		Cloud:     pinecone.Cloud(b.cloud),
		Region:    b.region,
	})
	if err != nil {
		return fmt.Errorf("failed to create serverless index %s: %w", b.indexName, err)
	}
	return nil
}

func (b *PineconeBackend) DocumentCount(ctx context.Context) (int, error) {
	index, err := b.connection(ctx)
	if err != nil {
		return 0, err
	}

	stats, err := index.DescribeIndexStats(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to describe index %s: %w", b.indexName, err)
	}
	return int(stats.TotalVectorCount), nil
}

func (b *PineconeBackend) UploadDocuments(ctx context.Context, documents []embedding.Document) error {
	index, err := b.connection(ctx)
	if err != nil {
		return err
	}

	for start := 0; start < len(documents); start += pineconeUploadBatchSize {
		end := start + pineconeUploadBatchSize
		if end > len(documents) {
			end = len(documents)
		}

		vectors := make([]*pinecone.Vector, 0, end-start)
		for _, document := range documents[start:end] {
			metadata, err := structpb.NewStruct(map[string]any{"content": document.Content})
			if err != nil {
				return fmt.Errorf("failed to build metadata for document %s: %w", document.ID, err)
			}
			vectors = append(vectors, &pinecone.Vector{
				Id:       document.ID,
				Values:   document.Vector,
				Metadata: metadata,
			})
		}

		if _, err := index.UpsertVectors(ctx, vectors); err != nil {
			return fmt.Errorf("failed to upsert documents %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (b *PineconeBackend) Query(ctx context.Context, vector []float32, k int) ([]embedding.Document, error) {
	index, err := b.connection(ctx)
	if err != nil {
		return nil, err
	}

	response, err := index.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(k),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector query: %w", err)
	}

	documents := make([]embedding.Document, 0, len(response.Matches))
	for _, match := range response.Matches {
		if match.Vector == nil {
			continue
		}
		document := embedding.Document{ID: match.Vector.Id}
		if match.Vector.Metadata != nil {
			document.Content = match.Vector.Metadata.GetFields()["content"].GetStringValue()
		}
		documents = append(documents, document)
	}
	return documents, nil
}

func (b *PineconeBackend) Close() error {
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

// isIndexNotFound reports whether the control plane answered 404 for the
// index, as opposed to failing some other way.
func isIndexNotFound(err error) bool {
	var pineconeErr *pinecone.PineconeError
	return errors.As(err, &pineconeErr) && pineconeErr.Code == http.StatusNotFound
}

// connection lazily connects to the index's data plane host.
func (b *PineconeBackend) connection(ctx context.Context) (*pinecone.IndexConnection, error) {
	if b.index != nil {
		return b.index, nil
	}

	described, err := b.client.DescribeIndex(ctx, b.indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index %s: %w", b.indexName, err)
	}

	index, err := b.client.Index(pinecone.NewIndexConnParams{Host: described.Host})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to index %s: %w", b.indexName, err)
	}
	b.index = index
	return index, nil
}
