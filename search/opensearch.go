package search

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	requestsigner "github.com/opensearch-project/opensearch-go/v2/signer/awsv2"

	"vectorload/config"
	"vectorload/embedding"
)

// OpenSearchBackend stores documents in an OpenSearch index with a knn_vector
// field. Against Amazon OpenSearch Service, requests can be SigV4 signed and
// the basic-auth password fetched from Secrets Manager.
type OpenSearchBackend struct {
	client    *opensearch.Client
	indexName string
}

func NewOpenSearchBackend(ctx context.Context, endpoint string, indexName string, cfg config.OpenSearchConfig) (*OpenSearchBackend, error) {
	osConfig := opensearch.Config{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureTLS},
		},
		Addresses: []string{endpoint},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	if cfg.PasswordSecret != "" || cfg.AWSSigning {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}

		if cfg.PasswordSecret != "" {
			smClient := secretsmanager.NewFromConfig(awsCfg)
			secret, err := smClient.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
				SecretId: aws.String(cfg.PasswordSecret),
			})
			if err != nil {
				return nil, fmt.Errorf("failed to fetch opensearch password from secret %s: %w", cfg.PasswordSecret, err)
			}
			osConfig.Password = *secret.SecretString
		}

		if cfg.AWSSigning {
			signer, err := requestsigner.NewSignerWithService(awsCfg, "es")
			if err != nil {
				return nil, fmt.Errorf("failed to build request signer: %w", err)
			}
			osConfig.Signer = signer
		}
	}

	client, err := opensearch.NewClient(osConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build opensearch client: %w", err)
	}

	return &OpenSearchBackend{client: client, indexName: indexName}, nil
}

func (b *OpenSearchBackend) EnsureIndex(ctx context.Context, dimensions int) error {
	existsReq := opensearchapi.IndicesExistsRequest{Index: []string{b.indexName}}
	existsResponse, err := existsReq.Do(ctx, b.client)
	if err != nil {
		return fmt.Errorf("failed to check for index %s: %w", b.indexName, err)
	}
	if existsResponse.StatusCode == http.StatusOK {
		_ = existsResponse.Body.Close()
		return nil
	}
	if existsResponse.StatusCode != http.StatusNotFound {
		text := existsResponse.String()
		_ = existsResponse.Body.Close()
		return fmt.Errorf("unexpected response checking for index %s: %s", b.indexName, text)
	}
	_ = existsResponse.Body.Close()

	mapping, err := json.Marshal(map[string]any{
		"settings": map[string]any{
			"index": map[string]any{"knn": true},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"content":   map[string]any{"type": "text"},
				"embedding": map[string]any{"type": "knn_vector", "dimension": dimensions},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to build index mapping: %w", err)
	}

	createReq := opensearchapi.IndicesCreateRequest{
		Index: b.indexName,
		Body:  bytes.NewReader(mapping),
	}
	createResponse, err := createReq.Do(ctx, b.client)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", b.indexName, err)
	}
	defer func() { _ = createResponse.Body.Close() }()
	if createResponse.StatusCode >= 300 {
		return fmt.Errorf("unexpected response creating index %s: %s", b.indexName, createResponse.String())
	}
	return nil
}

func (b *OpenSearchBackend) DocumentCount(ctx context.Context) (int, error) {
	countReq := opensearchapi.CountRequest{Index: []string{b.indexName}}
	countResponse, err := countReq.Do(ctx, b.client)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents in index %s: %w", b.indexName, err)
	}
	defer func() { _ = countResponse.Body.Close() }()
	if countResponse.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected response counting documents in index %s: %s", b.indexName, countResponse.String())
	}

	result := struct {
		Count int `json:"count"`
	}{}
	if err := json.NewDecoder(countResponse.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to parse document count: %w", err)
	}
	return result.Count, nil
}

func (b *OpenSearchBackend) UploadDocuments(ctx context.Context, documents []embedding.Document) error {
	for i, document := range documents {
		body, err := json.Marshal(document)
		if err != nil {
			return fmt.Errorf("failed to build search document %d: %w", i, err)
		}

		req := opensearchapi.IndexRequest{
			Index:      b.indexName,
			DocumentID: document.ID,
			Body:       bytes.NewReader(body),
		}
		insertResponse, err := req.Do(ctx, b.client)
		if err != nil {
			return fmt.Errorf("error indexing document %s: %w", document.ID, err)
		}
		if insertResponse.StatusCode >= 300 {
			text := insertResponse.String()
			_ = insertResponse.Body.Close()
			return fmt.Errorf("unexpected indexing response writing document %s: %s", document.ID, text)
		}
		_ = insertResponse.Body.Close()
	}
	return nil
}

func (b *OpenSearchBackend) Query(ctx context.Context, vector []float32, k int) ([]embedding.Document, error) {
	queryBytes, err := json.Marshal(map[string]any{
		"size": k,
		"query": map[string]any{
			"knn": map[string]any{
				"embedding": map[string]any{"vector": vector, "k": k},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vector query: %w", err)
	}

	searchReq := opensearchapi.SearchRequest{
		Index: []string{b.indexName},
		Body:  bytes.NewReader(queryBytes),
	}
	searchResponse, err := searchReq.Do(ctx, b.client)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector query: %w", err)
	}
	defer func() { _ = searchResponse.Body.Close() }()
	if searchResponse.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response to vector query: %s", searchResponse.String())
	}

	bodyBytes, err := io.ReadAll(searchResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response body: %w", err)
	}

	result := struct {
		Hits struct {
			Hits []struct {
				Id     string             `json:"_id"`
				Source embedding.Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}{}
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to deserialize search results: %w", err)
	}

	documents := make([]embedding.Document, len(result.Hits.Hits))
	for i, hit := range result.Hits.Hits {
		documents[i] = hit.Source
		if documents[i].ID == "" {
			documents[i].ID = hit.Id
		}
	}
	return documents, nil
}

func (b *OpenSearchBackend) Close() error {
	return nil
}
