package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// Scope is the authorization scope requested for calls to the inference
// endpoint.
const Scope = "https://ai.azure.com/.default"

// Client generates embeddings through the model deployment behind the
// project's inference endpoint. The transport is expected to handle
// authorization; ownership of it stays with the client, which closes its idle
// connections on Close.
type Client struct {
	api        *openai.Client
	httpClient *http.Client
	deployment string
}

func NewClient(endpoint string, transport http.RoundTripper, deployment string) *Client {
	httpClient := &http.Client{Transport: transport}
	cfg := openai.DefaultConfig("")
	cfg.BaseURL = endpoint
	cfg.HTTPClient = httpClient

	return &Client{
		api:        openai.NewClientWithConfig(cfg),
		httpClient: httpClient,
		deployment: deployment,
	}
}

// Embed returns one vector per input string, in input order.
func (c *Client) Embed(ctx context.Context, input []string) ([][]float32, error) {
	response, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: input,
		Model: openai.EmbeddingModel(c.deployment),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(response.Data) != len(input) {
		return nil, fmt.Errorf("expected %d embeddings and got %d", len(input), len(response.Data))
	}

	vectors := make([][]float32, len(response.Data))
	for i := range response.Data {
		vectors[i] = response.Data[i].Embedding
	}
	return vectors, nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
