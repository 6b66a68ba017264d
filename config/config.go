package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

const (
	// DefaultIndexName is the index used when AZURE_AI_SEARCH_INDEX_NAME is unset
	DefaultIndexName = "index_sample"

	// DefaultEmbedDeployment is the embedding model deployment used when unset
	DefaultEmbedDeployment = "text-embedding-3-small"

	// DefaultEmbedDimensions is the vector dimensionality used when unset
	DefaultEmbedDimensions = 100
)

// Supported search backends
const (
	BackendAzure      = "azure"
	BackendOpenSearch = "opensearch"
	BackendPinecone   = "pinecone"
)

// Config carries everything the commands read from the environment. The two
// endpoints are required; everything else has a documented default.
type Config struct {
	SearchEndpoint  string
	ProjectEndpoint string
	IndexName       string
	EmbedDeployment string
	EmbedDimensions int
	TenantID        string

	Backend    string
	OpenSearch OpenSearchConfig
	Pinecone   PineconeConfig
}

// OpenSearchConfig holds settings that only apply to the opensearch backend.
type OpenSearchConfig struct {
	Username       string
	Password       string
	PasswordSecret string
	AWSSigning     bool
	InsecureTLS    bool
}

// PineconeConfig holds settings that only apply to the pinecone backend.
type PineconeConfig struct {
	APIKey string
	Cloud  string
	Region string
}

// Load reads configuration from the environment, applying defaults. Missing
// required endpoints are not an error here; callers check MissingRequired so
// they can report the variable by name and exit cleanly. A non-numeric
// dimensionality is an error.
func Load() (*Config, error) {
	dimensions := DefaultEmbedDimensions
	if raw := os.Getenv("AZURE_AI_EMBED_DIMENSIONS"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid AZURE_AI_EMBED_DIMENSIONS: %w", err)
		}
		dimensions = parsed
	}

	cfg := &Config{
		SearchEndpoint:  os.Getenv("AZURE_AI_SEARCH_ENDPOINT"),
		ProjectEndpoint: os.Getenv("AZURE_AI_PROJECT_ENDPOINT"),
		IndexName:       envOr("AZURE_AI_SEARCH_INDEX_NAME", DefaultIndexName),
		EmbedDeployment: envOr("AZURE_AI_EMBED_DEPLOYMENT_NAME", DefaultEmbedDeployment),
		EmbedDimensions: dimensions,
		TenantID:        os.Getenv("AZURE_TENANT_ID"),
		Backend:         envOr("SEARCH_BACKEND", BackendAzure),
		OpenSearch: OpenSearchConfig{
			Username:       envOr("OPENSEARCH_USERNAME", "admin"),
			Password:       envOr("OPENSEARCH_PASSWORD", "admin"),
			PasswordSecret: os.Getenv("OPENSEARCH_PASSWORD_SECRET"),
			AWSSigning:     os.Getenv("OPENSEARCH_AWS_SIGNING") != "",
			InsecureTLS:    os.Getenv("OPENSEARCH_INSECURE_TLS") != "",
		},
		Pinecone: PineconeConfig{
			APIKey: os.Getenv("PINECONE_API_KEY"),
			Cloud:  envOr("PINECONE_CLOUD", "aws"),
			Region: envOr("PINECONE_REGION", "us-east-1"),
		},
	}

	return cfg, nil
}

// MissingRequired returns the name of the first required environment variable
// that is unset, or an empty string when the configuration is complete.
func (c *Config) MissingRequired() string {
	if c.SearchEndpoint == "" {
		return "AZURE_AI_SEARCH_ENDPOINT"
	}
	if c.ProjectEndpoint == "" {
		return "AZURE_AI_PROJECT_ENDPOINT"
	}
	return ""
}

// InferenceEndpoint derives the model inference endpoint from the project
// endpoint: the authority under https with a fixed /models path. Any path or
// query on the project endpoint is discarded.
func InferenceEndpoint(projectEndpoint string) (string, error) {
	parsed, err := url.Parse(projectEndpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse project endpoint %s: %w", projectEndpoint, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("project endpoint %s has no host", projectEndpoint)
	}
	return fmt.Sprintf("https://%s/models", parsed.Host), nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
