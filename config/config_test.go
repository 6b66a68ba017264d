package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AZURE_AI_SEARCH_ENDPOINT", "https://search.example.net")
	t.Setenv("AZURE_AI_PROJECT_ENDPOINT", "https://project.example.net")
	t.Setenv("AZURE_AI_SEARCH_INDEX_NAME", "")
	t.Setenv("AZURE_AI_EMBED_DEPLOYMENT_NAME", "")
	t.Setenv("AZURE_AI_EMBED_DIMENSIONS", "")
	t.Setenv("AZURE_TENANT_ID", "")
	t.Setenv("SEARCH_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "index_sample", cfg.IndexName)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbedDeployment)
	assert.Equal(t, 100, cfg.EmbedDimensions)
	assert.Equal(t, BackendAzure, cfg.Backend)
	assert.Empty(t, cfg.MissingRequired())
}

func TestLoadParsesDimensions(t *testing.T) {
	t.Setenv("AZURE_AI_EMBED_DIMENSIONS", "1536")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1536, cfg.EmbedDimensions)
}

func TestLoadRejectsNonNumericDimensions(t *testing.T) {
	t.Setenv("AZURE_AI_EMBED_DIMENSIONS", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AZURE_AI_EMBED_DIMENSIONS")
}

func TestMissingRequired(t *testing.T) {
	t.Setenv("AZURE_AI_SEARCH_ENDPOINT", "")
	t.Setenv("AZURE_AI_PROJECT_ENDPOINT", "")
	t.Setenv("AZURE_AI_EMBED_DIMENSIONS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "AZURE_AI_SEARCH_ENDPOINT", cfg.MissingRequired())

	cfg.SearchEndpoint = "https://search.example.net"
	assert.Equal(t, "AZURE_AI_PROJECT_ENDPOINT", cfg.MissingRequired())

	cfg.ProjectEndpoint = "https://project.example.net"
	assert.Empty(t, cfg.MissingRequired())
}

func TestInferenceEndpoint(t *testing.T) {
	endpoint, err := InferenceEndpoint("https://foo.bar.example/extra/path")
	require.NoError(t, err)
	assert.Equal(t, "https://foo.bar.example/models", endpoint)

	endpoint, err = InferenceEndpoint("http://foo.bar.example:8443/api?key=value")
	require.NoError(t, err)
	assert.Equal(t, "https://foo.bar.example:8443/models", endpoint)

	_, err = InferenceEndpoint("not-a-url")
	assert.Error(t, err)
}
