package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDocuments(t *testing.T) {
	documents, err := LoadDocuments(filepath.Join("testdata", "embeddings.csv"))
	require.NoError(t, err)
	require.Len(t, documents, 3)

	assert.Equal(t, "doc-1", documents[0].ID)
	assert.Equal(t, "What is the return policy?", documents[0].Content)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, documents[0].Vector)

	// Blank ids get generated ones
	assert.NotEmpty(t, documents[1].ID)
	assert.Equal(t, "doc-3", documents[2].ID)
}

func TestLoadDocumentsMissingFile(t *testing.T) {
	_, err := LoadDocuments(filepath.Join("testdata", "absent.csv"))
	assert.Error(t, err)
}

func TestLoadDocumentsMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,text\n1,hello\n"), 0644))

	_, err := LoadDocuments(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content")
}

func TestLoadDocumentsBadVector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,content,embedding\n1,hello,not-json\n"), 0644))

	_, err := LoadDocuments(path)
	assert.Error(t, err)
}
