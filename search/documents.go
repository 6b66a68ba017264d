package search

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"vectorload/embedding"
)

// LoadDocuments reads precomputed embeddings from a CSV file with an
// id,content,embedding header. The embedding column holds the vector as a
// JSON float array. Rows with a blank id get a generated one.
func LoadDocuments(path string) ([]embedding.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open embeddings file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not parse embeddings file %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("embeddings file %s is empty", path)
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[name] = i
	}
	for _, required := range []string{"id", "content", "embedding"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("embeddings file %s is missing the %s column", path, required)
		}
	}

	documents := make([]embedding.Document, 0, len(records)-1)
	for i, record := range records[1:] {
		var vector []float32
		if err := json.Unmarshal([]byte(record[columns["embedding"]]), &vector); err != nil {
			return nil, fmt.Errorf("could not parse embedding vector on row %d: %w", i+2, err)
		}

		id := record[columns["id"]]
		if id == "" {
			id = uuid.NewString()
		}

		documents = append(documents, embedding.Document{
			ID:      id,
			Content: record[columns["content"]],
			Vector:  vector,
		})
	}

	return documents, nil
}
