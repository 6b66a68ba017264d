package embedding

// Document is one precomputed embedding as it is stored in the search index:
// the source text and its vector, keyed by id.
type Document struct {
	ID      string    `json:"id"`
	Content string    `json:"content"`
	Vector  []float32 `json:"embedding"`
}
