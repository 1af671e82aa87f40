package port

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Encode generates an embedding for a single text.
	Encode(text string) ([]float32, error)

	// EncodeBatch generates embeddings for the given texts.
	// Returns one vector per input text, in input order.
	EncodeBatch(texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension. Constant for the
	// lifetime of the embedder.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
