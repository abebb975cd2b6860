package domain

import "context"

// Chunk is a bounded-length slice of source text used as the retrieval unit.
// Consecutive chunks from the same source overlap to preserve context across
// boundaries.
type Chunk struct {
	Text    string
	Ordinal int
}

// Record is one chunk after embedding, ready to be persisted in an index.
type Record struct {
	ID        string
	Vector    []float32
	Metadata  map[string]string
	Namespace string
}

// Match is a similarity search hit.
type Match struct {
	ID    string
	Score float64
	Text  string
}

// ChunkSupplier materializes the chunks for a knowledge source. It is only
// invoked when an index has to be built, so extraction work is skipped
// entirely on the cache-hit path.
type ChunkSupplier func(ctx context.Context) ([]Chunk, error)

// Embedder converts text into fixed-dimension vectors. Query and corpus
// embeddings must come from the same model, otherwise similarity scores are
// meaningless.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Index is a queryable handle scoped to one namespace. It is created once per
// source ID and reused on every subsequent access.
type Index interface {
	Namespace() string
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
}

// IndexStore owns the mapping from source ID to persisted index. Exists must
// have no side effects beyond the check itself. Build embeds every chunk,
// persists the index and returns the build's embedding cost in USD.
// GetOrCreate guarantees at most one build per distinct source ID within a
// process; the cache-hit path reports cost 0.
type IndexStore interface {
	Exists(ctx context.Context, sourceID string) (bool, error)
	Build(ctx context.Context, sourceID string, chunks []Chunk) (Index, float64, error)
	GetOrCreate(ctx context.Context, sourceID string, supply ChunkSupplier) (Index, float64, error)
}
