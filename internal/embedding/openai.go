package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultModel is the embedding model used when none is configured. Its
// vector dimension is fixed per model.
const (
	DefaultModel     = "text-embedding-3-large"
	DefaultDimension = 3072
	defaultBatchSize = 100
)

// Config configures the OpenAI-backed embedder.
type Config struct {
	APIKeyEnv string
	Model     string
	Dimension int
	BatchSize int
	CacheSize int
}

// Client wraps a langchaingo embedder with a fixed dimension and an optional
// LRU cache for repeated query texts.
type Client struct {
	impl      embeddings.Embedder
	dimension int
	cache     *lru.Cache[string, []float32]
}

// New builds the embedding client. The API key is read from the configured
// environment variable, keeping secrets out of config files.
func New(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("embedding: missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	llm, err := openai.New(
		openai.WithToken(key),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("embedding: init openai client: %w", err)
	}
	impl, err := embeddings.NewEmbedder(llm,
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithStripNewLines(true),
	)
	if err != nil {
		return nil, fmt.Errorf("embedding: construct embedder: %w", err)
	}
	c := &Client{impl: impl, dimension: cfg.Dimension}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []float32](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("embedding: init cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Dimension returns the fixed dimension of vectors produced by this model.
func (c *Client) Dimension() int { return c.dimension }

// EmbedDocuments embeds a batch of chunk texts.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := c.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding: embed %d documents: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding: got %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

// EmbedQuery embeds a single query text, serving repeats from the cache.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("embedding: empty query")
	}
	key := cacheKey(text)
	if c.cache != nil {
		if vector, ok := c.cache.Get(key); ok {
			return cloneVector(vector), nil
		}
	}
	vector, err := c.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding: embed query: %w", err)
	}
	if c.cache != nil {
		c.cache.Add(key, cloneVector(vector))
	}
	return vector, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(src []float32) []float32 {
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}
