package vectorstore

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/singleflight"

	"github.com/midiacode/contentchat/internal/domain"
	"github.com/midiacode/contentchat/internal/pricing"
)

// DefaultTopK matches the retrieval default; the index engine may cap higher
// values.
const DefaultTopK = 20

// metadataTextKey is where the original chunk text lives in record metadata.
const metadataTextKey = "text"

type buildResult struct {
	index domain.Index
	cost  float64
}

// buildGuard serializes GetOrCreate per source ID within the process so a
// burst of identical requests performs at most one build. Cross-process
// callers are not synchronized; concurrent builds from independent processes
// can duplicate embedding work (documented race).
type buildGuard struct {
	group singleflight.Group
}

func (g *buildGuard) do(sourceID string, fn func() (domain.Index, float64, error)) (domain.Index, float64, error) {
	v, err, _ := g.group.Do(sourceID, func() (any, error) {
		index, cost, err := fn()
		if err != nil {
			return nil, err
		}
		return buildResult{index: index, cost: cost}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	res := v.(buildResult)
	return res.index, res.cost, nil
}

// embedChunks embeds every chunk, producing namespaced records with the
// original text as metadata and IDs derived from storage position. The
// returned cost is the one-time embedding cost of the whole batch.
func embedChunks(
	ctx context.Context,
	embedder domain.Embedder,
	meter *pricing.Meter,
	sourceID string,
	chunks []domain.Chunk,
) ([]domain.Record, float64, error) {
	if len(chunks) == 0 {
		return nil, 0, fmt.Errorf("build index %s: %w", sourceID, domain.ErrNoSources)
	}
	texts := make([]string, len(chunks))
	tokens := 0
	for i, chunk := range chunks {
		texts[i] = chunk.Text
		tokens += meter.TokenCount(chunk.Text)
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, 0, fmt.Errorf("build index %s: %w", sourceID, err)
	}
	records := make([]domain.Record, len(chunks))
	for i := range chunks {
		records[i] = domain.Record{
			ID:        fmt.Sprintf("%s-%05d", sourceID, chunks[i].Ordinal),
			Vector:    vectors[i],
			Metadata:  map[string]string{metadataTextKey: chunks[i].Text},
			Namespace: sourceID,
		}
	}
	return records, meter.EmbeddingCost(tokens), nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
