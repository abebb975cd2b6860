package vectorstore

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"
)

// fakeEmbedder produces deterministic bag-of-words vectors so that a query
// equal to an indexed text always scores highest against it.
type fakeEmbedder struct {
	dim   int
	calls atomic.Int64
}

func newFakeEmbedder() *fakeEmbedder { return &fakeEmbedder{dim: 16} }

func (f *fakeEmbedder) Dimension() int { return f.dim }

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return f.vector(text), nil
}

func (f *fakeEmbedder) vector(text string) []float32 {
	v := make([]float32, f.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		v[int(h.Sum32())%f.dim]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range v {
			v[i] /= n
		}
	}
	return v
}
