package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/midiacode/contentchat/internal/domain"
	"github.com/midiacode/contentchat/internal/logger"
)

// DefaultTopK is the number of nearest chunks fetched per query. Values of
// 20-30 are fine; the index engine may cap higher requests.
const DefaultTopK = 20

// Service retrieves the context for a question from a vector index. The
// query is embedded with the same embedder used at build time; mixing models
// would make similarity scores meaningless.
type Service struct {
	embedder domain.Embedder
	topK     int
}

func NewService(embedder domain.Embedder, topK int) (*Service, error) {
	if embedder == nil {
		return nil, errors.New("retrieval: embedder is required")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{embedder: embedder, topK: topK}, nil
}

// Retrieve returns the top-K matching chunk texts joined by newlines. Zero
// matches is reported as ErrNoContext rather than an empty string, so the
// caller can special-case grounding failure.
func (s *Service) Retrieve(ctx context.Context, question string, index domain.Index) (string, error) {
	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", fmt.Errorf("retrieval: embed query: %w", err)
	}
	matches, err := index.Query(ctx, vector, s.topK)
	if err != nil {
		return "", fmt.Errorf("retrieval: query namespace %s: %w", index.Namespace(), err)
	}
	if len(matches) == 0 {
		return "", domain.ErrNoContext
	}
	logger.FromContext(ctx).Debug("context retrieved",
		"namespace", index.Namespace(), "matches", len(matches))
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Text == "" {
			continue
		}
		texts = append(texts, m.Text)
	}
	if len(texts) == 0 {
		return "", domain.ErrNoContext
	}
	return strings.Join(texts, "\n"), nil
}
