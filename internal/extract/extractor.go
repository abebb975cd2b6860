package extract

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/midiacode/contentchat/internal/domain"
	"github.com/midiacode/contentchat/internal/logger"
)

// Extractor turns raw sources (PDF files, web pages) into ordered chunk
// sequences. It has no external side effects beyond file and network reads.
type Extractor struct {
	splitter *Splitter
	client   *http.Client
}

type Config struct {
	ChunkSize    int
	ChunkOverlap int
	FetchTimeout time.Duration
}

func New(cfg Config) (*Extractor, error) {
	splitter, err := NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	timeout := cfg.FetchTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Extractor{
		splitter: splitter,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// KnowledgeBase concatenates chunks from every source in a fixed order: PDF
// chunks first, then web page chunks. A source that fails to fetch is logged
// and skipped as long as another source still contributes; when every source
// fails the result is ErrNoSources.
func (e *Extractor) KnowledgeBase(ctx context.Context, pdfPaths, pageURLs []string) ([]domain.Chunk, error) {
	log := logger.FromContext(ctx)
	var chunks []domain.Chunk
	var lastErr error
	for _, path := range pdfPaths {
		part, err := e.FromPDF(path)
		if err != nil {
			log.Warn("pdf source skipped", "path", path, "error", err)
			lastErr = err
			continue
		}
		log.Info("pdf source extracted", "path", path, "chunks", len(part))
		chunks = append(chunks, part...)
	}
	for _, url := range pageURLs {
		part, err := e.FromURL(ctx, url)
		if err != nil {
			var fe *domain.FetchError
			if !errors.As(err, &fe) {
				return nil, err
			}
			log.Warn("web source skipped", "url", url, "error", err)
			lastErr = err
			continue
		}
		log.Info("web source extracted", "url", url, "chunks", len(part))
		chunks = append(chunks, part...)
	}
	if len(chunks) == 0 {
		if lastErr != nil {
			return nil, errors.Join(domain.ErrNoSources, lastErr)
		}
		return nil, domain.ErrNoSources
	}
	// Reassign ordinals across the concatenated sequence.
	for i := range chunks {
		chunks[i].Ordinal = i
	}
	return chunks, nil
}

// Supplier adapts the knowledge base extraction into a lazy chunk supplier
// for IndexStore.GetOrCreate.
func (e *Extractor) Supplier(pdfPaths, pageURLs []string) domain.ChunkSupplier {
	return func(ctx context.Context) ([]domain.Chunk, error) {
		return e.KnowledgeBase(ctx, pdfPaths, pageURLs)
	}
}
