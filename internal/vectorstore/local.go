package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/midiacode/contentchat/internal/domain"
	"github.com/midiacode/contentchat/internal/logger"
	"github.com/midiacode/contentchat/internal/pricing"
)

// LocalStore persists one index file per source ID under a base directory.
// The file name is derived deterministically from the source ID, so Exists is
// a plain stat and a loaded index answers queries byte-for-byte like the one
// that was originally built.
type LocalStore struct {
	dir      string
	embedder domain.Embedder
	meter    *pricing.Meter
	guard    buildGuard

	mu   sync.Mutex
	open map[string]*localIndex
}

func NewLocalStore(dir string, embedder domain.Embedder, meter *pricing.Meter) (*LocalStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local store: ensure directory %s: %w", dir, err)
	}
	return &LocalStore{
		dir:      dir,
		embedder: embedder,
		meter:    meter,
		open:     make(map[string]*localIndex),
	}, nil
}

func (s *LocalStore) indexPath(sourceID string) (string, error) {
	if strings.TrimSpace(sourceID) == "" {
		return "", errors.New("local store: source id is required")
	}
	if strings.ContainsAny(sourceID, `/\`) {
		return "", fmt.Errorf("local store: invalid source id %q", sourceID)
	}
	return filepath.Join(s.dir, sourceID+"_index"), nil
}

// Exists reports whether a persisted index file is present for the source.
func (s *LocalStore) Exists(_ context.Context, sourceID string) (bool, error) {
	path, err := s.indexPath(sourceID)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("local store: stat %s: %w", path, err)
	}
	return true, nil
}

// Build embeds every chunk, persists the index snapshot and returns the
// handle together with the build's embedding cost.
func (s *LocalStore) Build(ctx context.Context, sourceID string, chunks []domain.Chunk) (domain.Index, float64, error) {
	path, err := s.indexPath(sourceID)
	if err != nil {
		return nil, 0, err
	}
	records, cost, err := embedChunks(ctx, s.embedder, s.meter, sourceID, chunks)
	if err != nil {
		return nil, 0, err
	}
	index := &localIndex{
		namespace: sourceID,
		dimension: s.embedder.Dimension(),
		records:   records,
	}
	if err := index.save(path); err != nil {
		return nil, 0, fmt.Errorf("build index %s: %w", sourceID, err)
	}
	s.mu.Lock()
	s.open[sourceID] = index
	s.mu.Unlock()
	logger.FromContext(ctx).Info("local index built",
		"source_id", sourceID, "records", len(records), "cost_usd", cost)
	return index, cost, nil
}

// GetOrCreate returns the existing index for the source without re-embedding,
// building it first when absent. Chunks are materialized lazily: on the
// cache-hit path the supplier is never invoked and the reported cost is 0.
func (s *LocalStore) GetOrCreate(ctx context.Context, sourceID string, supply domain.ChunkSupplier) (domain.Index, float64, error) {
	return s.guard.do(sourceID, func() (domain.Index, float64, error) {
		s.mu.Lock()
		cached, ok := s.open[sourceID]
		s.mu.Unlock()
		if ok {
			return cached, 0, nil
		}
		exists, err := s.Exists(ctx, sourceID)
		if err != nil {
			return nil, 0, err
		}
		if exists {
			index, err := s.load(sourceID)
			if err != nil {
				return nil, 0, err
			}
			return index, 0, nil
		}
		chunks, err := supply(ctx)
		if err != nil {
			return nil, 0, err
		}
		return s.Build(ctx, sourceID, chunks)
	})
}

func (s *LocalStore) load(sourceID string) (*localIndex, error) {
	path, err := s.indexPath(sourceID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("local store: read %s: %w", path, err)
	}
	var snap indexSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("local store: decode %s: %w", path, err)
	}
	if snap.Namespace != sourceID {
		return nil, fmt.Errorf("local store: %s holds namespace %q, want %q", path, snap.Namespace, sourceID)
	}
	index := &localIndex{
		namespace: snap.Namespace,
		dimension: snap.Dimension,
		records:   snap.Records,
	}
	s.mu.Lock()
	s.open[sourceID] = index
	s.mu.Unlock()
	return index, nil
}

// localIndex is an in-process index over one namespace with brute-force
// cosine search.
type localIndex struct {
	namespace string
	dimension int
	records   []domain.Record
}

type indexSnapshot struct {
	Namespace string          `json:"namespace"`
	Dimension int             `json:"dimension"`
	Records   []domain.Record `json:"records"`
}

func (ix *localIndex) Namespace() string { return ix.namespace }

func (ix *localIndex) Query(_ context.Context, vector []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	matches := make([]domain.Match, 0, len(ix.records))
	for i := range ix.records {
		rec := &ix.records[i]
		matches = append(matches, domain.Match{
			ID:    rec.ID,
			Score: cosineSimilarity(rec.Vector, vector),
			Text:  rec.Metadata[metadataTextKey],
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// save writes the snapshot to a temp file and renames it into place so a
// crashed build never leaves a truncated index behind.
func (ix *localIndex) save(path string) error {
	snap := indexSnapshot{
		Namespace: ix.namespace,
		Dimension: ix.dimension,
		Records:   ix.records,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}
