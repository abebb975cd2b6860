package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/midiacode/contentchat/internal/domain"
	"github.com/midiacode/contentchat/internal/logger"
	"github.com/midiacode/contentchat/internal/pricing"
)

const (
	defaultUpsertBatchSize   = 100
	defaultReadyMaxRetries   = 8
	defaultReadyBackoffBase  = 500 * time.Millisecond
	defaultRemoteHTTPTimeout = 30 * time.Second
)

// RemoteConfig connects to a managed serverless vector index. One index holds
// all knowledge sources, partitioned by namespace.
type RemoteConfig struct {
	ControllerURL string
	APIKey        string
	IndexName     string
	Dimension     int
	Metric        string
	Cloud         string
	Region        string
	BatchSize     int
	Timeout       time.Duration
	ReadyRetries  uint64
}

// RemoteStore implements IndexStore against the managed service. Namespaces
// map 1:1 onto source IDs; the outer index container is created on demand.
type RemoteStore struct {
	cfg      RemoteConfig
	client   *http.Client
	embedder domain.Embedder
	meter    *pricing.Meter
	guard    buildGuard

	mu   sync.Mutex
	host string
}

func NewRemoteStore(cfg RemoteConfig, embedder domain.Embedder, meter *pricing.Meter) (*RemoteStore, error) {
	if cfg.ControllerURL == "" {
		return nil, fmt.Errorf("remote store: controller URL is required")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("remote store: index name is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("remote store: dimension must be positive")
	}
	if cfg.Metric == "" {
		cfg.Metric = "cosine"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultUpsertBatchSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultRemoteHTTPTimeout
	}
	if cfg.ReadyRetries == 0 {
		cfg.ReadyRetries = defaultReadyMaxRetries
	}
	return &RemoteStore{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		embedder: embedder,
		meter:    meter,
	}, nil
}

type indexDescription struct {
	Name   string `json:"name"`
	Host   string `json:"host"`
	Status struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// EnsureReady checks that the managed index container exists, creating it
// with the configured dimension and metric when absent, and polls readiness
// with bounded exponential backoff. Past the retry budget it fails with
// ErrIndexNotReady instead of looping forever.
func (s *RemoteStore) EnsureReady(ctx context.Context) error {
	s.mu.Lock()
	ready := s.host != ""
	s.mu.Unlock()
	if ready {
		return nil
	}
	desc, err := s.describeIndex(ctx)
	if err != nil {
		return err
	}
	if desc == nil {
		logger.FromContext(ctx).Info("creating managed index",
			"index", s.cfg.IndexName, "dimension", s.cfg.Dimension, "metric", s.cfg.Metric)
		if err := s.createIndex(ctx); err != nil {
			return err
		}
	}
	backoff := retry.WithMaxRetries(s.cfg.ReadyRetries, retry.NewExponential(defaultReadyBackoffBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		desc, err := s.describeIndex(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		if desc == nil || !desc.Status.Ready {
			return retry.RetryableError(fmt.Errorf("index %s not ready", s.cfg.IndexName))
		}
		s.mu.Lock()
		s.host = normalizeHost(desc.Host)
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrIndexNotReady, s.cfg.IndexName, err)
	}
	return nil
}

// Exists queries the index statistics for the namespace. Aside from lazily
// ensuring the container, the check itself has no side effects.
func (s *RemoteStore) Exists(ctx context.Context, sourceID string) (bool, error) {
	if err := s.EnsureReady(ctx); err != nil {
		return false, err
	}
	var stats struct {
		Namespaces map[string]json.RawMessage `json:"namespaces"`
	}
	if err := s.postJSON(ctx, s.dataURL("/describe_index_stats"), map[string]any{}, &stats); err != nil {
		return false, fmt.Errorf("remote store: describe stats: %w", err)
	}
	_, ok := stats.Namespaces[sourceID]
	return ok, nil
}

// Build embeds every chunk and upserts the records into the namespace in
// fixed-size batches to respect payload limits. A failure mid-way leaves
// already-upserted batches in place: the namespace is never reported ready,
// so the next GetOrCreate retries the build and the position-derived record
// IDs make the re-upsert overwrite rather than duplicate.
func (s *RemoteStore) Build(ctx context.Context, sourceID string, chunks []domain.Chunk) (domain.Index, float64, error) {
	if err := s.EnsureReady(ctx); err != nil {
		return nil, 0, err
	}
	records, cost, err := embedChunks(ctx, s.embedder, s.meter, sourceID, chunks)
	if err != nil {
		return nil, 0, err
	}
	log := logger.FromContext(ctx)
	for start := 0; start < len(records); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.upsert(ctx, sourceID, records[start:end]); err != nil {
			return nil, 0, fmt.Errorf("build index %s: upsert batch %d-%d: %w", sourceID, start, end, err)
		}
		log.Debug("upserted batch", "source_id", sourceID, "from", start, "to", end)
	}
	log.Info("remote index built",
		"source_id", sourceID, "records", len(records), "cost_usd", cost)
	return &remoteIndex{store: s, namespace: sourceID}, cost, nil
}

// GetOrCreate attaches to the namespace when it already holds data, building
// it otherwise. At most one build runs per source ID within the process.
func (s *RemoteStore) GetOrCreate(ctx context.Context, sourceID string, supply domain.ChunkSupplier) (domain.Index, float64, error) {
	return s.guard.do(sourceID, func() (domain.Index, float64, error) {
		exists, err := s.Exists(ctx, sourceID)
		if err != nil {
			return nil, 0, err
		}
		if exists {
			logger.FromContext(ctx).Info("namespace already indexed", "source_id", sourceID)
			return &remoteIndex{store: s, namespace: sourceID}, 0, nil
		}
		chunks, err := supply(ctx)
		if err != nil {
			return nil, 0, err
		}
		return s.Build(ctx, sourceID, chunks)
	})
}

func (s *RemoteStore) upsert(ctx context.Context, namespace string, records []domain.Record) error {
	type vectorPayload struct {
		ID       string            `json:"id"`
		Values   []float32         `json:"values"`
		Metadata map[string]string `json:"metadata"`
	}
	vectors := make([]vectorPayload, len(records))
	for i, rec := range records {
		vectors[i] = vectorPayload{ID: rec.ID, Values: rec.Vector, Metadata: rec.Metadata}
	}
	body := map[string]any{"vectors": vectors, "namespace": namespace}
	return s.postJSON(ctx, s.dataURL("/vectors/upsert"), body, nil)
}

// remoteIndex is a queryable handle scoped to one namespace.
type remoteIndex struct {
	store     *RemoteStore
	namespace string
}

func (ix *remoteIndex) Namespace() string { return ix.namespace }

// Query runs a top-K similarity search scoped to the namespace, requesting
// metadata but not raw vectors to keep responses small.
func (ix *remoteIndex) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	body := map[string]any{
		"namespace":       ix.namespace,
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
		"includeValues":   false,
	}
	var out struct {
		Matches []struct {
			ID       string            `json:"id"`
			Score    float64           `json:"score"`
			Metadata map[string]string `json:"metadata"`
		} `json:"matches"`
	}
	if err := ix.store.postJSON(ctx, ix.store.dataURL("/query"), body, &out); err != nil {
		return nil, fmt.Errorf("query namespace %s: %w", ix.namespace, err)
	}
	matches := make([]domain.Match, 0, len(out.Matches))
	for _, m := range out.Matches {
		matches = append(matches, domain.Match{ID: m.ID, Score: m.Score, Text: m.Metadata[metadataTextKey]})
	}
	return matches, nil
}

func (s *RemoteStore) describeIndex(ctx context.Context) (*indexDescription, error) {
	url := fmt.Sprintf("%s/indexes/%s", strings.TrimSuffix(s.cfg.ControllerURL, "/"), s.cfg.IndexName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	s.setHeaders(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote store: describe index: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("remote store: describe index: %s", resp.Status)
	}
	var desc indexDescription
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return nil, fmt.Errorf("remote store: decode index description: %w", err)
	}
	return &desc, nil
}

func (s *RemoteStore) createIndex(ctx context.Context) error {
	body := map[string]any{
		"name":      s.cfg.IndexName,
		"dimension": s.cfg.Dimension,
		"metric":    s.cfg.Metric,
		"spec": map[string]any{
			"serverless": map[string]any{
				"cloud":  s.cfg.Cloud,
				"region": s.cfg.Region,
			},
		},
	}
	url := strings.TrimSuffix(s.cfg.ControllerURL, "/") + "/indexes"
	if err := s.postJSON(ctx, url, body, nil); err != nil {
		return fmt.Errorf("remote store: create index %s: %w", s.cfg.IndexName, err)
	}
	return nil
}

func (s *RemoteStore) dataURL(path string) string {
	s.mu.Lock()
	host := s.host
	s.mu.Unlock()
	return host + path
}

func normalizeHost(host string) string {
	if strings.Contains(host, "://") {
		return strings.TrimSuffix(host, "/")
	}
	return "https://" + strings.TrimSuffix(host, "/")
}

func (s *RemoteStore) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Api-Key", s.cfg.APIKey)
	}
}

func (s *RemoteStore) postJSON(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	s.setHeaders(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
