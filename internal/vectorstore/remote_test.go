package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midiacode/contentchat/internal/domain"
)

// fakeManagedIndex emulates the managed vector service: index container
// lifecycle on the controller plane, namespaces/upsert/query on the data
// plane.
type fakeManagedIndex struct {
	mu          sync.Mutex
	created     bool
	neverReady  bool
	failBatches bool
	upserts     []int
	records     map[string][]storedRecord
	srv         *httptest.Server
}

type storedRecord struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata"`
}

func newFakeManagedIndex(t *testing.T) *fakeManagedIndex {
	t.Helper()
	f := &fakeManagedIndex{records: make(map[string][]storedRecord)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeManagedIndex) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/indexes/test-index":
		if !f.created {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		resp := map[string]any{
			"name":   "test-index",
			"host":   f.srv.URL,
			"status": map[string]any{"ready": !f.neverReady, "state": "Ready"},
		}
		json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodPost && r.URL.Path == "/indexes":
		f.created = true
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodPost && r.URL.Path == "/describe_index_stats":
		namespaces := make(map[string]any)
		for ns, recs := range f.records {
			namespaces[ns] = map[string]any{"vectorCount": len(recs)}
		}
		json.NewEncoder(w).Encode(map[string]any{"namespaces": namespaces})
	case r.Method == http.MethodPost && r.URL.Path == "/vectors/upsert":
		if f.failBatches && len(f.upserts) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var body struct {
			Vectors   []storedRecord `json:"vectors"`
			Namespace string         `json:"namespace"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.upserts = append(f.upserts, len(body.Vectors))
		f.records[body.Namespace] = append(f.records[body.Namespace], body.Vectors...)
		json.NewEncoder(w).Encode(map[string]any{"upsertedCount": len(body.Vectors)})
	case r.Method == http.MethodPost && r.URL.Path == "/query":
		var body struct {
			Namespace string    `json:"namespace"`
			Vector    []float32 `json:"vector"`
			TopK      int       `json:"topK"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		matches := make([]map[string]any, 0)
		for _, rec := range f.records[body.Namespace] {
			matches = append(matches, map[string]any{
				"id":       rec.ID,
				"score":    cosineSimilarity(rec.Values, body.Vector),
				"metadata": rec.Metadata,
			})
			if len(matches) == body.TopK {
				break
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"matches": matches})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newRemoteUnderTest(t *testing.T, f *fakeManagedIndex, emb domain.Embedder) *RemoteStore {
	t.Helper()
	store, err := NewRemoteStore(RemoteConfig{
		ControllerURL: f.srv.URL,
		APIKey:        "test-key",
		IndexName:     "test-index",
		Dimension:     16,
		Cloud:         "aws",
		Region:        "us-east-1",
		ReadyRetries:  2,
	}, emb, testMeter())
	require.NoError(t, err)
	return store
}

func TestRemoteEnsureReadyCreatesMissingIndex(t *testing.T) {
	f := newFakeManagedIndex(t)
	store := newRemoteUnderTest(t, f, newFakeEmbedder())

	require.NoError(t, store.EnsureReady(context.Background()))
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.True(t, f.created)
}

func TestRemoteEnsureReadyBoundedRetries(t *testing.T) {
	f := newFakeManagedIndex(t)
	f.neverReady = true
	store := newRemoteUnderTest(t, f, newFakeEmbedder())

	err := store.EnsureReady(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexNotReady)
}

func TestRemoteBuildUpsertsInBatchesOf100(t *testing.T) {
	f := newFakeManagedIndex(t)
	emb := newFakeEmbedder()
	store := newRemoteUnderTest(t, f, emb)

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk number %d", i)
	}
	_, cost, err := store.Build(context.Background(), "ns-1", testChunks(texts...))
	require.NoError(t, err)
	assert.Greater(t, cost, 0.0)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []int{100, 100, 50}, f.upserts)
	assert.Len(t, f.records["ns-1"], 250)
}

func TestRemoteGetOrCreateSkipsBuildWhenNamespaceExists(t *testing.T) {
	f := newFakeManagedIndex(t)
	emb := newFakeEmbedder()
	store := newRemoteUnderTest(t, f, emb)

	supply := func(context.Context) ([]domain.Chunk, error) {
		return testChunks("only build once"), nil
	}
	_, firstCost, err := store.GetOrCreate(context.Background(), "ns-2", supply)
	require.NoError(t, err)
	assert.Greater(t, firstCost, 0.0)
	assert.EqualValues(t, 1, emb.calls.Load())

	_, secondCost, err := store.GetOrCreate(context.Background(), "ns-2", func(context.Context) ([]domain.Chunk, error) {
		t.Fatal("supplier must not run when the namespace exists")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Zero(t, secondCost)
	assert.EqualValues(t, 1, emb.calls.Load())
}

func TestRemoteBuildPartialUpsertFails(t *testing.T) {
	f := newFakeManagedIndex(t)
	f.failBatches = true
	store := newRemoteUnderTest(t, f, newFakeEmbedder())

	texts := make([]string, 150)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %d", i)
	}
	_, _, err := store.Build(context.Background(), "ns-3", testChunks(texts...))
	require.Error(t, err)
	// First batch stays behind: the documented inconsistency window.
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []int{100}, f.upserts)
}

func TestRemoteQueryReturnsNamespaceMatches(t *testing.T) {
	f := newFakeManagedIndex(t)
	emb := newFakeEmbedder()
	store := newRemoteUnderTest(t, f, emb)

	index, _, err := store.Build(context.Background(), "ns-4", testChunks(
		"Q: What is Midiacode? A: A content marketing platform.",
	))
	require.NoError(t, err)
	assert.Equal(t, "ns-4", index.Namespace())

	vector, err := emb.EmbedQuery(context.Background(), "What is Midiacode?")
	require.NoError(t, err)
	matches, err := index.Query(context.Background(), vector, 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Contains(t, matches[0].Text, "content marketing platform")
}
