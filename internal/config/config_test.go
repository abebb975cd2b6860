package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midiacode/contentchat/internal/pricing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "company-kb", cfg.Sources.SourceID)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, "local", cfg.VectorStore.Type)
	require.NotNil(t, cfg.VectorStore.Local)
	assert.Equal(t, "gpt-3.5-turbo-0125", cfg.Generator.Model)
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
sources:
  source_id: acme-kb
  page_urls:
    - https://acme.example.com
vector_store:
  type: remote
  remote:
    controller_url: https://api.pinecone.io
    index_name: acme
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "acme-kb", cfg.Sources.SourceID)
	assert.Equal(t, []string{"https://acme.example.com"}, cfg.Sources.PageURLs)
	require.NotNil(t, cfg.VectorStore.Remote)
	assert.Equal(t, "PINECONE_API_KEY", cfg.VectorStore.Remote.APIKeyEnv)
	assert.Equal(t, "cosine", cfg.VectorStore.Remote.Metric)
	assert.Equal(t, 30, cfg.VectorStore.Remote.TimeoutSecs)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedder.Model)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	original := defaultConfig()
	original.Generator.AppendFooter = true
	original.Sources.PDFPaths = []string{"docs/guide.pdf"}
	require.NoError(t, Save(path, original))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestPricingOverrides(t *testing.T) {
	prices := PricingConfig{InputPerMillion: 2.0}.Prices()
	assert.InDelta(t, 2.0/1_000_000, prices.InputPerToken, 1e-15)
	assert.InDelta(t, pricing.DefaultOutputPricePerToken, prices.OutputPerToken, 1e-15)
	assert.InDelta(t, pricing.DefaultImagePricePerGeneration, prices.PerImage, 1e-15)
}
