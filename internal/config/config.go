package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/midiacode/contentchat/internal/pricing"
)

// SourcesConfig lists the knowledge base sources and the namespace their
// index lives under.
type SourcesConfig struct {
	SourceID string   `yaml:"source_id"`
	PDFPaths []string `yaml:"pdf_paths"`
	PageURLs []string `yaml:"page_urls"`
}

// ChunkingConfig configures how source text is split into chunks.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbedderConfig configures the OpenAI embedding client.
type EmbedderConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
	CacheSize int    `yaml:"cache_size"`
}

// GeneratorConfig configures the chat completion model and the promotional
// footer on knowledge base answers.
type GeneratorConfig struct {
	Model        string `yaml:"model"`
	AppendFooter bool   `yaml:"append_footer"`
}

// VectorStoreConfig selects and configures the index store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Local  *LocalConfig  `yaml:"local,omitempty"`
	Remote *RemoteConfig `yaml:"remote,omitempty"`
}

// LocalConfig contains settings for the file-backed index store.
type LocalConfig struct {
	Dir string `yaml:"dir"`
}

// RemoteConfig contains connection details for the managed index service.
type RemoteConfig struct {
	ControllerURL string `yaml:"controller_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	IndexName     string `yaml:"index_name"`
	Metric        string `yaml:"metric"`
	Cloud         string `yaml:"cloud"`
	Region        string `yaml:"region"`
	BatchSize     int    `yaml:"batch_size"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
	ReadyRetries  int    `yaml:"ready_retries"`
}

// PricingConfig overrides the per-unit USD rates. Zero values keep the
// defaults.
type PricingConfig struct {
	EmbeddingPerMillion float64 `yaml:"embedding_per_million"`
	InputPerMillion     float64 `yaml:"input_per_million"`
	OutputPerMillion    float64 `yaml:"output_per_million"`
	PerImage            float64 `yaml:"per_image"`
}

// Prices converts the per-million overrides into per-token rates, keeping
// the defaults for zero fields.
func (p PricingConfig) Prices() pricing.Prices {
	out := pricing.DefaultPrices()
	if p.EmbeddingPerMillion != 0 {
		out.EmbeddingPerToken = p.EmbeddingPerMillion / 1_000_000
	}
	if p.InputPerMillion != 0 {
		out.InputPerToken = p.InputPerMillion / 1_000_000
	}
	if p.OutputPerMillion != 0 {
		out.OutputPerToken = p.OutputPerMillion / 1_000_000
	}
	if p.PerImage != 0 {
		out.PerImage = p.PerImage
	}
	return out
}

// ContentSpotConfig configures the short code resolution API.
type ContentSpotConfig struct {
	BaseURL  string `yaml:"base_url"`
	AppLabel string `yaml:"app_label"`
	Language string `yaml:"language"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Sources     SourcesConfig     `yaml:"sources"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Pricing     PricingConfig     `yaml:"pricing"`
	ContentSpot ContentSpotConfig `yaml:"contentspot"`
	LogLevel    string            `yaml:"log_level"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/contentchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/contentchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "contentchat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Sources:     SourcesConfig{SourceID: "company-kb"},
		Chunking:    ChunkingConfig{Size: 1000, Overlap: 200},
		Embedder:    EmbedderConfig{},
		Generator:   GeneratorConfig{Model: "gpt-3.5-turbo-0125"},
		VectorStore: VectorStoreConfig{Type: "local", Local: &LocalConfig{Dir: "indexes"}},
		ContentSpot: ContentSpotConfig{AppLabel: "contentchat"},
		LogLevel:    "info",
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Sources.SourceID == "" {
		cfg.Sources.SourceID = "company-kb"
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 1000
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 200
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-large"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-3.5-turbo-0125"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "local"
	}
	if cfg.VectorStore.Type == "local" && cfg.VectorStore.Local == nil {
		cfg.VectorStore.Local = &LocalConfig{Dir: "indexes"}
	}
	if cfg.VectorStore.Type == "remote" && cfg.VectorStore.Remote != nil {
		if cfg.VectorStore.Remote.APIKeyEnv == "" {
			cfg.VectorStore.Remote.APIKeyEnv = "PINECONE_API_KEY"
		}
		if cfg.VectorStore.Remote.Metric == "" {
			cfg.VectorStore.Remote.Metric = "cosine"
		}
		if cfg.VectorStore.Remote.TimeoutSecs == 0 {
			cfg.VectorStore.Remote.TimeoutSecs = 30
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
