package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/midiacode/contentchat/internal/chat"
	"github.com/midiacode/contentchat/internal/config"
	"github.com/midiacode/contentchat/internal/contentspot"
	"github.com/midiacode/contentchat/internal/domain"
	"github.com/midiacode/contentchat/internal/embedding"
	"github.com/midiacode/contentchat/internal/extract"
	"github.com/midiacode/contentchat/internal/generate"
	"github.com/midiacode/contentchat/internal/logger"
	"github.com/midiacode/contentchat/internal/pricing"
	"github.com/midiacode/contentchat/internal/retrieval"
	"github.com/midiacode/contentchat/internal/tui"
	"github.com/midiacode/contentchat/internal/vectorstore"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to config YAML")
	question := flag.String("question", "", "Answer one question and exit")
	code := flag.String("code", "", "Chat about the content behind a short code instead of the knowledge base")
	imagePrompt := flag.String("image", "", "Generate one image from a prompt and exit")
	flag.Parse()

	// Optional; a missing .env just means the environment is already set.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatalf("failed to load config: %v", err)
	}
	log := logger.New(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	if *imagePrompt != "" {
		if err := generateImage(ctx, cfg, *imagePrompt); err != nil {
			fatalf("image generation failed: %v", err)
		}
		return
	}

	assistant, err := buildAssistant(cfg)
	if err != nil {
		fatalf("%v", err)
	}

	answer := assistant.AnswerKnowledgeBase
	title := "Midiacode Chat"
	if *code != "" {
		shortCode := *code
		answer = func(ctx context.Context, q string) (chat.Answer, error) {
			return assistant.AnswerForCode(ctx, shortCode, q)
		}
		title = "Midiacode Chat — " + shortCode
	}

	if *question != "" {
		got, err := answer(ctx, *question)
		if err != nil {
			fatalf("answer failed: %v", err)
		}
		fmt.Println(got.Text)
		fmt.Printf("\ncusto: US$ %.6f (índice US$ %.6f, resposta US$ %.6f)\n",
			got.Total(), got.BuildCost, got.AnswerCost)
		return
	}

	ledger := &pricing.Ledger{}
	wrapped := func(ctx context.Context, q string) (chat.Answer, error) {
		return answer(logger.WithContext(ctx, log), q)
	}
	m := tui.New(wrapped, ledger, title)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fatalf("%v", err)
	}
}

// buildAssistant wires every component from config. The vector store switch
// is the only structural decision: both backends satisfy the same contract.
func buildAssistant(cfg *config.AppConfig) (*chat.Assistant, error) {
	counter, err := pricing.NewTiktokenCounter(cfg.Embedder.Model)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	meter := pricing.NewMeter(counter, cfg.Pricing.Prices())

	embedder, err := embedding.New(embedding.Config{
		APIKeyEnv: cfg.Embedder.APIKeyEnv,
		Model:     cfg.Embedder.Model,
		Dimension: cfg.Embedder.Dimension,
		BatchSize: cfg.Embedder.BatchSize,
		CacheSize: cfg.Embedder.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	var store domain.IndexStore
	switch cfg.VectorStore.Type {
	case "local", "":
		dir := "indexes"
		if cfg.VectorStore.Local != nil {
			dir = cfg.VectorStore.Local.Dir
		}
		store, err = vectorstore.NewLocalStore(dir, embedder, meter)
	case "remote":
		if cfg.VectorStore.Remote == nil {
			return nil, fmt.Errorf("remote vector store config missing")
		}
		remote := cfg.VectorStore.Remote
		store, err = vectorstore.NewRemoteStore(vectorstore.RemoteConfig{
			ControllerURL: remote.ControllerURL,
			APIKey:        os.Getenv(remote.APIKeyEnv),
			IndexName:     remote.IndexName,
			Dimension:     embedder.Dimension(),
			Metric:        remote.Metric,
			Cloud:         remote.Cloud,
			Region:        remote.Region,
			BatchSize:     remote.BatchSize,
			Timeout:       time.Duration(remote.TimeoutSecs) * time.Second,
			ReadyRetries:  uint64(remote.ReadyRetries),
		}, embedder, meter)
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}

	model, err := openai.New(openai.WithModel(cfg.Generator.Model))
	if err != nil {
		return nil, fmt.Errorf("chat model: %w", err)
	}
	generator, err := generate.NewGenerator(model, meter)
	if err != nil {
		return nil, err
	}

	retriever, err := retrieval.NewService(embedder, 0)
	if err != nil {
		return nil, err
	}

	extractor, err := extract.New(extract.Config{
		ChunkSize:    cfg.Chunking.Size,
		ChunkOverlap: cfg.Chunking.Overlap,
	})
	if err != nil {
		return nil, err
	}

	var lookup *contentspot.Client
	if cfg.ContentSpot.AppLabel != "" {
		lookup, err = contentspot.New(contentspot.Config{
			BaseURL:  cfg.ContentSpot.BaseURL,
			AppLabel: cfg.ContentSpot.AppLabel,
			Language: cfg.ContentSpot.Language,
		})
		if err != nil {
			return nil, fmt.Errorf("contentspot: %w", err)
		}
	}

	return chat.NewAssistant(store, retriever, generator, extractor, lookup, chat.KnowledgeBase{
		SourceID:     cfg.Sources.SourceID,
		PDFPaths:     cfg.Sources.PDFPaths,
		PageURLs:     cfg.Sources.PageURLs,
		AppendFooter: cfg.Generator.AppendFooter,
	})
}

func generateImage(ctx context.Context, cfg *config.AppConfig, prompt string) error {
	meter := pricing.NewMeter(nullCounter{}, cfg.Pricing.Prices())
	gen, err := generate.NewImageGenerator(generate.ImageConfig{
		APIKeyEnv: cfg.Embedder.APIKeyEnv,
	}, meter)
	if err != nil {
		return err
	}
	url, cost, err := gen.Create(ctx, prompt, "")
	if err != nil {
		return err
	}
	fmt.Println(url)
	fmt.Printf("custo: US$ %.6f\n", cost)
	return nil
}

// nullCounter satisfies the meter for flat-priced image calls, which never
// tokenize anything.
type nullCounter struct{}

func (nullCounter) Count(string) int { return 0 }

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
