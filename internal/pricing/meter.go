package pricing

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Default per-unit prices in USD, matching the OpenAI list prices for the
// default models.
const (
	DefaultEmbeddingPricePerToken  = 0.10 / 1_000_000
	DefaultInputPricePerToken      = 0.50 / 1_000_000
	DefaultOutputPricePerToken     = 1.50 / 1_000_000
	DefaultImagePricePerGeneration = 0.016
)

const fallbackEncoding = "cl100k_base"

// Prices holds the per-unit USD rates used by the cost meter.
type Prices struct {
	EmbeddingPerToken float64
	InputPerToken     float64
	OutputPerToken    float64
	PerImage          float64
}

// DefaultPrices returns the observed list prices.
func DefaultPrices() Prices {
	return Prices{
		EmbeddingPerToken: DefaultEmbeddingPricePerToken,
		InputPerToken:     DefaultInputPricePerToken,
		OutputPerToken:    DefaultOutputPricePerToken,
		PerImage:          DefaultImagePricePerGeneration,
	}
}

// TokenCounter counts tokens the way the configured model's vocabulary does.
// Implementations must be deterministic and free of I/O per call.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with the tiktoken vocabulary for a model.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter resolves the encoding for the given model name, falling
// back to cl100k_base for models tiktoken does not know.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("pricing: load encoding %s: %w", fallbackEncoding, err)
		}
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Meter converts token counts into USD cost estimates. All methods are pure.
type Meter struct {
	counter TokenCounter
	prices  Prices
}

func NewMeter(counter TokenCounter, prices Prices) *Meter {
	return &Meter{counter: counter, prices: prices}
}

// TokenCount tokenizes text with the embedding model's vocabulary.
func (m *Meter) TokenCount(text string) int {
	return m.counter.Count(text)
}

// EmbeddingCost is tokens times the embedding price per token.
func (m *Meter) EmbeddingCost(tokens int) float64 {
	return float64(tokens) * m.prices.EmbeddingPerToken
}

// GenerationCost prices a completion from its usage metadata.
func (m *Meter) GenerationCost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)*m.prices.InputPerToken +
		float64(completionTokens)*m.prices.OutputPerToken
}

// ImageCost is the flat price of one image generation call.
func (m *Meter) ImageCost() float64 {
	return m.prices.PerImage
}

// Ledger accumulates per-operation costs into a session total. The core never
// touches it: every cost-incurring operation returns its own increment and
// the caller decides what to sum.
type Ledger struct {
	mu    sync.Mutex
	total float64
}

func (l *Ledger) Add(usd float64) {
	l.mu.Lock()
	l.total += usd
	l.mu.Unlock()
}

func (l *Ledger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
