package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/midiacode/contentchat/internal/pricing"
)

// DefaultImageModel matches the observed image generation model.
const DefaultImageModel = "dall-e-2"

// ImageConfig configures the image generation client.
type ImageConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// ImageGenerator creates images from prompts at a flat metered price per
// call.
type ImageGenerator struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	meter   *pricing.Meter
}

func NewImageGenerator(cfg ImageConfig, meter *pricing.Meter) (*ImageGenerator, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("generate: missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultImageModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &ImageGenerator{
		baseURL: cfg.BaseURL,
		apiKey:  key,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
		meter:   meter,
	}, nil
}

// Create generates one image and returns its URL with the call's flat cost.
func (g *ImageGenerator) Create(ctx context.Context, prompt, size string) (string, float64, error) {
	if size == "" {
		size = "1024x1024"
	}
	body := map[string]any{
		"model":  g.model,
		"prompt": prompt,
		"size":   size,
		"n":      1,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/images/generations", bytes.NewReader(data))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	resp, err := g.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("generate: image call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("generate: image call: %s", resp.Status)
	}
	var out struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("generate: decode image response: %w", err)
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		return "", 0, errors.New("generate: no image returned")
	}
	return out.Data[0].URL, g.meter.ImageCost(), nil
}
