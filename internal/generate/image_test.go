package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midiacode/contentchat/internal/pricing"
)

func newImageServer(t *testing.T, url string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/images/generations", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, float64(1), body["n"])
		require.NotEmpty(t, body["prompt"])
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"url": url}},
		}))
	}))
}

func TestImageCreateReturnsURLAndFlatCost(t *testing.T) {
	server := newImageServer(t, "https://cdn.example.com/out.png")
	defer server.Close()
	t.Setenv("TEST_IMAGE_KEY", "sk-test")

	gen, err := NewImageGenerator(ImageConfig{
		BaseURL:   server.URL,
		APIKeyEnv: "TEST_IMAGE_KEY",
	}, pricing.NewMeter(runeCounter{}, pricing.DefaultPrices()))
	require.NoError(t, err)

	url, cost, err := gen.Create(context.Background(), "um logotipo azul", "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/out.png", url)
	assert.InDelta(t, pricing.DefaultImagePricePerGeneration, cost, 1e-12)
}

func TestImageCreateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()
	t.Setenv("TEST_IMAGE_KEY", "sk-test")

	gen, err := NewImageGenerator(ImageConfig{
		BaseURL:   server.URL,
		APIKeyEnv: "TEST_IMAGE_KEY",
	}, pricing.NewMeter(runeCounter{}, pricing.DefaultPrices()))
	require.NoError(t, err)

	_, _, err = gen.Create(context.Background(), "prompt", "")
	assert.Error(t, err)
}

func TestNewImageGeneratorRequiresKey(t *testing.T) {
	t.Setenv("TEST_IMAGE_KEY_MISSING", "")
	_, err := NewImageGenerator(ImageConfig{APIKeyEnv: "TEST_IMAGE_KEY_MISSING"},
		pricing.NewMeter(runeCounter{}, pricing.DefaultPrices()))
	assert.Error(t, err)
}
