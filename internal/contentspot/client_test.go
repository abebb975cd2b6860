package contentspot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeAPI(t *testing.T, contents map[string]Content) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/content/", r.URL.Path)
		require.Equal(t, "chat-test", r.Header.Get("Midiacode-Applabel"))
		require.NotEmpty(t, r.Header.Get("Accept-Language"))
		content, ok := contents[r.URL.Query().Get("code")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(content))
	}))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := New(Config{BaseURL: baseURL, AppLabel: "chat-test"})
	require.NoError(t, err)
	return client
}

func TestResolveKnownCode(t *testing.T) {
	server := newFakeAPI(t, map[string]Content{
		"AB12CD": {
			ContentTypeSlug: "pdf",
			Title:           "Guia de Onboarding",
			SourceURL:       "https://cdn.example.com/guia.pdf",
			ShortLink:       "https://mdc.cx/AB12CD",
		},
	})
	defer server.Close()

	content, err := newTestClient(t, server.URL).Resolve(context.Background(), "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, "Guia de Onboarding", content.Title)
	assert.Equal(t, "pdf", content.ContentTypeSlug)
	assert.Equal(t, "https://cdn.example.com/guia.pdf", content.SourceURL)
}

func TestResolveUnknownCodeIsNotFound(t *testing.T) {
	server := newFakeAPI(t, nil)
	defer server.Close()

	_, err := newTestClient(t, server.URL).Resolve(context.Background(), "ZZ99ZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveEmptyBodyIsNotFound(t *testing.T) {
	server := newFakeAPI(t, map[string]Content{"AB12CD": {}})
	defer server.Close()

	_, err := newTestClient(t, server.URL).Resolve(context.Background(), "AB12CD")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveManySkipsUnknownCodes(t *testing.T) {
	server := newFakeAPI(t, map[string]Content{
		"GOOD01": {Title: "Primeiro", SourceURL: "https://cdn.example.com/a.pdf"},
		"GOOD02": {Title: "Segundo", SourceURL: "https://cdn.example.com/b.pdf"},
	})
	defer server.Close()

	got, err := newTestClient(t, server.URL).ResolveMany(context.Background(),
		[]string{"GOOD01", "MISSING", "GOOD02"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Primeiro", got["GOOD01"].Title)
	assert.Equal(t, "Segundo", got["GOOD02"].Title)
}

func TestResolveManyAllUnknownFails(t *testing.T) {
	server := newFakeAPI(t, nil)
	defer server.Close()

	_, err := newTestClient(t, server.URL).ResolveMany(context.Background(), []string{"A", "B"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRequiresAppLabel(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
