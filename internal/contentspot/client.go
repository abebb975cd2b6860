// Package contentspot resolves Midiacode short codes to the published
// content they point at.
package contentspot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/midiacode/contentchat/internal/logger"
)

// ErrNotFound reports a short code with no published content behind it.
var ErrNotFound = errors.New("contentspot: content not found")

// DefaultBaseURL is the production ContentSpot API endpoint.
const DefaultBaseURL = "https://contentspot.midiacode.com/api/v1"

// Content is the published record a short code resolves to.
type Content struct {
	ContentTypeSlug string `json:"content_type_slug"`
	Title           string `json:"title"`
	SourceURL       string `json:"source_url"`
	CoverURL        string `json:"cover_url"`
	QRCodeURL       string `json:"qrcode_url"`
	ShortLink       string `json:"short_link"`
}

// Config carries the ContentSpot connection settings. AppLabel identifies the
// calling application and is required by the API on every request.
type Config struct {
	BaseURL  string
	AppLabel string
	Language string
	Timeout  time.Duration
}

// Client is a thin ContentSpot API wrapper.
type Client struct {
	http     *resty.Client
	appLabel string
	language string
}

func New(cfg Config) (*Client, error) {
	if cfg.AppLabel == "" {
		return nil, errors.New("contentspot: app label is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "pt-br"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(300 * time.Millisecond)
	return &Client{
		http:     httpClient,
		appLabel: cfg.AppLabel,
		language: cfg.Language,
	}, nil
}

// Resolve looks up the content behind one short code. A code the API does not
// know yields ErrNotFound.
func (c *Client) Resolve(ctx context.Context, code string) (*Content, error) {
	if code == "" {
		return nil, errors.New("contentspot: code is required")
	}
	var content Content
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Midiacode-Applabel", c.appLabel).
		SetHeader("Accept-Language", c.language).
		SetQueryParam("code", code).
		SetResult(&content).
		Get("/content/")
	if err != nil {
		return nil, fmt.Errorf("contentspot: resolve %s: %w", code, err)
	}
	if resp.StatusCode() == 404 {
		return nil, fmt.Errorf("contentspot: resolve %s: %w", code, ErrNotFound)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("contentspot: resolve %s: unexpected status %s", code, resp.Status())
	}
	if content.SourceURL == "" && content.ShortLink == "" {
		return nil, fmt.Errorf("contentspot: resolve %s: %w", code, ErrNotFound)
	}
	logger.FromContext(ctx).Debug("content resolved",
		"code", code, "type", content.ContentTypeSlug, "title", content.Title)
	return &content, nil
}

// ResolveMany resolves several codes, skipping unknown ones. It fails only
// when no code resolves.
func (c *Client) ResolveMany(ctx context.Context, codes []string) (map[string]*Content, error) {
	out := make(map[string]*Content, len(codes))
	var lastErr error
	for _, code := range codes {
		content, err := c.Resolve(ctx, code)
		if err != nil {
			logger.FromContext(ctx).Warn("code skipped", "code", code, "error", err)
			lastErr = err
			continue
		}
		out[code] = content
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}
