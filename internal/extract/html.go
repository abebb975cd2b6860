package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/midiacode/contentchat/internal/domain"
)

// FromURL fetches a web page, strips markup to plain text, normalizes
// whitespace and splits the result into chunks. A non-success status yields a
// *domain.FetchError and no chunks.
func (e *Extractor) FromURL(ctx context.Context, url string) ([]domain.Chunk, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("extract: build request for %s: %w", url, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.FetchError{URL: url, Status: resp.StatusCode}
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("extract: parse html from %s: %w", url, err)
	}
	text := normalizeWhitespace(textContent(doc))
	return e.splitter.Split(text)
}

// textContent walks the parsed document collecting text nodes, separated by
// newlines so the splitter can still find block boundaries. Script and style
// bodies are skipped.
func textContent(root *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				b.WriteString(t)
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return b.String()
}
