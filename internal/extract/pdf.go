package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/midiacode/contentchat/internal/domain"
)

// FromPDF extracts text page by page in page order, normalizes whitespace per
// page and splits the result into chunks.
func (e *Extractor) FromPDF(path string) ([]domain.Chunk, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: open pdf %s: %w", path, err)
	}
	defer f.Close()

	var pages []string
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract: pdf %s page %d: %w", path, i, err)
		}
		pages = append(pages, normalizeWhitespace(text))
	}
	return e.splitter.Split(strings.Join(pages, "\n"))
}

// FromPDFURL downloads a PDF to a temporary file and extracts it. The pdf
// reader needs a seekable file, so streaming straight from the response body
// is not an option.
func (e *Extractor) FromPDFURL(ctx context.Context, url string) ([]domain.Chunk, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("extract: request pdf %s: %w", url, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.FetchError{URL: url, Status: resp.StatusCode}
	}

	tmp, err := os.CreateTemp("", "contentchat-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("extract: temp pdf file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("extract: download pdf %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("extract: download pdf %s: %w", url, err)
	}
	return e.FromPDF(tmp.Name())
}
