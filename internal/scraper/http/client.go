package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/scraper"
)

const maxBodySize = 16 << 20

// Fetcher downloads text, HTML and JSON sources.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

func New() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "Mozilla/5.0",
	}
}

// FetchAndParse downloads a source and converts it to scrape outputs.
func (f *Fetcher) FetchAndParse(ctx context.Context, source scraper.Source) ([]*scraper.ScrapeOutput, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("bad request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", scraper.ErrSourceUnavailable, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxBodySize)

	switch source.Format {
	case scraper.FormatHTML:
		return scraper.ParseHTMLTable(body, source)
	case scraper.FormatJSON:
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return scraper.ParseJSON(data, source)
	case scraper.FormatText, "":
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return scraper.ParseText(string(data), source), nil
	default:
		return nil, fmt.Errorf("%w: %s", scraper.ErrUnsupportedFormat, source.Format)
	}
}

var _ scraper.Fetcher = (*Fetcher)(nil)
