package scraper

import (
	"context"
	"fmt"
)

// FormatRouter hands each source to the fetcher registered for its format.
type FormatRouter struct {
	fetchers map[Format]Fetcher
}

func NewFormatRouter() *FormatRouter {
	return &FormatRouter{fetchers: make(map[Format]Fetcher)}
}

func (r *FormatRouter) Register(f Fetcher, formats ...Format) *FormatRouter {
	for _, format := range formats {
		r.fetchers[format] = f
	}
	return r
}

func (r *FormatRouter) FetchAndParse(ctx context.Context, source Source) ([]*ScrapeOutput, error) {
	format := source.Format
	if format == "" {
		format = FormatText
	}
	f, ok := r.fetchers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return f.FetchAndParse(ctx, source)
}

var _ Fetcher = (*FormatRouter)(nil)
