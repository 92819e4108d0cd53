package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultSourceTimeout  = 45 * time.Second
	DefaultMaxConcurrency = 8
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type Fetcher interface {
	FetchAndParse(ctx context.Context, source Source) ([]*ScrapeOutput, error)
}

type ScrapeProxiesUseCase struct {
	fetcher Fetcher
	sources []Source
	logger  Logger
	timeout time.Duration
	limit   int
}

func NewScrapeProxiesUseCase(f Fetcher, sources []Source, logger Logger) *ScrapeProxiesUseCase {
	return &ScrapeProxiesUseCase{
		fetcher: f,
		sources: sources,
		logger:  logger,
		timeout: DefaultSourceTimeout,
		limit:   DefaultMaxConcurrency,
	}
}

func (uc *ScrapeProxiesUseCase) WithSourceTimeout(d time.Duration) *ScrapeProxiesUseCase {
	if d > 0 {
		uc.timeout = d
	}
	return uc
}

// Execute fetches every source concurrently. A failing source is reported in
// the returned errors and never stops the others. Results are deduplicated by
// address, first source wins.
func (uc *ScrapeProxiesUseCase) Execute(ctx context.Context) ([]*ScrapeOutput, []error) {
	var (
		mu      sync.Mutex
		batches = make([][]*ScrapeOutput, len(uc.sources))
		errs    []error
	)

	g := new(errgroup.Group)
	g.SetLimit(uc.limit)

	for i, src := range uc.sources {
		i, src := i, src
		g.Go(func() error {
			timeoutCtx, cancel := context.WithTimeout(ctx, uc.timeout)
			defer cancel()

			proxies, err := uc.fetcher.FetchAndParse(timeoutCtx, src)
			if err != nil {
				uc.logger.Warn("source failed", "source", src.Name, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%w: %s: %w", ErrSourceFetchFailed, src.Name, err))
				mu.Unlock()
				return nil
			}

			uc.logger.Debug("source fetched", "source", src.Name, "count", len(proxies))
			batches[i] = proxies
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	var out []*ScrapeOutput
	for _, batch := range batches {
		for _, p := range batch {
			if p == nil {
				continue
			}
			if _, dup := seen[p.Address()]; dup {
				continue
			}
			seen[p.Address()] = struct{}{}
			out = append(out, p)
		}
	}

	uc.logger.Info("scrape completed", "sources", len(uc.sources), "unique", len(out), "failed", len(errs))
	return out, errs
}
