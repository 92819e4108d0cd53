package adapters

import (
	"context"

	"github.com/JulianoL13/proxy-rotator/internal/proxy"
	"github.com/JulianoL13/proxy-rotator/internal/scraper"
)

type ScrapeRunner interface {
	Execute(ctx context.Context) ([]*scraper.ScrapeOutput, []error)
}

type ScraperAdapter struct {
	usecase ScrapeRunner
}

func NewScraperAdapter(uc ScrapeRunner) *ScraperAdapter {
	return &ScraperAdapter{usecase: uc}
}

func (a *ScraperAdapter) Fetch(ctx context.Context) ([]proxy.ProxyDataInput, []error) {
	scraped, errs := a.usecase.Execute(ctx)

	result := make([]proxy.ProxyDataInput, len(scraped))
	for i, s := range scraped {
		result[i] = s // ScrapeOutput implements ProxyDataInput
	}

	return result, errs
}

var _ proxy.ProxySource = (*ScraperAdapter)(nil)
