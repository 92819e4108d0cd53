package mocks

import (
	"context"

	"github.com/JulianoL13/proxy-rotator/internal/scraper"
	"github.com/stretchr/testify/mock"
)

type Fetcher struct {
	mock.Mock
}

func NewFetcher(t interface {
	mock.TestingT
	Cleanup(func())
}) *Fetcher {
	m := &Fetcher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Fetcher) FetchAndParse(ctx context.Context, source scraper.Source) ([]*scraper.ScrapeOutput, error) {
	args := m.Called(ctx, source)
	var out []*scraper.ScrapeOutput
	if v := args.Get(0); v != nil {
		out = v.([]*scraper.ScrapeOutput)
	}
	return out, args.Error(1)
}

var _ scraper.Fetcher = (*Fetcher)(nil)
