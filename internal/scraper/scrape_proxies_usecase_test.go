package scraper_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/common/logs/mocks"
	"github.com/JulianoL13/proxy-rotator/internal/scraper"
	smocks "github.com/JulianoL13/proxy-rotator/internal/scraper/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestScrapeProxiesUseCase_Execute(t *testing.T) {
	ctx := context.Background()
	logger := mocks.LoggerMock{}

	t.Run("success with deduplication", func(t *testing.T) {
		mockFetcher := smocks.NewFetcher(t)

		sources := []scraper.Source{
			{Name: "Source1", URL: "http://source1.com", Type: "http"},
			{Name: "Source2", URL: "http://source2.com", Type: "http"},
		}

		proxy1 := scraper.NewScrapeOutput("1.1.1.1", 8080, "http", "Source1")
		proxy2 := scraper.NewScrapeOutput("2.2.2.2", 8080, "http", "Source2")
		proxyDuplicate := scraper.NewScrapeOutput("1.1.1.1", 8080, "http", "Source2")

		mockFetcher.On("FetchAndParse", mock.Anything, sources[0]).Return([]*scraper.ScrapeOutput{proxy1}, nil)
		mockFetcher.On("FetchAndParse", mock.Anything, sources[1]).Return([]*scraper.ScrapeOutput{proxy2, proxyDuplicate}, nil)

		uc := scraper.NewScrapeProxiesUseCase(mockFetcher, sources, logger)

		timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		result, errs := uc.Execute(timeoutCtx)

		assert.Empty(t, errs)
		require.Len(t, result, 2, "Should have 2 unique proxies")
		assert.Same(t, proxy1, result[0])
		assert.Same(t, proxy2, result[1])
	})

	t.Run("one failing source does not stop the others", func(t *testing.T) {
		mockFetcher := smocks.NewFetcher(t)

		sources := []scraper.Source{
			{Name: "Broken", URL: "http://broken.com"},
			{Name: "Working", URL: "http://working.com"},
		}

		good := scraper.NewScrapeOutput("3.3.3.3", 80, "http", "Working")
		mockFetcher.On("FetchAndParse", mock.Anything, sources[0]).Return(nil, errors.New("network error"))
		mockFetcher.On("FetchAndParse", mock.Anything, sources[1]).Return([]*scraper.ScrapeOutput{good}, nil)

		uc := scraper.NewScrapeProxiesUseCase(mockFetcher, sources, logger)
		result, errs := uc.Execute(ctx)

		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], scraper.ErrSourceFetchFailed)
		assert.Contains(t, errs[0].Error(), "Broken")
		assert.Equal(t, []*scraper.ScrapeOutput{good}, result)
	})

	t.Run("all sources fail", func(t *testing.T) {
		mockFetcher := smocks.NewFetcher(t)

		sources := []scraper.Source{
			{Name: "Source1", URL: "http://source1.com", Type: "http"},
		}

		mockFetcher.On("FetchAndParse", mock.Anything, sources[0]).Return(nil, errors.New("network error"))

		uc := scraper.NewScrapeProxiesUseCase(mockFetcher, sources, logger)
		result, errs := uc.Execute(ctx)

		assert.Len(t, errs, 1)
		assert.Empty(t, result)
	})

	t.Run("applies per source timeout", func(t *testing.T) {
		mockFetcher := smocks.NewFetcher(t)
		sources := []scraper.Source{{Name: "Slow"}}

		mockFetcher.On("FetchAndParse", mock.Anything, sources[0]).
			Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			}).
			Return(nil, context.DeadlineExceeded)

		uc := scraper.NewScrapeProxiesUseCase(mockFetcher, sources, logger).
			WithSourceTimeout(50 * time.Millisecond)

		_, errs := uc.Execute(ctx)

		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], context.DeadlineExceeded)
	})
}

func TestFormatRouter(t *testing.T) {
	text := smocks.NewFetcher(t)
	html := smocks.NewFetcher(t)
	router := scraper.NewFormatRouter().
		Register(text, scraper.FormatText, scraper.FormatJSON).
		Register(html, scraper.FormatHTML)

	plain := scraper.Source{Name: "plain"}
	table := scraper.Source{Name: "table", Format: scraper.FormatHTML}
	text.On("FetchAndParse", mock.Anything, plain).Return(nil, nil).Once()
	html.On("FetchAndParse", mock.Anything, table).Return(nil, nil).Once()

	_, err := router.FetchAndParse(context.Background(), plain)
	require.NoError(t, err)
	_, err = router.FetchAndParse(context.Background(), table)
	require.NoError(t, err)

	_, err = router.FetchAndParse(context.Background(), scraper.Source{Format: scraper.FormatGitHub})
	assert.ErrorIs(t, err, scraper.ErrUnsupportedFormat)
}
