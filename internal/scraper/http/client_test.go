package httpclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JulianoL13/proxy-rotator/internal/scraper"
	httpclient "github.com/JulianoL13/proxy-rotator/internal/scraper/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcher_FetchAndParse(t *testing.T) {
	ctx := context.Background()
	f := httpclient.New()

	t.Run("text", func(t *testing.T) {
		srv := serve(t, http.StatusOK, "1.1.1.1:8080\n2.2.2.2:3128\n")

		out, err := f.FetchAndParse(ctx, scraper.Source{Name: "txt", URL: srv.URL, Type: "http", Format: scraper.FormatText})

		require.NoError(t, err)
		assert.Len(t, out, 2)
	})

	t.Run("json", func(t *testing.T) {
		srv := serve(t, http.StatusOK, `[{"ip":"1.1.1.1","port":8080}]`)

		out, err := f.FetchAndParse(ctx, scraper.Source{Name: "json", URL: srv.URL, Format: scraper.FormatJSON})

		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "1.1.1.1:8080", out[0].Address())
	})

	t.Run("html", func(t *testing.T) {
		srv := serve(t, http.StatusOK, `<table><tr><td>1.1.1.1</td><td>80</td><td>US</td><td>United States</td><td>anonymous</td><td>no</td><td>yes</td></tr></table>`)

		out, err := f.FetchAndParse(ctx, scraper.Source{Name: "html", URL: srv.URL, Format: scraper.FormatHTML})

		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "https", out[0].Protocol())
		assert.Equal(t, "United States", out[0].Country())
	})

	t.Run("bad status", func(t *testing.T) {
		srv := serve(t, http.StatusBadGateway, "")

		_, err := f.FetchAndParse(ctx, scraper.Source{URL: srv.URL})

		assert.ErrorIs(t, err, scraper.ErrSourceUnavailable)
	})

	t.Run("unsupported format", func(t *testing.T) {
		srv := serve(t, http.StatusOK, "")

		_, err := f.FetchAndParse(ctx, scraper.Source{URL: srv.URL, Format: scraper.FormatGitHub})

		assert.ErrorIs(t, err, scraper.ErrUnsupportedFormat)
	})
}
