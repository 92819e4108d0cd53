package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/scraper"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL  = "https://api.github.com"
	DefaultMaxDepth = 3
	DefaultMaxRepos = 10
	searchQuery     = "topic:proxy-list"
)

var listExtensions = []string{".txt", ".json", ".csv", ".md"}

type repository struct {
	FullName string `json:"full_name"`
}

type searchResponse struct {
	Items []repository `json:"items"`
}

type contentItem struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

type dirTask struct {
	repo  string
	path  string
	depth int
}

// Fetcher crawls repositories tagged topic:proxy-list and extracts candidates
// from the list files they contain.
type Fetcher struct {
	client   *resty.Client
	logger   scraper.Logger
	maxDepth int
	maxRepos int
}

func New(baseURL, token string, logger scraper.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "Mozilla/5.0").
		SetHeader("Accept", "application/vnd.github.v3+json")
	if token != "" {
		client.SetAuthScheme("token").SetAuthToken(token)
	}

	return &Fetcher{
		client:   client,
		logger:   logger,
		maxDepth: DefaultMaxDepth,
		maxRepos: DefaultMaxRepos,
	}
}

func (f *Fetcher) WithLimits(maxDepth, maxRepos int) *Fetcher {
	if maxDepth > 0 {
		f.maxDepth = maxDepth
	}
	if maxRepos > 0 {
		f.maxRepos = maxRepos
	}
	return f
}

func (f *Fetcher) FetchAndParse(ctx context.Context, source scraper.Source) ([]*scraper.ScrapeOutput, error) {
	repos, err := f.searchRepositories(ctx)
	if err != nil {
		return nil, err
	}

	visited := make(map[string]struct{})
	var out []*scraper.ScrapeOutput
	for _, repo := range repos {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out = append(out, f.crawlRepository(ctx, repo.FullName, source, visited)...)
	}
	return out, nil
}

func (f *Fetcher) searchRepositories(ctx context.Context) ([]repository, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        searchQuery,
			"sort":     "stars",
			"per_page": fmt.Sprint(f.maxRepos),
		}).
		Get("/search/repositories")
	if err != nil {
		return nil, fmt.Errorf("search repositories: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: search status %d", scraper.ErrSourceUnavailable, resp.StatusCode())
	}

	var result searchResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}

	if len(result.Items) > f.maxRepos {
		result.Items = result.Items[:f.maxRepos]
	}
	return result.Items, nil
}

func (f *Fetcher) crawlRepository(ctx context.Context, repo string, source scraper.Source, visited map[string]struct{}) []*scraper.ScrapeOutput {
	var out []*scraper.ScrapeOutput

	work := []dirTask{{repo: repo}}
	for len(work) > 0 {
		task := work[len(work)-1]
		work = work[:len(work)-1]

		if task.depth >= f.maxDepth {
			continue
		}
		key := task.repo + "/" + task.path
		if _, ok := visited[key]; ok {
			continue
		}
		visited[key] = struct{}{}

		items, err := f.listContents(ctx, task.repo, task.path)
		if err != nil {
			f.logger.Debug("github listing failed", "repo", task.repo, "path", task.path, "error", err)
			continue
		}

		for _, item := range items {
			switch item.Type {
			case "file":
				if !isListFile(item.Name) || item.DownloadURL == "" {
					continue
				}
				if _, ok := visited[item.DownloadURL]; ok {
					continue
				}
				visited[item.DownloadURL] = struct{}{}

				proxies, err := f.downloadFile(ctx, item, source)
				if err != nil {
					f.logger.Debug("github file failed", "file", item.Path, "error", err)
					continue
				}
				out = append(out, proxies...)
			case "dir":
				work = append(work, dirTask{repo: task.repo, path: item.Path, depth: task.depth + 1})
			}
		}
	}
	return out
}

func (f *Fetcher) listContents(ctx context.Context, repo, dir string) ([]contentItem, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(path.Join("/repos", repo, "contents", dir))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: contents status %d", scraper.ErrSourceUnavailable, resp.StatusCode())
	}

	var items []contentItem
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, fmt.Errorf("decode contents: %w", err)
	}
	return items, nil
}

func (f *Fetcher) downloadFile(ctx context.Context, item contentItem, source scraper.Source) ([]*scraper.ScrapeOutput, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(item.DownloadURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: download status %d", scraper.ErrSourceUnavailable, resp.StatusCode())
	}

	if strings.HasSuffix(strings.ToLower(item.Name), ".json") {
		return scraper.ParseJSON(resp.Body(), source)
	}
	return scraper.ParseText(string(resp.Body()), source), nil
}

func isListFile(name string) bool {
	name = strings.ToLower(name)
	for _, ext := range listExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

var _ scraper.Fetcher = (*Fetcher)(nil)
