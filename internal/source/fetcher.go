// Package source fetches raw candidate articles from the upstream news search
// API. A throttled primary endpoint (HTTP 426 or 429) is retried once against
// the secondary endpoint; every other failure is returned to the caller.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/ocean-news/internal/metrics"
	"github.com/JakeFAU/ocean-news/internal/news"
)

// Sentinel errors returned by Fetch.
var (
	ErrThrottled  = errors.New("upstream throttled")
	ErrNoArticles = errors.New("upstream returned no articles")
)

const maxBodyBytes = 4 << 20

// Config controls the upstream endpoints and query.
type Config struct {
	APIKey       string
	PrimaryURL   string
	SecondaryURL string
	Query        string
	Category     string
	Language     string
	Max          int
	UserAgent    string
	Timeout      time.Duration
}

// Fetcher implements news.Fetcher against a GNews-compatible API.
type Fetcher struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New validates cfg and builds a Fetcher. client may be nil.
func New(cfg Config, client *http.Client, logger *zap.Logger) (*Fetcher, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("news api key is required")
	}
	if cfg.PrimaryURL == "" {
		return nil, fmt.Errorf("primary endpoint is required")
	}
	if cfg.Max <= 0 {
		cfg.Max = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{cfg: cfg, client: client, logger: logger}, nil
}

// Fetch calls the primary endpoint and falls back to the secondary one when
// the primary is throttled.
func (f *Fetcher) Fetch(ctx context.Context) (news.FetchResult, error) {
	items, err := f.call(ctx, news.SourcePrimary, f.primaryURL())
	if err == nil {
		return news.FetchResult{Articles: items, Source: news.SourcePrimary}, nil
	}
	if !errors.Is(err, ErrThrottled) || f.cfg.SecondaryURL == "" {
		return news.FetchResult{Source: news.SourcePrimary}, err
	}

	f.logger.Warn("primary endpoint throttled; trying secondary", zap.Error(err))
	items, err = f.call(ctx, news.SourceSecondary, f.secondaryURL())
	if err != nil {
		return news.FetchResult{Source: news.SourceSecondary}, fmt.Errorf("secondary after throttled primary: %w", err)
	}
	return news.FetchResult{Articles: items, Source: news.SourceSecondary}, nil
}

func (f *Fetcher) primaryURL() string {
	q := url.Values{}
	q.Set("q", f.cfg.Query)
	q.Set("lang", f.cfg.Language)
	q.Set("max", strconv.Itoa(f.cfg.Max))
	q.Set("sortby", "publishedAt")
	q.Set("apikey", f.cfg.APIKey)
	return withQuery(f.cfg.PrimaryURL, q)
}

func (f *Fetcher) secondaryURL() string {
	q := url.Values{}
	if f.cfg.Category != "" {
		q.Set("category", f.cfg.Category)
	}
	q.Set("lang", f.cfg.Language)
	q.Set("max", strconv.Itoa(f.cfg.Max))
	q.Set("apikey", f.cfg.APIKey)
	return withQuery(f.cfg.SecondaryURL, q)
}

func withQuery(base string, q url.Values) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

func (f *Fetcher) call(ctx context.Context, endpoint news.Source, rawURL string) ([]news.Item, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.ObserveUpstreamFetch(string(endpoint), "transport_error")
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			f.logger.Debug("close upstream body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode == http.StatusUpgradeRequired || resp.StatusCode == http.StatusTooManyRequests {
		metrics.ObserveUpstreamFetch(string(endpoint), "throttled")
		return nil, fmt.Errorf("%s status %d: %w", endpoint, resp.StatusCode, ErrThrottled)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ObserveUpstreamFetch(string(endpoint), "http_error")
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		metrics.ObserveUpstreamFetch(string(endpoint), "decode_error")
		return nil, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	if len(payload.Articles) == 0 {
		metrics.ObserveUpstreamFetch(string(endpoint), "empty")
		return nil, fmt.Errorf("%s: %w", endpoint, ErrNoArticles)
	}

	items := make([]news.Item, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		items = append(items, a.toItem())
	}
	metrics.ObserveUpstreamFetch(string(endpoint), "ok")
	f.logger.Info("upstream fetch succeeded",
		zap.String("endpoint", string(endpoint)),
		zap.Int("articles", len(items)),
		zap.Int("total_articles", payload.TotalArticles),
		zap.Duration("elapsed", time.Since(start)),
	)
	return items, nil
}

type searchResponse struct {
	TotalArticles int       `json:"totalArticles"`
	Articles      []article `json:"articles"`
}

type article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"source"`
}

func (a article) toItem() news.Item {
	published, err := time.Parse(time.RFC3339, a.PublishedAt)
	if err != nil {
		published = time.Time{}
	}
	return news.Item{
		Title:       strings.TrimSpace(a.Title),
		Description: strings.TrimSpace(a.Description),
		URL:         strings.TrimSpace(a.URL),
		Image:       strings.TrimSpace(a.Image),
		PublishedAt: published.UTC(),
		Source:      a.Source.Name,
	}
}
