package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"time"

	"refhub/finder/internal/config"
	"refhub/finder/internal/domain"
	"refhub/finder/internal/metrics"
	"refhub/finder/internal/proxy"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

type RefHubClient interface {
	SearchPage(ctx context.Context, query string, page int) (*domain.SearchResult, error)
	Crawl(ctx context.Context, query string) iter.Seq2[*domain.SearchResult, error]
}

type refHubClient struct {
	rl         ratelimit.Limiter
	baseURL    string
	crawlDelay time.Duration
	httpClient *resty.Client
	parser     *searchParser
}

// NewRefHubClient builds the fetcher. When proxySupplier is set, one proxy is
// taken from it here and used for every request this client makes.
func NewRefHubClient(cfg config.RefHubConfig, proxySupplier proxy.Supplier) RefHubClient {
	client := resty.New().
		SetTimeout(cfg.RequestTimeout()).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.5")

	if cfg.InsecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
		})
	}

	if proxySupplier != nil {
		if proxyURL := proxySupplier.Get(); proxyURL != "" {
			client.SetProxy(proxyURL)
			log.Infof("🔗 Using proxy: %s", proxyURL)
		}
	}

	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	return &refHubClient{
		rl:         rl,
		baseURL:    cfg.BaseURL,
		crawlDelay: cfg.CrawlDelay(),
		httpClient: client,
		parser:     newSearchParser(),
	}
}

// BuildSearchURL appends the page number and, when present, the escaped query
// to the search endpoint.
func BuildSearchURL(baseURL, query string, page int) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	if query != "" {
		q.Set("query", query)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (c *refHubClient) SearchPage(ctx context.Context, query string, page int) (*domain.SearchResult, error) {
	searchURL, err := BuildSearchURL(c.baseURL, query, page)
	if err != nil {
		return nil, err
	}

	html, err := c.fetchHTML(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	books, pagination, err := c.parser.Parse(html, page)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}
	metrics.RecordBooks(len(books))

	log.Debugf("Fetched and parsed %q page %d with %d books", query, pagination.CurrentPage, len(books))
	return domain.NewSearchResult(query, searchURL, books, pagination), nil
}

// Crawl walks the search pages for query starting at page 1, pausing the
// configured delay between requests. Iteration ends after the last page, on an
// empty page, on the first error (which is yielded), or when the consumer stops.
func (c *refHubClient) Crawl(ctx context.Context, query string) iter.Seq2[*domain.SearchResult, error] {
	return func(yield func(*domain.SearchResult, error) bool) {
		for page := 1; ; page++ {
			result, err := c.SearchPage(ctx, query, page)
			if err != nil {
				yield(nil, err)
				return
			}

			if len(result.Books) == 0 {
				return
			}

			if !yield(result, nil) {
				return
			}

			if !result.Pagination.HasNextPage {
				return
			}

			if err := sleep(ctx, c.crawlDelay); err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *refHubClient) fetchHTML(ctx context.Context, url string) (string, error) {
	c.rl.Take()

	start := time.Now()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		metrics.RecordUpstream(0, time.Since(start))
		if ctx.Err() != nil {
			return "", fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return "", &FetchError{URL: url, Err: err}
	}
	metrics.RecordUpstream(resp.StatusCode(), time.Since(start))

	if resp.IsError() || resp.StatusCode() >= 300 {
		return "", &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode(),
			Err:        errors.New(resp.Status()),
		}
	}

	return resp.String(), nil
}
