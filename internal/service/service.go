package service

import (
	"context"
	"time"

	"refhub/finder/internal/cache"
	"refhub/finder/internal/client"
	"refhub/finder/internal/domain"
	"refhub/finder/internal/metrics"
	"refhub/finder/internal/queue"
	"refhub/finder/internal/repository"

	log "github.com/sirupsen/logrus"
)

type Service struct {
	client     client.RefHubClient
	cache      cache.SearchCache
	repository repository.SearchRepository

	queue          queue.Queue
	groupName      string
	minIdleTime    time.Duration
	readRetryDelay time.Duration
}

// NewService wires the search orchestrator. cache and repository are optional
// and may be nil.
func NewService(
	client client.RefHubClient,
	cache cache.SearchCache,
	repository repository.SearchRepository,
) *Service {
	return &Service{
		client:     client,
		cache:      cache,
		repository: repository,
	}
}

// SearchBooks fetches and parses one search page. Failures are returned as
// *SearchError so callers can tell upstream problems from internal ones.
func (s *Service) SearchBooks(ctx context.Context, query string, page int) (*domain.SearchResult, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, query, page)
		if err != nil {
			log.Warnf("⚠️ Search cache lookup failed: %v", err)
		}
		metrics.RecordCacheLookup(ok)
		if ok {
			log.Debugf("Serving %q page %d from cache", query, page)
			metrics.RecordSearch("cached")
			return cached, nil
		}
	}

	result, err := s.client.SearchPage(ctx, query, page)
	if err != nil {
		return nil, s.fail(query, page, err)
	}

	s.store(ctx, query, page, result)

	metrics.RecordSearch("ok")
	return result, nil
}

// store writes a fetched page to the cache and archive. Both are best-effort.
func (s *Service) store(ctx context.Context, query string, page int, result *domain.SearchResult) {
	if s.cache != nil {
		if err := s.cache.Set(ctx, query, page, result); err != nil {
			log.Warnf("⚠️ Failed to cache %q page %d: %v", query, page, err)
		}
	}

	if s.repository != nil {
		if err := s.repository.SaveSearch(ctx, page, result); err != nil {
			log.Warnf("⚠️ Failed to archive %q page %d: %v", query, page, err)
		}
	}
}

// CrawlBooks walks consecutive search pages for query, stopping after
// maxPages pages, at the last page, or when ctx is cancelled. Books are
// returned exactly as scraped.
func (s *Service) CrawlBooks(ctx context.Context, query string, maxPages int) (*domain.CrawlResult, error) {
	result := &domain.CrawlResult{
		Query: query,
		Books: make([]domain.Book, 0),
	}

	if maxPages < 1 {
		return result, nil
	}

	for page, err := range s.client.Crawl(ctx, query) {
		if err != nil {
			return nil, s.fail(query, result.PagesFetched+1, err)
		}

		result.PagesFetched++
		result.Books = append(result.Books, page.Books...)
		log.Debugf("Crawled %q page %d/%d", query, page.Pagination.CurrentPage, page.Pagination.TotalPages)

		if result.PagesFetched >= maxPages {
			break
		}
	}

	result.TotalResults = len(result.Books)
	log.Infof("✅ Crawled %d pages with %d books for %q", result.PagesFetched, result.TotalResults, query)

	metrics.RecordSearch("crawl")
	return result, nil
}

func (s *Service) fail(query string, page int, err error) error {
	searchErr := classify(query, page, err)

	fields := log.Fields{
		"query": query,
		"page":  page,
		"kind":  searchErr.Kind.String(),
	}
	switch searchErr.Kind {
	case KindCancelled:
		log.WithFields(fields).Debugf("Search abandoned by caller: %v", err)
	case KindUpstream:
		log.WithFields(fields).Warnf("❌ Upstream fetch failed: %v", err)
	default:
		log.WithFields(fields).Errorf("❌ Search failed: %v", err)
	}

	metrics.RecordSearch(searchErr.Kind.String())
	return searchErr
}
