package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"

	"refhub/finder/internal/cache"
	"refhub/finder/internal/client"
	"refhub/finder/internal/domain"
)

type fakeClient struct {
	result   *domain.SearchResult
	err      error
	calls    int
	pages    []*domain.SearchResult
	crawlErr error
	yielded  int
}

func (f *fakeClient) SearchPage(ctx context.Context, query string, page int) (*domain.SearchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeClient) Crawl(ctx context.Context, query string) iter.Seq2[*domain.SearchResult, error] {
	return func(yield func(*domain.SearchResult, error) bool) {
		for _, p := range f.pages {
			f.yielded++
			if !yield(p, nil) {
				return
			}
		}
		if f.crawlErr != nil {
			yield(nil, f.crawlErr)
		}
	}
}

type fakeCache struct {
	entries map[string]*domain.SearchResult
	getErr  error
	sets    int
}

func (f *fakeCache) Get(ctx context.Context, query string, page int) (*domain.SearchResult, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	r, ok := f.entries[cache.Key("", query, page)]
	return r, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, query string, page int, result *domain.SearchResult) error {
	if f.entries == nil {
		f.entries = map[string]*domain.SearchResult{}
	}
	f.entries[cache.Key("", query, page)] = result
	f.sets++
	return nil
}

type fakeRepo struct {
	saved []int
	err   error
}

func (f *fakeRepo) SaveSearch(ctx context.Context, page int, result *domain.SearchResult) error {
	f.saved = append(f.saved, page)
	return f.err
}

func pageResult(query string, current, total int, titles ...string) *domain.SearchResult {
	books := make([]domain.Book, 0, len(titles))
	for _, title := range titles {
		books = append(books, domain.Book{Title: title, Tags: []string{}})
	}
	return domain.NewSearchResult(query, "", books, domain.NewPagination(current, total))
}

func TestSearchBooks_Success(t *testing.T) {
	fc := &fakeClient{result: pageResult("go", 1, 3, "a", "b")}
	repo := &fakeRepo{}
	s := NewService(fc, nil, repo)

	res, err := s.SearchBooks(context.Background(), "go", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalResults != 2 {
		t.Errorf("expected 2 results, got %d", res.TotalResults)
	}
	if len(repo.saved) != 1 || repo.saved[0] != 1 {
		t.Errorf("expected page 1 archived, got %v", repo.saved)
	}
}

func TestSearchBooks_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"fetch error", &client.FetchError{URL: "http://x", StatusCode: 502, Err: errors.New("502 Bad Gateway")}, KindUpstream},
		{"wrapped fetch error", errors.Join(errors.New("outer"), &client.FetchError{URL: "http://x", Err: errors.New("dial tcp")}), KindUpstream},
		{"parse error", errors.New("failed to parse search page"), KindInternal},
		{"cancelled", context.Canceled, KindCancelled},
		{"cancelled mid-request", fmt.Errorf("request cancelled: %w", context.Canceled), KindCancelled},
		{"deadline", context.DeadlineExceeded, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(&fakeClient{err: tt.err}, nil, nil)

			_, err := s.SearchBooks(context.Background(), "go", 2)
			var searchErr *SearchError
			if !errors.As(err, &searchErr) {
				t.Fatalf("expected SearchError, got %v", err)
			}
			if searchErr.Kind != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, searchErr.Kind)
			}
			if searchErr.Query != "go" || searchErr.Page != 2 {
				t.Errorf("expected query/page context, got %+v", searchErr)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("expected original error to be wrapped")
			}
		})
	}
}

func TestSearchBooks_CacheHitSkipsUpstream(t *testing.T) {
	cached := pageResult("go", 1, 1, "cached")
	fc := &fakeClient{result: pageResult("go", 1, 1, "fresh")}
	repo := &fakeRepo{}
	s := NewService(fc, &fakeCache{entries: map[string]*domain.SearchResult{cache.Key("", "go", 1): cached}}, repo)

	res, err := s.SearchBooks(context.Background(), "go", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != cached {
		t.Errorf("expected cached result")
	}
	if fc.calls != 0 {
		t.Errorf("expected no upstream calls, got %d", fc.calls)
	}
	if len(repo.saved) != 0 {
		t.Errorf("cached results must not be archived again")
	}
}

func TestSearchBooks_CacheMissStoresResult(t *testing.T) {
	fc := &fakeClient{result: pageResult("go", 1, 1, "fresh")}
	c := &fakeCache{}
	s := NewService(fc, c, nil)

	if _, err := s.SearchBooks(context.Background(), "go", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.sets != 1 {
		t.Errorf("expected result to be cached, got %d sets", c.sets)
	}
}

func TestSearchBooks_CacheKeepsCallerQuery(t *testing.T) {
	fc := &fakeClient{}
	c := &fakeCache{}
	s := NewService(fc, c, nil)

	fc.result = domain.NewSearchResult("Python", "u?query=Python", nil, domain.NewPagination(1, 1))
	if _, err := s.SearchBooks(context.Background(), "Python", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fc.result = domain.NewSearchResult("  python ", "u?query=++python+", nil, domain.NewPagination(1, 1))
	res, err := s.SearchBooks(context.Background(), "  python ", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.calls != 2 {
		t.Errorf("expected a differently spelled query to miss the cache, got %d upstream calls", fc.calls)
	}
	if res.Query != "  python " || res.SearchURL != "u?query=++python+" {
		t.Errorf("expected caller's query echoed, got query=%q searchUrl=%q", res.Query, res.SearchURL)
	}
}

func TestSearchBooks_CacheAndArchiveFailuresAreNotFatal(t *testing.T) {
	fc := &fakeClient{result: pageResult("go", 1, 1, "fresh")}
	s := NewService(fc, &fakeCache{getErr: errors.New("redis down")}, &fakeRepo{err: errors.New("pg down")})

	res, err := s.SearchBooks(context.Background(), "go", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.calls != 1 || res.TotalResults != 1 {
		t.Errorf("expected upstream result, got calls=%d res=%+v", fc.calls, res)
	}
}

func TestCrawlBooks(t *testing.T) {
	fc := &fakeClient{pages: []*domain.SearchResult{
		pageResult("go", 1, 3, "a", "b"),
		pageResult("go", 2, 3, "c", "a"),
		pageResult("go", 3, 3, "d"),
	}}
	s := NewService(fc, nil, nil)

	res, err := s.CrawlBooks(context.Background(), "go", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PagesFetched != 3 {
		t.Errorf("expected 3 pages, got %d", res.PagesFetched)
	}
	if res.TotalResults != 5 || len(res.Books) != 5 {
		t.Errorf("expected 5 books kept lossless, got %d", res.TotalResults)
	}
}

func TestCrawlBooks_MaxPages(t *testing.T) {
	fc := &fakeClient{pages: []*domain.SearchResult{
		pageResult("go", 1, 3, "a"),
		pageResult("go", 2, 3, "b"),
		pageResult("go", 3, 3, "c"),
	}}
	s := NewService(fc, nil, nil)

	res, err := s.CrawlBooks(context.Background(), "go", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PagesFetched != 2 || fc.yielded != 2 {
		t.Errorf("expected crawl to stop after 2 pages, got fetched=%d yielded=%d", res.PagesFetched, fc.yielded)
	}
}

func TestCrawlBooks_ZeroMaxPages(t *testing.T) {
	fc := &fakeClient{pages: []*domain.SearchResult{pageResult("go", 1, 1, "a")}}
	s := NewService(fc, nil, nil)

	res, err := s.CrawlBooks(context.Background(), "go", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PagesFetched != 0 || fc.yielded != 0 || res.Books == nil {
		t.Errorf("expected empty crawl, got %+v", res)
	}
}

func TestCrawlBooks_Error(t *testing.T) {
	fc := &fakeClient{
		pages:    []*domain.SearchResult{pageResult("go", 1, 3, "a")},
		crawlErr: &client.FetchError{URL: "http://x", StatusCode: 500, Err: errors.New("500")},
	}
	s := NewService(fc, nil, nil)

	_, err := s.CrawlBooks(context.Background(), "go", 5)
	var searchErr *SearchError
	if !errors.As(err, &searchErr) {
		t.Fatalf("expected SearchError, got %v", err)
	}
	if searchErr.Kind != KindUpstream || searchErr.Page != 2 {
		t.Errorf("expected upstream failure on page 2, got %+v", searchErr)
	}
}
