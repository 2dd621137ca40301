package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"refhub/finder/internal/domain"
	"refhub/finder/internal/service"

	"github.com/gin-gonic/gin"
)

const genericErrorMessage = "An unexpected error occurred"

// statusClientClosedRequest reports a request the caller abandoned.
const statusClientClosedRequest = 499

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("query")

	page, err := positiveInt(c, "page", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dedupe, ok := dedupeFunc(c.Query("dedupe"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dedupe must be one of: exact, similar"})
		return
	}

	result, err := s.searcher.SearchBooks(c.Request.Context(), query, page)
	if err != nil {
		writeError(c, err)
		return
	}

	if dedupe != nil {
		deduped := *result
		deduped.Books = dedupe(result.Books)
		deduped.TotalResults = len(deduped.Books)
		result = &deduped
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCrawl(c *gin.Context) {
	query := c.Query("query")

	maxPages, err := positiveInt(c, "maxPages", s.crawlPages)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	maxPages = min(maxPages, s.crawlPages)

	dedupe, ok := dedupeFunc(c.Query("dedupe"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dedupe must be one of: exact, similar"})
		return
	}

	result, err := s.searcher.CrawlBooks(c.Request.Context(), query, maxPages)
	if err != nil {
		writeError(c, err)
		return
	}

	if dedupe != nil {
		result.Books = dedupe(result.Books)
		result.TotalResults = len(result.Books)
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handlePrefetch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	maxPages, err := positiveInt(c, "maxPages", s.crawlPages)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	maxPages = min(maxPages, s.crawlPages)

	jobID, err := s.searcher.EnqueuePrefetch(c.Request.Context(), query, maxPages)
	if errors.Is(err, service.ErrPrefetchDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Prefetch is not enabled"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericErrorMessage})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"jobId": jobID, "query": query, "maxPages": maxPages})
}

func writeError(c *gin.Context, err error) {
	var searchErr *service.SearchError
	if errors.As(err, &searchErr) {
		switch searchErr.Kind {
		case service.KindUpstream:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to fetch data from RefHub: " + searchErr.Err.Error()})
			return
		case service.KindCancelled:
			c.JSON(statusClientClosedRequest, gin.H{"error": "Request cancelled"})
			return
		}
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": genericErrorMessage})
}

func positiveInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return n, nil
}

// dedupeFunc resolves the dedupe query parameter. Duplicate filtering is a
// presentation concern, so it happens here and never in the extractor.
func dedupeFunc(mode string) (func([]domain.Book) []domain.Book, bool) {
	switch mode {
	case "":
		return nil, true
	case "exact":
		return domain.Dedupe, true
	case "similar":
		return domain.DedupeSimilar, true
	default:
		return nil, false
	}
}
