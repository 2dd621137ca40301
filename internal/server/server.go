package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"refhub/finder/internal/config"
	"refhub/finder/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// BookSearcher is what the HTTP layer needs from the search service.
type BookSearcher interface {
	SearchBooks(ctx context.Context, query string, page int) (*domain.SearchResult, error)
	CrawlBooks(ctx context.Context, query string, maxPages int) (*domain.CrawlResult, error)
	EnqueuePrefetch(ctx context.Context, query string, maxPages int) (string, error)
}

type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	searcher   BookSearcher
	config     config.ServerConfig
	crawlPages int
}

func New(cfg config.ServerConfig, crawlMaxPages int, searcher BookSearcher) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(), cors())

	s := &Server{
		router:     router,
		searcher:   searcher,
		config:     cfg,
		crawlPages: crawlMaxPages,
	}
	s.setUpRoutes()

	return s
}

func (s *Server) setUpRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// /api/Book/* is the path the browser extension has always called.
	for _, prefix := range []string{"", "/api/Book"} {
		s.router.GET(prefix+"/search", s.handleSearch)
		s.router.GET(prefix+"/crawl", s.handleCrawl)
		s.router.POST(prefix+"/prefetch", s.handlePrefetch)
	}

	if s.config.MetricsEnabled {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("🚀 HTTP API listening on %s", s.config.Addr())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := time.Duration(s.config.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Info("🛑 Shutting down HTTP API...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("HTTP API shutdown completed")
	return nil
}
