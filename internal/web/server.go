package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"MentionScanner/internal/logging"
	"MentionScanner/internal/ports"
	"MentionScanner/internal/usecase"
)

const GracefulShutdownTimeout = 10 * time.Second

// FeedRunner is the manual ingestion trigger.
type FeedRunner interface {
	Run(ctx context.Context, feedURLs []string) usecase.Report
}

// Deps wires the HTTP surface.
type Deps struct {
	Store        ports.ArticleStore
	Ingestion    FeedRunner
	DefaultFeeds []string
	Logger       *slog.Logger
	// Now stamps export filenames; defaults to time.Now.
	Now func() time.Time
}

// Server exposes the read and trigger API over echo.
type Server struct {
	Echo *echo.Echo

	store        ports.ArticleStore
	ingestion    FeedRunner
	defaultFeeds []string
	now          func() time.Time
	logger       *slog.Logger
}

// NewServer registers middlewares and routes.
func NewServer(deps Deps) *Server {
	logger := logging.OrDefault(deps.Logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = GlobalErrorHandler(logger)
	e.Use(RequestLogger(logger))
	e.Use(middleware.Recover())

	s := &Server{
		Echo:         e,
		store:        deps.Store,
		ingestion:    deps.Ingestion,
		defaultFeeds: deps.DefaultFeeds,
		now:          deps.Now,
		logger:       logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.health)

	api := s.Echo.Group("/api")
	api.GET("/articles", s.listArticles)
	api.GET("/articles/recent", s.recentArticles)
	api.GET("/articles/:id", s.getArticle)
	api.POST("/fetch", s.fetchFeeds)

	s.Echo.GET("/export.csv", s.exportCSV)
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
	defer cancel()

	if err := s.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
