package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"MentionScanner/internal/domain"
)

type articleResponse struct {
	ID          int64   `json:"id"`
	URL         string  `json:"url"`
	Source      string  `json:"source"`
	Title       string  `json:"title"`
	PublishedAt string  `json:"published_at"`
	Content     string  `json:"content,omitempty"`
	Summary     string  `json:"summary"`
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	FetchedAt   string  `json:"fetched_at,omitempty"`
}

func toResponse(a domain.Article, withContent bool) articleResponse {
	resp := articleResponse{
		ID:          a.ID,
		URL:         a.URL,
		Source:      a.Source,
		Title:       a.Title,
		PublishedAt: a.PublishedAt,
		Summary:     a.Summary,
		Category:    string(a.Category),
		Confidence:  a.Confidence,
	}
	if withContent {
		resp.Content = a.Content
	}
	if !a.FetchedAt.IsZero() {
		resp.FetchedAt = a.FetchedAt.UTC().Format(time.RFC3339Nano)
	}
	return resp
}

func toResponses(articles []domain.Article) []articleResponse {
	out := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		out = append(out, toResponse(a, false))
	}
	return out
}

type fetchRequest struct {
	CustomFeed string `json:"custom_feed" form:"custom_feed"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listArticles(c echo.Context) error {
	filter := filterFromQuery(c, domain.QueryLimit)
	articles, err := s.store.Query(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toResponses(articles))
}

func (s *Server) recentArticles(c echo.Context) error {
	articles, err := s.store.Recent(c.Request().Context(), domain.RecentLimit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toResponses(articles))
}

func (s *Server) getArticle(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationWrap("article id must be an integer", err)
	}
	article, err := s.store.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toResponse(article, true))
}

func (s *Server) exportCSV(c echo.Context) error {
	filter := filterFromQuery(c, domain.ExportLimit)
	articles, err := s.store.Query(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, "attachment; filename="+ExportFilename(s.now()))
	res.WriteHeader(http.StatusOK)
	return WriteCSV(res, articles)
}

// fetchFeeds runs one ingestion synchronously over the default feeds plus
// an optional custom feed.
func (s *Server) fetchFeeds(c echo.Context) error {
	if s.ingestion == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "ingestion is not configured")
	}

	var req fetchRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationWrap("invalid fetch request", err)
	}

	feeds := append([]string(nil), s.defaultFeeds...)
	if custom := strings.TrimSpace(req.CustomFeed); custom != "" {
		feeds = append(feeds, custom)
	}

	report := s.ingestion.Run(c.Request().Context(), feeds)
	return c.JSON(http.StatusOK, report)
}

// filterFromQuery reads the shared list/export filters. An unparsable
// min_conf is treated as no threshold.
func filterFromQuery(c echo.Context, limit int) domain.ArticleFilter {
	minConf, err := strconv.ParseFloat(strings.TrimSpace(c.QueryParam("min_conf")), 64)
	if err != nil {
		minConf = 0
	}
	return domain.ArticleFilter{
		Text:          c.QueryParam("q"),
		Source:        c.QueryParam("source"),
		Category:      c.QueryParam("category"),
		MinConfidence: minConf,
		PublishedFrom: c.QueryParam("date_from"),
		PublishedTo:   c.QueryParam("date_to"),
		Limit:         limit,
	}
}
