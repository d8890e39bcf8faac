package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"MentionScanner/internal/domain"
	"MentionScanner/internal/logging"
	"MentionScanner/internal/ports"
)

const (
	ModeSelectors   = "selectors"
	ModeReadability = "readability"

	defaultUserAgent = "MentionScanner/1.0"
	defaultMaxChars  = 25000
	maxBodyBytes     = 8 << 20
)

var (
	ErrEmptyBody  = errors.New("page has no extractable text")
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// noise is removed before any text is collected.
const noise = "script, style, nav, footer, header, noscript, svg"

// blocks are the elements whose text makes up the article.
const blocks = "p, h1, h2, h3, li"

// ExtractorOptions configures an Extractor.
type ExtractorOptions struct {
	Client        *http.Client
	Timeout       time.Duration
	UserAgent     string
	MaxChars      int
	Mode          string
	RespectRobots bool
}

// Extractor implements ports.TextExtractor over plain HTTP GETs.
type Extractor struct {
	client    *http.Client
	userAgent string
	maxChars  int
	mode      string
	robots    *robotsCache
	logger    *slog.Logger
}

var _ ports.TextExtractor = (*Extractor)(nil)

// NewExtractor wires an HTTP client; a nil client gets one bounded by opts.Timeout.
func NewExtractor(opts ExtractorOptions, logger *slog.Logger) *Extractor {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = defaultMaxChars
	}
	if opts.Mode == "" {
		opts.Mode = ModeSelectors
	}

	e := &Extractor{
		client:    client,
		userAgent: opts.UserAgent,
		maxChars:  opts.MaxChars,
		mode:      opts.Mode,
		logger:    logging.OrDefault(logger),
	}
	if opts.RespectRobots {
		e.robots = newRobotsCache(client, opts.UserAgent)
	}
	return e
}

// Extract fetches pageURL and returns its cleaned text. Every failure yields
// an empty Extraction carrying the reason; nothing is raised past this point.
func (e *Extractor) Extract(ctx context.Context, pageURL string) domain.Extraction {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return e.empty(pageURL, fmt.Errorf("invalid page url %q", pageURL))
	}

	if e.robots != nil && !e.robots.Allowed(ctx, parsed) {
		return e.empty(pageURL, ErrDisallowed)
	}

	body, err := e.fetch(ctx, pageURL)
	if err != nil {
		return e.empty(pageURL, err)
	}

	var text string
	if e.mode == ModeReadability {
		text, err = readableText(body, parsed)
	} else {
		text, err = documentText(bytes.NewReader(body))
	}
	if err != nil {
		return e.empty(pageURL, err)
	}

	text = domain.TruncateRunes(text, e.maxChars)
	if text == "" {
		return e.empty(pageURL, ErrEmptyBody)
	}
	return domain.Extraction{Text: text}
}

func (e *Extractor) empty(pageURL string, reason error) domain.Extraction {
	e.logger.Debug("extract skipped", "url", pageURL, "error", reason)
	return domain.Extraction{Err: reason}
}

// fetch returns the UTF-8 decoded response body.
func (e *Extractor) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return body, nil
}

// documentText strips noise, prefers a single <article> region, falls back to
// <body>, and joins the text of paragraph, heading and list elements.
func documentText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	doc.Find(noise).Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	parts := make([]string, 0, 32)
	root.Find(blocks).Each(func(_ int, s *goquery.Selection) {
		if t := nodeText(s); t != "" {
			parts = append(parts, t)
		}
	})

	return strings.Join(parts, " "), nil
}

func readableText(body []byte, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return documentText(strings.NewReader(article.Content))
}

// nodeText joins the trimmed text nodes under s with single spaces.
func nodeText(s *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
