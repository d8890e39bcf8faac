package parser

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsCache keeps one parsed robots.txt group per host for the process lifetime.
type robotsCache struct {
	client    *http.Client
	userAgent string

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

func newRobotsCache(client *http.Client, userAgent string) *robotsCache {
	return &robotsCache{
		client:    client,
		userAgent: userAgent,
		groups:    map[string]*robotstxt.Group{},
	}
}

// Allowed reports whether the page may be fetched. An unreachable robots.txt
// allows the page and is retried on the next call for that host.
func (c *robotsCache) Allowed(ctx context.Context, page *url.URL) bool {
	key := page.Scheme + "://" + page.Host

	c.mu.Lock()
	group, ok := c.groups[key]
	c.mu.Unlock()

	if !ok {
		var loaded bool
		group, loaded = c.load(ctx, key)
		if loaded {
			c.mu.Lock()
			c.groups[key] = group
			c.mu.Unlock()
		}
	}

	if group == nil {
		return true
	}
	path := page.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

// load fetches and parses robots.txt for origin. The bool is false when no
// answer came back, so the caller must not cache the result.
func (c *robotsCache) load(ctx context.Context, origin string) (*robotstxt.Group, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, false
	}
	return data.FindGroup(c.userAgent), true
}
