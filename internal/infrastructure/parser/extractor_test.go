package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

const articlePage = `<html><head><title>t</title><style>.x{}</style></head>
<body>
  <header><h1>Site header</h1></header>
  <nav><li>Home</li></nav>
  <article>
    <h1>Anonymous claims new operation</h1>
    <p>The group announced <b>OpUnite</b> today.</p>
    <script>var tracking = 1;</script>
    <svg><text>logo</text></svg>
    <ul><li>First point</li></ul>
  </article>
  <p>Outside the article</p>
  <footer><p>Copyright</p></footer>
</body></html>`

func TestDocumentTextPrefersArticle(t *testing.T) {
	t.Parallel()

	text, err := documentText(strings.NewReader(articlePage))
	if err != nil {
		t.Fatalf("documentText returned error: %v", err)
	}

	want := "Anonymous claims new operation The group announced OpUnite today. First point"
	if text != want {
		t.Fatalf("unexpected text:\n got %q\nwant %q", text, want)
	}
}

func TestDocumentTextFallsBackToBody(t *testing.T) {
	t.Parallel()

	page := `<html><body><header><p>menu</p></header><h2>Heading</h2><div><p>Body text</p></div><footer><p>foot</p></footer></body></html>`
	text, err := documentText(strings.NewReader(page))
	if err != nil {
		t.Fatalf("documentText returned error: %v", err)
	}
	if text != "Heading Body text" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractorExtract(t *testing.T) {
	t.Parallel()

	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articlePage))
	}))
	defer server.Close()

	ex := NewExtractor(ExtractorOptions{Client: server.Client(), UserAgent: "TestBot/1.0"}, nil)
	result := ex.Extract(context.Background(), server.URL+"/post")

	if result.Empty() {
		t.Fatalf("expected text, got empty result: %v", result.Err)
	}
	if !strings.Contains(result.Text, "OpUnite") {
		t.Fatalf("expected article text, got %q", result.Text)
	}
	if gotAgent != "TestBot/1.0" {
		t.Fatalf("unexpected user agent %q", gotAgent)
	}
}

func TestExtractorTruncates(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<p>" + strings.Repeat("a", 100) + "</p>"))
	}))
	defer server.Close()

	ex := NewExtractor(ExtractorOptions{Client: server.Client(), MaxChars: 10}, nil)
	result := ex.Extract(context.Background(), server.URL)

	if result.Text != strings.Repeat("a", 10) {
		t.Fatalf("expected 10 chars, got %d", len(result.Text))
	}
}

func TestExtractorFailuresAreEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/blank":
			_, _ = w.Write([]byte("<html><body><script>x()</script></body></html>"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("<p>late</p>"))
		}
	}))
	defer server.Close()

	client := server.Client()
	client.Timeout = 50 * time.Millisecond
	ex := NewExtractor(ExtractorOptions{Client: client}, nil)

	for _, path := range []string{"/missing", "/blank", "/slow"} {
		result := ex.Extract(context.Background(), server.URL+path)
		if !result.Empty() {
			t.Fatalf("%s: expected empty text, got %q", path, result.Text)
		}
		if result.Err == nil {
			t.Fatalf("%s: expected a reason", path)
		}
	}

	if r := ex.Extract(context.Background(), "not a url"); !r.Empty() {
		t.Fatalf("expected empty result for invalid url")
	}
	if r := ex.Extract(context.Background(), server.URL+"/blank"); !errors.Is(r.Err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", r.Err)
	}
}

func TestExtractorRespectsRobots(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		_, _ = w.Write([]byte("<p>anonymous</p>"))
	}))
	defer server.Close()

	ex := NewExtractor(ExtractorOptions{Client: server.Client(), RespectRobots: true}, nil)

	if r := ex.Extract(context.Background(), server.URL+"/private/post"); !errors.Is(r.Err, ErrDisallowed) {
		t.Fatalf("expected ErrDisallowed, got %v (%q)", r.Err, r.Text)
	}
	if r := ex.Extract(context.Background(), server.URL+"/public/post"); r.Text != "anonymous" {
		t.Fatalf("expected public page text, got %q (%v)", r.Text, r.Err)
	}
}

type flakyTransport struct {
	next http.RoundTripper

	mu     sync.Mutex
	failed bool
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	fail := req.URL.Path == "/robots.txt" && !f.failed
	if fail {
		f.failed = true
	}
	f.mu.Unlock()

	if fail {
		return nil, errors.New("connection reset")
	}
	return f.next.RoundTrip(req)
}

func TestExtractorRetriesUnreachableRobots(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		_, _ = w.Write([]byte("<p>anonymous</p>"))
	}))
	defer server.Close()

	client := server.Client()
	client.Transport = &flakyTransport{next: client.Transport}
	ex := NewExtractor(ExtractorOptions{Client: client, RespectRobots: true}, nil)

	if r := ex.Extract(context.Background(), server.URL+"/private/post"); r.Text != "anonymous" {
		t.Fatalf("expected page text while robots.txt is unreachable, got %q (%v)", r.Text, r.Err)
	}
	if r := ex.Extract(context.Background(), server.URL+"/private/post"); !errors.Is(r.Err, ErrDisallowed) {
		t.Fatalf("expected ErrDisallowed once robots.txt loads, got %v (%q)", r.Err, r.Text)
	}
}

func TestExtractorReadabilityMode(t *testing.T) {
	t.Parallel()

	paragraph := "Anonymous claimed the operation against the ministry portal late on Sunday, " +
		"posting a statement that listed the leaked archives and the reasons given for the attack."
	page := "<html><head><title>Claim</title></head><body>" +
		"<nav><a href=\"/\">menu</a></nav>" +
		"<div class=\"content\"><h1>Claim</h1>" +
		"<p>" + paragraph + "</p><p>" + paragraph + "</p><p>" + paragraph + "</p>" +
		"</div><footer>footer stuff</footer></body></html>"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	ex := NewExtractor(ExtractorOptions{Client: server.Client(), Mode: ModeReadability}, nil)
	r := ex.Extract(context.Background(), server.URL+"/claim")
	if r.Err != nil {
		t.Fatalf("unexpected error %v", r.Err)
	}
	if !strings.Contains(r.Text, "Anonymous claimed the operation") {
		t.Fatalf("expected article text, got %q", r.Text)
	}
	if strings.Contains(r.Text, "menu") || strings.Contains(r.Text, "footer stuff") {
		t.Fatalf("expected boilerplate to be stripped, got %q", r.Text)
	}
}

func TestExtractorDecodesCharset(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<p>hacktiviste caf\xe9</p>"))
	}))
	defer server.Close()

	ex := NewExtractor(ExtractorOptions{Client: server.Client()}, nil)
	r := ex.Extract(context.Background(), server.URL)
	if r.Text != "hacktiviste café" {
		t.Fatalf("unexpected decoded text %q", r.Text)
	}
}
