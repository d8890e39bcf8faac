package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"MentionScanner/internal/domain"
	"MentionScanner/internal/ports"
)

var errFake = errors.New("fake failure")

type fakeReader struct {
	feeds map[string][]domain.FeedItem
	errs  map[string]error
	calls []string
}

func (f *fakeReader) Read(_ context.Context, feedURL string) ([]domain.FeedItem, error) {
	f.calls = append(f.calls, feedURL)
	if err := f.errs[feedURL]; err != nil {
		return []domain.FeedItem{}, err
	}
	return f.feeds[feedURL], nil
}

type fakeExtractor struct {
	pages map[string]string
	calls []string
}

func (f *fakeExtractor) Extract(_ context.Context, pageURL string) domain.Extraction {
	f.calls = append(f.calls, pageURL)
	text, ok := f.pages[pageURL]
	if !ok {
		return domain.Extraction{Err: errFake}
	}
	return domain.Extraction{Text: text}
}

type fakeClassifier struct {
	mu      sync.Mutex
	calls   []string
	outcome domain.ClassificationOutcome
	panics  bool
}

func (f *fakeClassifier) Classify(_ context.Context, _ string, sourceURL string) domain.ClassificationOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sourceURL)
	if f.panics {
		panic("classifier exploded")
	}
	return f.outcome
}

func (f *fakeClassifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type memStore struct {
	mu      sync.Mutex
	byURL   map[string]domain.Article
	order   []string
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{byURL: map[string]domain.Article{}}
}

func (m *memStore) Save(_ context.Context, a domain.Article) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return false, m.saveErr
	}
	if _, ok := m.byURL[a.URL]; ok {
		return false, nil
	}
	a.ID = int64(len(m.order) + 1)
	m.byURL[a.URL] = a
	m.order = append(m.order, a.URL)
	return true, nil
}

func (m *memStore) Query(context.Context, domain.ArticleFilter) ([]domain.Article, error) {
	return m.all(), nil
}

func (m *memStore) Recent(context.Context, int) ([]domain.Article, error) {
	return m.all(), nil
}

func (m *memStore) Get(_ context.Context, id int64) (domain.Article, error) {
	for _, a := range m.all() {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Article{}, domain.ErrNotFound
}

func (m *memStore) all() []domain.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Article, 0, len(m.order))
	for _, u := range m.order {
		out = append(out, m.byURL[u])
	}
	return out
}

func (m *memStore) get(u string) (domain.Article, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byURL[u]
	return a, ok
}

// pollStep is one scripted getUpdates answer.
type pollStep struct {
	updates []domain.ChatUpdate
	err     error
}

type fakeUpdates struct {
	mu      sync.Mutex
	steps   []pollStep
	offsets []*int64
}

func (f *fakeUpdates) GetUpdates(_ context.Context, offset *int64, _ int, _ time.Duration) ([]domain.ChatUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offset != nil {
		v := *offset
		offset = &v
	}
	f.offsets = append(f.offsets, offset)
	if len(f.steps) == 0 {
		return nil, nil
	}
	step := f.steps[0]
	f.steps = f.steps[1:]
	return step.updates, step.err
}

func (f *fakeUpdates) requestedOffsets() []*int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*int64(nil), f.offsets...)
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) Publish(_ context.Context, text string) error {
	f.messages = append(f.messages, text)
	return f.err
}

type stubCompleter struct {
	out string
	err error
}

func (s stubCompleter) Complete(context.Context, ports.CompletionRequest) (string, error) {
	return s.out, s.err
}

func claimed(confidence float64) domain.ClassificationOutcome {
	return domain.ClassificationOutcome{Classification: domain.Classification{
		Summary:    "claimed",
		Category:   domain.CategoryClaimedOperation,
		Confidence: confidence,
	}}
}

func testKeywords() domain.KeywordSet {
	return domain.NewKeywordSet([]string{"anonymous", "opunite", "hacktivism"})
}

func noSleep(context.Context, time.Duration) {}
