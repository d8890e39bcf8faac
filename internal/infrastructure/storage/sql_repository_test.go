package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MentionScanner/internal/domain"
)

func newTestRepository(t *testing.T) *SQLRepository {
	t.Helper()

	repo, err := Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seed(t *testing.T, repo *SQLRepository, articles ...domain.Article) {
	t.Helper()
	for _, a := range articles {
		inserted, err := repo.Save(context.Background(), a)
		require.NoError(t, err)
		require.True(t, inserted, a.URL)
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := domain.Article{URL: "https://a.example/1", Source: "a.example", Title: "first", Content: "original"}
	second := domain.Article{URL: "https://a.example/1", Source: "a.example", Title: "second", Content: "changed"}

	inserted, err := repo.Save(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Save(ctx, second)
	require.NoError(t, err)
	assert.False(t, inserted)

	all, err := repo.Query(ctx, domain.ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "first", all[0].Title)
	assert.Equal(t, "original", all[0].Content)
	assert.Equal(t, domain.CategoryOther, all[0].Category)
}

func TestConcurrentSavesKeepOneRecord(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Save(ctx, domain.Article{URL: "tg://-1/7", Title: fmt.Sprintf("copy %d", i)})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	all, err := repo.Query(ctx, domain.ArticleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveRejectsEmptyURL(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Save(context.Background(), domain.Article{Title: "no url"})
	assert.Error(t, err)
}

func TestSaveClampsConfidence(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo,
		domain.Article{URL: "u1", Confidence: 1.7},
		domain.Article{URL: "u2", Confidence: -0.3},
	)

	all, err := repo.Query(context.Background(), domain.ArticleFilter{})
	require.NoError(t, err)
	byURL := map[string]float64{}
	for _, a := range all {
		byURL[a.URL] = a.Confidence
	}
	assert.Equal(t, 1.0, byURL["u1"])
	assert.Equal(t, 0.0, byURL["u2"])
}

func TestFetchedAtIsMonotonic(t *testing.T) {
	repo := newTestRepository(t)
	frozen := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return frozen }

	seed(t, repo, domain.Article{URL: "u1"}, domain.Article{URL: "u2"}, domain.Article{URL: "u3"})

	recent, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "u3", recent[0].URL)
	assert.True(t, recent[0].FetchedAt.After(recent[1].FetchedAt))
	assert.True(t, recent[1].FetchedAt.After(recent[2].FetchedAt))
}

func TestConcurrentSavesStampInInsertOrder(t *testing.T) {
	repo := newTestRepository(t)
	frozen := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return frozen }

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Save(context.Background(), domain.Article{URL: fmt.Sprintf("u%d", i)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	recent, err := repo.Recent(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, recent, 32)
	for i := 1; i < len(recent); i++ {
		assert.Greater(t, recent[i-1].ID, recent[i].ID, "fetched_at order must match insert order")
		assert.True(t, recent[i-1].FetchedAt.After(recent[i].FetchedAt))
	}
}

func TestQueryFilters(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seed(t, repo,
		domain.Article{URL: "u1", Source: "krebsonsecurity.com", Title: "Anonymous claims OpUnite", PublishedAt: "2025-06-01T10:00:00",
			Summary: "claim", Category: domain.CategoryClaimedOperation, Confidence: 0.9},
		domain.Article{URL: "u2", Source: "telegram", Title: "chat", Content: "mentions 100% hacktivism", PublishedAt: "2025-06-03T10:00:00",
			Category: domain.CategoryNews, Confidence: 0.4},
		domain.Article{URL: "u3", Source: "wired.com", Title: "history", Summary: "old anonymous raids", PublishedAt: "2024-01-01T00:00:00",
			Category: domain.CategoryHistorical, Confidence: 0.2},
	)

	tests := []struct {
		name   string
		filter domain.ArticleFilter
		want   []string
	}{
		{name: "all ordered by published desc", filter: domain.ArticleFilter{}, want: []string{"u2", "u1", "u3"}},
		{name: "text across title and summary", filter: domain.ArticleFilter{Text: "ANONYMOUS"}, want: []string{"u1", "u3"}},
		{name: "text in content with literal percent", filter: domain.ArticleFilter{Text: "100%"}, want: []string{"u2"}},
		{name: "wildcard is literal", filter: domain.ArticleFilter{Text: "_"}, want: []string{}},
		{name: "source case-insensitive", filter: domain.ArticleFilter{Source: "Telegram"}, want: []string{"u2"}},
		{name: "category", filter: domain.ArticleFilter{Category: "claimed_operation"}, want: []string{"u1"}},
		{name: "min confidence", filter: domain.ArticleFilter{MinConfidence: 0.4}, want: []string{"u2", "u1"}},
		{name: "published range", filter: domain.ArticleFilter{PublishedFrom: "2025-01-01", PublishedTo: "2025-06-02"}, want: []string{"u1"}},
		{name: "limit", filter: domain.ArticleFilter{Limit: 1}, want: []string{"u2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Query(ctx, tt.filter)
			require.NoError(t, err)
			urls := make([]string, 0, len(got))
			for _, a := range got {
				urls = append(urls, a.URL)
			}
			assert.Equal(t, tt.want, urls)
		})
	}
}

func TestGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seed(t, repo, domain.Article{URL: "u1", Title: "hello", Category: domain.CategoryOpinion, Confidence: 0.5})

	all, err := repo.Query(ctx, domain.ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	got, err := repo.Get(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, domain.CategoryOpinion, got.Category)
	assert.False(t, got.FetchedAt.IsZero())

	_, err = repo.Get(ctx, all[0].ID+100)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpenFileDatabaseCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	repo, err := Open(context.Background(), "sqlite", "file:"+filepath.Join(dir, "feeds.db"))
	require.NoError(t, err)
	defer repo.Close()

	seed(t, repo, domain.Article{URL: "u1"})
	assert.DirExists(t, dir)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	assert.Error(t, err)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, domain.QueryLimit, clampLimit(0))
	assert.Equal(t, domain.ExportLimit, clampLimit(1_000_000))
	assert.Equal(t, 7, clampLimit(7))
}
