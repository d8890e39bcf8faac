package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"MentionScanner/internal/domain"
	"MentionScanner/internal/ports"
)

// fetchedAtLayout is fixed-width so lexical order equals chronological order.
const fetchedAtLayout = "2006-01-02T15:04:05.000000Z"

var articleColumns = []string{
	"id", "url", "source", "title", "published_at", "content",
	"summary", "category", "confidence", "fetched_at",
}

// SQLRepository persists articles into sqlite or Postgres. Deduplication
// relies solely on the UNIQUE(url) constraint and ON CONFLICT DO NOTHING.
type SQLRepository struct {
	db      *sql.DB
	dialect dialect

	// writeMu orders fetched_at stamps with inserts.
	writeMu     sync.Mutex
	lastFetched time.Time
	now         func() time.Time
}

var _ ports.ArticleStore = (*SQLRepository)(nil)

// Open connects to the database and makes sure the schema exists.
func Open(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if d.name == sqliteDialect.name {
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if d.name == sqliteDialect.name {
		// one writer at a time; also keeps :memory: databases on a single connection
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo, err := NewSQLRepository(ctx, db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLRepository wires an existing sql.DB and initializes the schema.
func NewSQLRepository(ctx context.Context, db *sql.DB, driver string) (*SQLRepository, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	return &SQLRepository{db: db, dialect: d, now: time.Now}, nil
}

// Close releases the connection pool.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// Save inserts the article unless its URL already exists. A duplicate is not
// an error and never overwrites the stored record.
func (r *SQLRepository) Save(ctx context.Context, article domain.Article) (bool, error) {
	if strings.TrimSpace(article.URL) == "" {
		return false, fmt.Errorf("article url is empty")
	}
	if article.Category == "" {
		article.Category = domain.CategoryOther
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	query, args, err := sq.Insert("articles").
		Columns("url", "source", "title", "published_at", "content", "summary", "category", "confidence", "fetched_at").
		Values(
			article.URL,
			article.Source,
			article.Title,
			article.PublishedAt,
			article.Content,
			article.Summary,
			string(article.Category),
			domain.ClampConfidence(article.Confidence),
			r.nextFetchedAt().Format(fetchedAtLayout),
		).
		Suffix("ON CONFLICT (url) DO NOTHING").
		PlaceholderFormat(r.dialect.placeholder).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Query returns articles matching filter, newest published first.
func (r *SQLRepository) Query(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	builder := sq.Select(articleColumns...).From("articles")

	if text := strings.TrimSpace(filter.Text); text != "" {
		pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
		builder = builder.Where(sq.Or{
			sq.Expr(`lower(title) LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`lower(content) LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`lower(summary) LIKE ? ESCAPE '\'`, pattern),
		})
	}
	if source := strings.TrimSpace(filter.Source); source != "" {
		builder = builder.Where(sq.Expr("lower(source) = ?", strings.ToLower(source)))
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		builder = builder.Where(sq.Expr("lower(category) = ?", strings.ToLower(category)))
	}
	if filter.MinConfidence > 0 {
		builder = builder.Where(sq.GtOrEq{"confidence": filter.MinConfidence})
	}
	if filter.PublishedFrom != "" {
		builder = builder.Where(sq.GtOrEq{"published_at": filter.PublishedFrom})
	}
	if filter.PublishedTo != "" {
		builder = builder.Where(sq.LtOrEq{"published_at": filter.PublishedTo})
	}

	builder = builder.
		OrderBy("published_at DESC", "id DESC").
		Limit(uint64(clampLimit(filter.Limit)))

	return r.list(ctx, builder)
}

// Recent returns the latest fetched articles.
func (r *SQLRepository) Recent(ctx context.Context, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		limit = domain.RecentLimit
	}
	builder := sq.Select(articleColumns...).
		From("articles").
		OrderBy("fetched_at DESC", "id DESC").
		Limit(uint64(clampLimit(limit)))
	return r.list(ctx, builder)
}

// Get returns the article with the given id or domain.ErrNotFound.
func (r *SQLRepository) Get(ctx context.Context, id int64) (domain.Article, error) {
	query, args, err := sq.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(r.dialect.placeholder).
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build select: %w", err)
	}

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("get article %d: %w", id, err)
	}
	return article, nil
}

func (r *SQLRepository) list(ctx context.Context, builder sq.SelectBuilder) ([]domain.Article, error) {
	query, args, err := builder.PlaceholderFormat(r.dialect.placeholder).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	articles := make([]domain.Article, 0)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return articles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var (
		a         domain.Article
		category  string
		fetchedAt string
	)
	if err := row.Scan(
		&a.ID, &a.URL, &a.Source, &a.Title, &a.PublishedAt, &a.Content,
		&a.Summary, &category, &a.Confidence, &fetchedAt,
	); err != nil {
		return domain.Article{}, err
	}
	a.Category = domain.ParseCategory(category)
	if ts, err := time.Parse(fetchedAtLayout, fetchedAt); err == nil {
		a.FetchedAt = ts
	}
	return a, nil
}

// nextFetchedAt returns a timestamp strictly later than every previous one.
// Callers hold writeMu.
func (r *SQLRepository) nextFetchedAt() time.Time {
	ts := r.now().UTC().Truncate(time.Microsecond)
	if !ts.After(r.lastFetched) {
		ts = r.lastFetched.Add(time.Microsecond)
	}
	r.lastFetched = ts
	return ts
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return domain.QueryLimit
	case limit > domain.ExportLimit:
		return domain.ExportLimit
	default:
		return limit
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ensureSQLiteDir creates the parent directory of a file-backed sqlite DSN.
func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.Contains(path, ":memory:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}
