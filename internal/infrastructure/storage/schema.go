package storage

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// dialect captures the few differences between the supported engines.
type dialect struct {
	name        string
	placeholder sq.PlaceholderFormat
	schema      []string
}

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: sq.Question,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			published_at TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'other',
			confidence REAL NOT NULL DEFAULT 0,
			fetched_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_fetched_at ON articles(fetched_at)`,
	},
}

var postgresDialect = dialect{
	name:        "postgres",
	placeholder: sq.Dollar,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id BIGSERIAL PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			published_at TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'other',
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			fetched_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_fetched_at ON articles(fetched_at)`,
	},
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case sqliteDialect.name:
		return sqliteDialect, nil
	case postgresDialect.name:
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
}
