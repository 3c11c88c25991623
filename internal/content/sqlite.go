package content

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"autopost/internal/config"
	logx "autopost/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteSource struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg config.ContentConfig, log logx.Logger) (Source, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("content.path is required for sqlite driver")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &sqliteSource{db: db, log: log}

	// Basic pragmas.
	busy, err := config.ParseDurationField("content.busy_timeout", cfg.BusyTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if busy > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteSource) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteSource) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteSource) List(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, image, title, messages, COALESCE(last_posted, '') FROM posts ORDER BY url`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.URL, &it.Image, &it.Title, &it.Messages, &it.LastPosted); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *sqliteSource) SetLastPosted(ctx context.Context, url string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET last_posted = ? WHERE url = ?`,
		at.UTC().Format(time.RFC3339), url)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return nil
}
