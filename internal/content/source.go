package content

import (
	"context"
	"errors"
	"strings"
	"time"

	"autopost/internal/config"
	logx "autopost/pkg/logx"
)

// ErrNotFound is returned when an item URL is absent from the source.
var ErrNotFound = errors.New("content item not found")

// Source is the row store holding postable items.
//
// List must read fresh state on every call; the runner relies on that for
// correct cooldown filtering across invocations.
type Source interface {
	List(ctx context.Context) ([]Item, error)
	SetLastPosted(ctx context.Context, url string, at time.Time) error
	Close() error
}

// Open initializes the configured content source.
func Open(cfg config.ContentConfig, log logx.Logger) (Source, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown content driver: " + driver)
	}
}
