package content

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"autopost/internal/config"
	logx "autopost/pkg/logx"
)

// fileSource is a dependency-free content backend: one JSON object per line.
//
// List re-reads the file on every call so external edits are picked up
// between invocations. Updates rewrite the whole file through a temp file
// and rename, so a crash mid-write never truncates the store.
type fileSource struct {
	path string
	log  logx.Logger

	mu sync.Mutex // serializes rewrites
}

func openFile(cfg config.ContentConfig, log logx.Logger) (Source, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("content.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// Create an empty store on first run.
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return nil, err
		}
	}
	return &fileSource{path: path, log: log}, nil
}

func (s *fileSource) Close() error { return nil }

func (s *fileSource) List(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []Item
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var it Item
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			// Skip bad lines instead of poisoning the whole store.
			s.log.Warn("skipping malformed content row",
				logx.Int("line", line), logx.Err(err))
			continue
		}
		items = append(items, it)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *fileSource) SetLastPosted(ctx context.Context, url string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.List(ctx)
	if err != nil {
		return err
	}

	found := false
	for idx := range items {
		if items[idx].URL == url {
			items[idx].LastPosted = at.UTC().Format(time.RFC3339)
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return s.rewrite(items)
}

func (s *fileSource) rewrite(items []Item) error {
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.path)
}
