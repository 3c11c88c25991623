package content

import (
	"context"
	"fmt"
	"time"

	logx "autopost/pkg/logx"
)

// Committer writes the last-posted marker after a confirmed publish.
//
// Commit is attempted exactly once per invocation. A NotFound from the
// source means the selected item disappeared between read and write; that is
// surfaced as a hard error and never retried against a moving target.
type Committer struct {
	source Source
	log    logx.Logger
}

func NewCommitter(source Source, log logx.Logger) *Committer {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Committer{source: source, log: log}
}

func (c *Committer) Commit(ctx context.Context, url string, at time.Time) error {
	if err := c.source.SetLastPosted(ctx, url, at); err != nil {
		return fmt.Errorf("commit last posted: %w", err)
	}
	c.log.Info("last posted committed",
		logx.String("url", url),
		logx.Time("at", at.UTC()))
	return nil
}
