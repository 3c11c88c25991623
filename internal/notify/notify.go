// Package notify reports invocation outcomes to a Telegram chat.
//
// Notification delivery is strictly best-effort: a send failure is logged
// and dropped, never propagated into the posting flow.
package notify

import (
	"context"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"golang.org/x/time/rate"

	"autopost/internal/config"
	"autopost/internal/content"
	"autopost/internal/publish"
	logx "autopost/pkg/logx"
)

// sender is the slice of the telebot API the service needs; *tele.Bot
// satisfies it, tests inject a fake.
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type Service struct {
	log      logx.Logger
	bot      sender
	chatID   int64
	threadID int
	loc      *time.Location
	limiter  *rate.Limiter

	mu     sync.Mutex
	queue  chan string
	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds the notifier. Returns a disabled (no-op) service when the
// telegram section is off or incomplete; callers never need to nil-check.
func New(cfg config.TelegramConfig, displayLoc *time.Location, log logx.Logger) (*Service, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if displayLoc == nil {
		displayLoc = time.UTC
	}
	s := &Service{log: log, loc: displayLoc, chatID: cfg.ChatID, threadID: cfg.ThreadID}

	if !cfg.Enabled || cfg.Token == "" || cfg.ChatID == 0 {
		log.Debug("telegram notifications disabled")
		return s, nil
	}

	bot, err := tele.NewBot(tele.Settings{Token: cfg.Token, Offline: false})
	if err != nil {
		return nil, err
	}
	s.bot = bot

	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), rps)

	size := cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	s.queue = make(chan string, size)
	return s, nil
}

func (s *Service) Enabled() bool { return s.bot != nil }

// Start launches the send worker. Idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bot == nil || s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.worker(ctx, s.queue, s.stopCh, s.doneCh)
}

// Stop halts the worker; queued notifications past this point are dropped.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	select {
	case <-doneCh:
	case <-ctx.Done():
	}
}

func (s *Service) worker(ctx context.Context, queue <-chan string, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case text := <-queue:
			if s.limiter != nil {
				if err := s.limiter.Wait(ctx); err != nil {
					return
				}
			}
			s.send(text)
		}
	}
}

func (s *Service) send(text string) {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, ThreadID: s.threadID}
	if _, err := s.bot.Send(tele.ChatID(s.chatID), text, opts); err != nil {
		s.log.Warn("telegram notification failed", logx.Err(err))
	}
}

// enqueue never blocks the posting flow; a full queue drops the message.
func (s *Service) enqueue(text string) {
	if s.bot == nil {
		return
	}
	select {
	case s.queue <- text:
	default:
		s.log.Warn("notification queue full, dropping message")
	}
}

// Published reports a successful post with its per-platform results.
func (s *Service) Published(item content.Item, message string, outcomes publish.OutcomeSet) {
	s.enqueue(formatPublished(item, message, outcomes, time.Now().In(s.loc)))
}

// Skipped reports a non-error skip decision and why.
func (s *Service) Skipped(reason, detail string) {
	s.enqueue(formatSkipped(reason, detail, time.Now().In(s.loc)))
}

// Failed reports a hard failure.
func (s *Service) Failed(message, detail string) {
	s.enqueue(formatFailed(message, detail, time.Now().In(s.loc)))
}
