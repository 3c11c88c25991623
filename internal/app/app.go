// Package app wires configuration, logging, the content source, publishers,
// notifier, and the selected trigger mode into one runnable unit.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autopost/internal/config"
	"autopost/internal/content"
	"autopost/internal/notify"
	"autopost/internal/publish"
	"autopost/internal/publish/linkedin"
	"autopost/internal/publish/twitter"
	"autopost/internal/run"
	"autopost/internal/server"
	"autopost/internal/trigger"
	"autopost/internal/window"
	logx "autopost/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	mode     window.Mode
	source   content.Source
	notifier *notify.Service
	runner   *run.Runner

	server *server.Server
	cron   *trigger.Cron

	serverErr chan error
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	a := &App{cfgMgr: mgr, logSvc: logSvc, log: log, serverErr: make(chan error, 1)}
	if err := a.build(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config) error {
	mode := window.Mode(cfg.Trigger.Mode)
	a.mode = mode

	reg, err := window.NewRegistry(cfg.Windows)
	if err != nil {
		return err
	}

	displayLoc := time.UTC
	if cfg.DisplayTimezone != "" {
		loc, err := time.LoadLocation(cfg.DisplayTimezone)
		if err != nil {
			return fmt.Errorf("display_timezone: %w", err)
		}
		displayLoc = loc
	}

	source, err := content.Open(cfg.Content, a.log.With(logx.String("comp", "content")))
	if err != nil {
		return err
	}
	a.source = source

	notifier, err := notify.New(cfg.Notify.Telegram, displayLoc, a.log.With(logx.String("comp", "notify")))
	if err != nil {
		return fmt.Errorf("telegram notifier: %w", err)
	}
	a.notifier = notifier

	var pubs []publish.Publisher
	if cfg.Platforms.Twitter.Enabled {
		pubs = append(pubs, twitter.New(cfg.Platforms.Twitter, a.log.With(logx.String("comp", "twitter"))))
	}
	if cfg.Platforms.LinkedIn.Enabled {
		pubs = append(pubs, linkedin.New(cfg.Platforms.LinkedIn, a.log.With(logx.String("comp", "linkedin"))))
	}
	if len(pubs) == 0 {
		a.log.Warn("no platforms enabled; every invocation will fail to publish")
	}

	evalOpts := []window.EvaluatorOption{}
	if cfg.Eligibility.DailyGuard != nil {
		evalOpts = append(evalOpts, window.WithDailyGuard(*cfg.Eligibility.DailyGuard))
	}
	eval := window.NewEvaluator(reg, mode, a.log.With(logx.String("comp", "eligibility")), evalOpts...)

	cooldown, err := config.ParseDurationOrDefault("eligibility.cooldown", cfg.Eligibility.Cooldown, content.DefaultCooldown)
	if err != nil {
		return err
	}
	pubTimeout, err := config.ParseDurationOrDefault("publish.timeout", cfg.Publish.Timeout, publish.DefaultTimeout)
	if err != nil {
		return err
	}

	a.runner = run.New(run.Deps{
		Log:        a.log,
		Evaluator:  eval,
		Counter:    window.NewDailyCounter(),
		Source:     source,
		Selector:   content.NewSelector(),
		Committer:  content.NewCommitter(source, a.log.With(logx.String("comp", "commit"))),
		Orch:       publish.NewOrchestrator(pubTimeout, a.log.With(logx.String("comp", "publish"))),
		Publishers: pubs,
		Notifier:   notifier,
		Cooldown:   cooldown,
	})

	switch mode {
	case window.ModeHTTP:
		srv, err := server.New(cfg.Server, cfg.Trigger.Signature, a.runner, a.log)
		if err != nil {
			return err
		}
		a.server = srv
	case window.ModeCron:
		a.cron = trigger.NewCron(reg, a.runner, a.log)
	default:
		return errors.New("unknown trigger mode: " + cfg.Trigger.Mode)
	}
	return nil
}

// Start launches the notifier, config watcher, and the trigger front-end.
func (a *App) Start(ctx context.Context) error {
	a.notifier.Start(ctx)

	// Only logging is hot-reloadable; window/platform changes need a
	// restart because the registry is immutable for the process lifetime.
	go func() {
		if err := a.cfgMgr.Watch(ctx); err != nil {
			a.log.Warn("config watch failed", logx.Err(err))
		}
	}()
	go func() {
		sub := a.cfgMgr.Subscribe(1)
		for {
			select {
			case <-ctx.Done():
				return
			case cfg := <-sub:
				a.logSvc.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.Enabled,
						Path:    cfg.Logging.File.Path,
					},
				})
				a.log.Info("logging config reloaded; other sections apply on restart")
			}
		}
	}()

	switch a.mode {
	case window.ModeHTTP:
		go func() { a.serverErr <- a.server.Run(ctx) }()
	case window.ModeCron:
		if err := a.cron.Start(ctx); err != nil {
			return err
		}
		a.log.Info("cron trigger started")
	}
	return nil
}

// Err reports a fatal server error, if any.
func (a *App) Err() <-chan error { return a.serverErr }

// RunOnce executes a single invocation for windowName (the -once dev path).
func (a *App) RunOnce(ctx context.Context, windowName string) run.Outcome {
	return a.runner.Run(ctx, run.Trigger{Window: windowName})
}

func (a *App) Stop(ctx context.Context) error {
	if a.server != nil {
		_ = a.server.Shutdown(ctx)
	}
	if a.cron != nil {
		a.cron.Stop(ctx)
	}
	a.notifier.Stop(ctx)
	if a.source != nil {
		_ = a.source.Close()
	}
	return a.logSvc.Close()
}
