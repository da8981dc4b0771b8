package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"hwbot/internal/config"
	"hwbot/internal/notifier"
	"hwbot/internal/poller"
	"hwbot/internal/practicum"
	"hwbot/internal/runtime/supervisor"
	"hwbot/internal/storage"
	telegram "hwbot/internal/transport/telegram/adapter"
	logx "hwbot/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store storage.Store

	notif *notifier.Service
	poll  *poller.Poller
}

type Option func(*options)

type options struct {
	getenv func(string) string
}

// WithEnv replaces the environment lookup used for credentials and overrides.
func WithEnv(fn func(string) string) Option {
	return func(o *options) { o.getenv = fn }
}

// NewApp loads the config and wires every component. A missing credential
// returns a practicum.KindToken error after logging each missing name.
func NewApp(cfgPath string, opts ...Option) (*App, error) {
	o := options{getenv: os.Getenv}
	for _, opt := range opts {
		opt(&o)
	}

	cfgm := config.NewConfigManager(cfgPath)
	cfgm.SetEnv(o.getenv)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	if err := config.RequireTokens(cfg, log); err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	a := &App{cfgm: cfgm, log: log, logs: logSvc}
	if err := a.wire(cfg); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(cfg *config.Config) error {
	root := a.logs.Logger()

	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return err
	} else if enabled {
		st, err := storage.Open(sc, root.With(logx.String("comp", "storage")))
		if err != nil {
			return err
		}
		a.store = st
		a.log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	tcfg, err := mapTelegramConfig(cfg)
	if err != nil {
		return err
	}
	ad, err := telegram.New(tcfg, root.With(logx.String("comp", "telegram")))
	if err != nil {
		return err
	}

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return err
	}
	a.notif = notifier.New(ncfg, ad, root.With(logx.String("comp", "notifier")), a.store)

	pcfg, err := mapPracticumConfig(cfg)
	if err != nil {
		return err
	}
	client := practicum.NewClient(pcfg, nil, root.With(logx.String("comp", "practicum")))

	pollCfg, err := mapPollConfig(cfg)
	if err != nil {
		return err
	}
	a.poll = poller.New(pollCfg, client, a.notif, a.store, root.With(logx.String("comp", "poller")))
	return nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Logger() logx.Logger { return a.log }

// Notifier exposes the notification channel (delivery history).
func (a *App) Notifier() *notifier.Service { return a.notif }

func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return fmt.Errorf("app already started")
	}
	a.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	a.sup.Go("poll.loop", a.poll.Run)

	sub := a.cfgm.Subscribe(4)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})
	a.sup.GoRestart("config.watch", a.cfgm.Watch, time.Second, 30*time.Second)

	sdNotify(a.log, daemon.SdNotifyReady)
	a.log.Info("app started", logx.String("config", a.cfgm.Path()))
	return nil
}

// applyConfig applies the live-reloadable sections: logging, notifier and the
// poll schedule. Credentials, endpoints and storage need a restart.
func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	a.logs.Apply(mapLogConfig(newCfg))

	if ncfg, err := mapNotifierConfig(newCfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		a.notif.Apply(ncfg)
	}

	if pcfg, err := mapPollConfig(newCfg); err != nil {
		a.log.Warn("invalid poll config; keeping previous", logx.Err(err))
	} else {
		a.poll.SetSchedule(pcfg.Schedule)
	}

	for _, s := range sections {
		switch s {
		case "practicum", "telegram", "storage":
			a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// Stop cancels every loop, waits for them within ctx and releases resources.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		a.closeResources()
		return nil
	}
	sdNotify(a.log, daemon.SdNotifyStopping)
	a.log.Info("stopping", logx.String("reason", string(reason)))

	a.sup.Cancel()
	err := a.sup.Wait(ctx)
	if err != nil {
		a.log.Warn("supervisor stopped with error", logx.Err(err))
	}

	a.log.Info("stopped")
	a.closeResources()
	return err
}

func (a *App) closeResources() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
		a.store = nil
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}
