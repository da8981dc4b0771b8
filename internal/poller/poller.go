package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"hwbot/internal/practicum"
	"hwbot/internal/storage"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

// FailurePrefix starts every relayed poll failure.
const FailurePrefix = "Сбой в работе программы: "

// DefaultInterval is used when no schedule is configured.
const DefaultInterval = 600 * time.Second

// Fetcher returns the review state changed since a unix timestamp.
type Fetcher interface {
	FetchStatus(ctx context.Context, since int64) (practicum.Response, error)
}

// Notifier delivers a message to the configured chat.
type Notifier interface {
	Notify(ctx context.Context, n kit.Notification) error
}

// PollState is owned by the poll loop and never shared.
type PollState struct {
	LastTimestamp int64
	// LastNotified is the last verdict text delivered; empty means none.
	LastNotified string
	// LastFailure is the last failure text delivered; reset after a clean iteration.
	LastFailure string
}

type Config struct {
	Target   kit.ChatTarget
	Schedule cron.Schedule // nil means every DefaultInterval
	Lookback time.Duration
}

type scheduleBox struct{ s cron.Schedule }

type Poller struct {
	fetch  Fetcher
	notify Notifier
	store  storage.Store
	log    logx.Logger

	target   kit.ChatTarget
	lookback time.Duration
	sched    atomic.Value // scheduleBox

	now   func() time.Time
	state PollState
}

func New(cfg Config, fetch Fetcher, notify Notifier, store storage.Store, log logx.Logger) *Poller {
	if log.IsZero() {
		log = logx.Nop()
	}
	p := &Poller{
		fetch:    fetch,
		notify:   notify,
		store:    store,
		log:      log,
		target:   cfg.Target,
		lookback: cfg.Lookback,
		now:      time.Now,
	}
	p.SetSchedule(cfg.Schedule)
	return p
}

// SetSchedule swaps the schedule used for the next sleep. Safe to call from
// another goroutine.
func (p *Poller) SetSchedule(s cron.Schedule) {
	if s == nil {
		s = cron.Every(DefaultInterval)
	}
	p.sched.Store(scheduleBox{s: s})
}

func (p *Poller) schedule() cron.Schedule {
	return p.sched.Load().(scheduleBox).s
}

// State returns a copy of the poll state. Not safe while Run is active.
func (p *Poller) State() PollState { return p.state }

// Run polls until ctx is done. Iteration failures are logged and relayed but
// never end the loop; the only return value is the context error.
func (p *Poller) Run(ctx context.Context) error {
	p.state.LastTimestamp = p.now().Add(-p.lookback).Unix()
	p.log.Info("poller started", logx.Int64("from_date", p.state.LastTimestamp))

	for {
		_ = p.Tick(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		now := p.now()
		next := p.schedule().Next(now)
		wait := next.Sub(now)
		p.log.Debug("poll sleeping", logx.Duration("wait", wait), logx.Time("next", next))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Tick runs one iteration: fetch, validate, notify on a new verdict and
// advance the timestamp. Failures are logged and relayed through the notifier,
// then returned to the caller.
func (p *Poller) Tick(ctx context.Context) error {
	log := p.log.With(logx.String("poll_id", uuid.NewString()))
	start := time.Now()

	status, err := p.check(ctx, log)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return err
		}
		log.Error("poll failed", logx.String("kind", practicum.KindOf(err).String()), logx.Err(err))
		p.relayFailure(ctx, log, err)
	} else {
		p.state.LastFailure = ""
	}
	p.audit(ctx, status, err, time.Since(start))
	return err
}

func (p *Poller) check(ctx context.Context, log logx.Logger) (string, error) {
	resp, err := p.fetch.FetchStatus(ctx, p.state.LastTimestamp)
	if err != nil {
		return "", err
	}

	status := ""
	delivered := true
	if len(resp.Homeworks) == 0 {
		log.Info("no homework found", logx.Int64("from_date", p.state.LastTimestamp))
	} else {
		hw := resp.Homeworks[0]
		status = hw.Status
		text, err := practicum.ParseStatus(hw)
		if err != nil {
			return status, err
		}
		if text == p.state.LastNotified {
			log.Debug("status unchanged", logx.String("homework", hw.Name), logx.String("status", hw.Status))
		} else if err := p.notify.Notify(ctx, p.notification(text, 5)); err != nil {
			// Keep from_date so the same record comes back next time.
			delivered = false
			log.Error("verdict not delivered", logx.String("homework", hw.Name), logx.Err(err))
		} else {
			p.state.LastNotified = text
			log.Info("verdict delivered", logx.String("homework", hw.Name), logx.String("status", hw.Status))
		}
	}

	if resp.HasCurrentDate && delivered {
		p.state.LastTimestamp = resp.CurrentDate
	}
	return status, nil
}

func (p *Poller) relayFailure(ctx context.Context, log logx.Logger, cause error) {
	text := FailurePrefix + cause.Error()
	if text == p.state.LastFailure {
		log.Debug("failure already relayed")
		return
	}
	if err := p.notify.Notify(ctx, p.notification(text, 0)); err != nil {
		log.Error("failure not relayed", logx.Err(err))
		return
	}
	p.state.LastFailure = text
}

func (p *Poller) notification(text string, priority int) kit.Notification {
	return kit.Notification{
		Channel:  "telegram",
		Priority: priority,
		Target:   p.target,
		Text:     text,
	}
}

func (p *Poller) audit(ctx context.Context, status string, cause error, took time.Duration) {
	if p.store == nil {
		return
	}
	e := storage.AuditEntry{
		At:     p.now(),
		Kind:   storage.KindPoll,
		Target: p.target.ChatID,
		Status: status,
		TookMS: took.Milliseconds(),
	}
	if cause != nil {
		e.Error = cause.Error()
	}
	if err := p.store.AppendAudit(context.WithoutCancel(ctx), e); err != nil {
		p.log.Warn("poll audit failed", logx.Err(err))
	}
}
