package notifier

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"hwbot/internal/storage"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

var (
	ErrDisabled = errors.New("notifier disabled")
	ErrNoSender = errors.New("notifier has no sender")
)

const historyMax = 300

// Service implements a synchronous notification channel:
// rate limit + retry + dedup + history + audit.
//
// It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	sender kit.Sender
	store  storage.Store

	cfg     Config
	limiter *rate.Limiter
	dedup   *cache.Cache

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender kit.Sender, log logx.Logger, store storage.Store) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{sender: sender, log: log, store: store}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	if cfg.DedupWindow < 0 {
		cfg.DedupWindow = 0
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	if cfg.DedupWindow != s.cfg.DedupWindow || s.dedup == nil {
		if cfg.DedupWindow > 0 {
			s.dedup = cache.New(cfg.DedupWindow, 2*cfg.DedupWindow)
		} else {
			s.dedup = nil
		}
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Notify delivers n, retrying transient failures. It blocks until the text is
// sent, all attempts failed, or ctx is done. A text suppressed by the dedup
// window returns nil.
func (s *Service) Notify(ctx context.Context, n kit.Notification) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	dd := s.dedup
	sender := s.sender
	s.mu.Unlock()

	if !cfg.Enabled {
		return ErrDisabled
	}
	if sender == nil {
		return ErrNoSender
	}

	text := prefixForPriority(n.Priority) + n.Text
	if text == "" {
		return nil
	}

	key := dedupKey(n)
	if dd != nil && key != "" {
		if _, found := dd.Get(key); found {
			s.log.Debug("notification deduped", logx.String("key", key))
			s.audit(ctx, n, "deduped", nil, 0)
			return nil
		}
	}

	maxAttempts := 1 + cfg.RetryMax
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
		_, err := sender.SendText(callCtx, n.Target, text, n.Options)
		cancel()
		if err == nil {
			if dd != nil && key != "" {
				dd.SetDefault(key, struct{}{})
			}
			s.appendHistory(n.Target.ChatID, text, nil)
			s.audit(ctx, n, "sent", nil, time.Since(start))
			s.log.Info("notification sent", logx.String("chat_id", n.Target.ChatID), logx.String("text", n.Text))
			return nil
		}
		lastErr = err
		s.log.Debug("notify send failed", logx.Err(err), logx.Int("attempt", attempt), logx.Int("max", maxAttempts))

		if attempt >= maxAttempts {
			break
		}

		delay := retryDelay(cfg, attempt)
		if delay <= 0 {
			continue
		}
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}

	s.appendHistory(n.Target.ChatID, text, lastErr)
	s.audit(ctx, n, "failed", lastErr, time.Since(start))
	s.log.Error("notification failed", logx.Err(lastErr), logx.String("chat_id", n.Target.ChatID), logx.Int("attempts", maxAttempts))
	return fmt.Errorf("notify %s: %w", n.Target.ChatID, lastErr)
}

func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) appendHistory(target, text string, err error) {
	it := HistoryItem{At: time.Now(), Target: target, Text: text}
	if err != nil {
		it.Err = err.Error()
	}
	s.hmu.Lock()
	s.history = append(s.history, it)
	if len(s.history) > historyMax {
		s.history = s.history[len(s.history)-historyMax:]
	}
	s.hmu.Unlock()
}

func (s *Service) audit(ctx context.Context, n kit.Notification, status string, err error, took time.Duration) {
	if s.store == nil {
		return
	}
	e := storage.AuditEntry{
		At:     time.Now(),
		Kind:   storage.KindNotify,
		Target: n.Target.ChatID,
		Text:   n.Text,
		Status: status,
		TookMS: took.Milliseconds(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	// Detached from ctx so a cancelled caller still leaves a trace.
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 250*time.Millisecond)
	defer cancel()
	if aerr := s.store.AppendAudit(actx, e); aerr != nil {
		s.log.Debug("audit append failed", logx.Err(aerr))
	}
}

func prefixForPriority(p int) string {
	switch {
	case p >= 9:
		return "🚨 "
	case p >= 7:
		return "⚠️ "
	default:
		return ""
	}
}

func dedupKey(n kit.Notification) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(n.Channel))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d:%d|", n.Target.ChatID, n.Target.ThreadID, n.Priority)))
	_, _ = h.Write([]byte(n.Text))
	return fmt.Sprintf("%x", h.Sum64())
}

func retryDelay(cfg Config, attempt int) time.Duration {
	// attempt starts at 1 (first attempt), delay is for the NEXT attempt.
	base := cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	maxD := cfg.RetryMaxDelay
	if maxD <= 0 {
		maxD = 10 * time.Second
	}
	// Exponential backoff: base * 2^(attempt-1)
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxD {
			d = maxD
			break
		}
	}
	// Jitter 0.7..1.3
	j := 0.7 + rand.Float64()*0.6
	d = time.Duration(float64(d) * j)
	if d > maxD {
		d = maxD
	}
	return d
}
