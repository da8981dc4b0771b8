package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	logx "hwbot/pkg/logx"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks everything except the credentials (see CheckTokens).
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	durations := []struct{ path, raw string }{
		{"practicum.timeout", cfg.Practicum.Timeout},
		{"telegram.timeout", cfg.Telegram.Timeout},
		{"poll.lookback", cfg.Poll.Lookback},
	}
	if n := cfg.Notifier; n != nil {
		durations = append(durations,
			struct{ path, raw string }{"notifier.retry_base", n.RetryBase},
			struct{ path, raw string }{"notifier.retry_max_delay", n.RetryMaxDelay},
			struct{ path, raw string }{"notifier.dedup_window", n.DedupWindow},
			struct{ path, raw string }{"notifier.send_timeout", n.SendTimeout},
		)
	}
	if s := cfg.Storage; s != nil {
		durations = append(durations, struct{ path, raw string }{"storage.busy_timeout", s.BusyTimeout})
	}
	for _, d := range durations {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}

	if _, err := ParseSchedule(cfg.Poll.Schedule); err != nil {
		return fmt.Errorf("poll.schedule: %w", err)
	}
	if !logx.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level)
	}
	return nil
}
