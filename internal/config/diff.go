package config

import (
	"reflect"
	"strings"

	logx "hwbot/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections and safe
// structured attrs for logging. Tokens are never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Practicum.Endpoint != newCfg.Practicum.Endpoint ||
		oldCfg.Practicum.Timeout != newCfg.Practicum.Timeout ||
		oldCfg.Practicum.Token != newCfg.Practicum.Token {
		changed = append(changed, "practicum")
		attrs = append(attrs,
			logx.String("practicum.endpoint", newCfg.Practicum.Endpoint),
			logx.String("practicum.timeout", newCfg.Practicum.Timeout),
			logx.Bool("practicum.token_changed", oldCfg.Practicum.Token != newCfg.Practicum.Token),
		)
	}

	if oldCfg.Telegram.ChatID != newCfg.Telegram.ChatID ||
		oldCfg.Telegram.ThreadID != newCfg.Telegram.ThreadID ||
		oldCfg.Telegram.APIURL != newCfg.Telegram.APIURL ||
		oldCfg.Telegram.Timeout != newCfg.Telegram.Timeout ||
		oldCfg.Telegram.Token != newCfg.Telegram.Token {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.chat_changed", oldCfg.Telegram.ChatID != newCfg.Telegram.ChatID),
			logx.Int("telegram.thread_id", newCfg.Telegram.ThreadID),
			logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token),
		)
	}

	if strings.TrimSpace(oldCfg.Poll.Schedule) != strings.TrimSpace(newCfg.Poll.Schedule) ||
		strings.TrimSpace(oldCfg.Poll.Lookback) != strings.TrimSpace(newCfg.Poll.Lookback) {
		changed = append(changed, "poll")
		attrs = append(attrs, logx.String("poll.schedule", newCfg.Poll.Schedule))
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Notifier, newCfg.Notifier) {
		changed = append(changed, "notifier")
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
	}

	return changed, attrs
}
