package config

import (
	"strings"

	"hwbot/internal/practicum"
	logx "hwbot/pkg/logx"
)

// MissingTokens lists the names of required credentials that are empty.
func MissingTokens(cfg *Config) []string {
	if cfg == nil {
		cfg = &Config{}
	}
	required := []struct {
		name  string
		value string
	}{
		{EnvPracticumToken, cfg.Practicum.Token},
		{EnvTelegramToken, cfg.Telegram.Token},
		{EnvTelegramChatID, cfg.Telegram.ChatID},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	return missing
}

// CheckTokens logs one critical line per missing credential and reports
// whether all of them are present. It never stops at the first gap.
func CheckTokens(cfg *Config, log logx.Logger) bool {
	missing := MissingTokens(cfg)
	for _, name := range missing {
		log.Critical("required token not found", logx.String("name", name))
	}
	return len(missing) == 0
}

// RequireTokens is CheckTokens as a startup error (practicum.KindToken).
func RequireTokens(cfg *Config, log logx.Logger) error {
	if CheckTokens(cfg, log) {
		return nil
	}
	return practicum.TokenError(MissingTokens(cfg))
}
