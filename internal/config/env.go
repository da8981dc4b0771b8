package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvPracticumToken = "PRACTICUM_TOKEN"
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"

	EnvPracticumEndpoint = "PRACTICUM_ENDPOINT"
	EnvPollSchedule      = "HWBOT_POLL_SCHEDULE"
	EnvLogLevel          = "HWBOT_LOG_LEVEL"
)

// LoadDotEnv loads variables from the given .env files (default "./.env")
// without overriding ones already set. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// ApplyEnv overlays non-empty environment values on cfg.
// lookup is usually os.Getenv.
func ApplyEnv(cfg *Config, lookup func(string) string) {
	if cfg == nil || lookup == nil {
		return
	}
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Practicum.Token, EnvPracticumToken)
	set(&cfg.Telegram.Token, EnvTelegramToken)
	set(&cfg.Telegram.ChatID, EnvTelegramChatID)
	set(&cfg.Practicum.Endpoint, EnvPracticumEndpoint)
	set(&cfg.Poll.Schedule, EnvPollSchedule)
	set(&cfg.Logging.Level, EnvLogLevel)
}
