package config

// Config is the whole bot configuration.
//
// Everything has a default except the three credentials, which normally come
// from the environment (PRACTICUM_TOKEN, TELEGRAM_TOKEN, TELEGRAM_CHAT_ID).
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Practicum PracticumConfig `json:"practicum"`
	Telegram  TelegramConfig  `json:"telegram"`
	Poll      PollConfig      `json:"poll"`
	Logging   LoggingConfig   `json:"logging"`

	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
}

type PracticumConfig struct {
	Endpoint string `json:"endpoint,omitempty" validate:"omitempty,url"`
	// Token is the OAuth token. Prefer the PRACTICUM_TOKEN env var (do not log).
	Token   string `json:"token,omitempty"`
	Timeout string `json:"timeout,omitempty"` // default: "30s"
}

type TelegramConfig struct {
	// Token is the bot token. Prefer the TELEGRAM_TOKEN env var (do not log).
	Token string `json:"token,omitempty"`
	// ChatID is a numeric chat id or a public "@channel" name.
	ChatID   string `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty" validate:"gte=0"`
	APIURL   string `json:"api_url,omitempty" validate:"omitempty,url"`
	Timeout  string `json:"timeout,omitempty"` // default: "10s"
}

// PollConfig controls the poll loop.
//
// Schedule accepts a Go duration ("10m"), a descriptor ("@every 10m",
// "@hourly") or a 5-field cron expression. The next slot is computed from the
// end of the previous iteration.
//
// Lookback moves the first from_date into the past so recent reviews are
// reported on startup.
type PollConfig struct {
	Schedule string `json:"schedule,omitempty"` // default: "@every 10m"
	Lookback string `json:"lookback,omitempty"` // default: "0s"
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// NotifierConfig controls delivery of messages.
//
// If the whole section or "enabled" is omitted, the notifier is enabled.
type NotifierConfig struct {
	Enabled       *bool  `json:"enabled,omitempty"`
	RatePerSec    int    `json:"rate_per_sec" validate:"gte=0"`
	RetryMax      int    `json:"retry_max" validate:"gte=0,lte=10"`
	RetryBase     string `json:"retry_base"`
	RetryMaxDelay string `json:"retry_max_delay"`
	DedupWindow   string `json:"dedup_window"`
	SendTimeout   string `json:"send_timeout,omitempty"`
}

// StorageConfig controls the optional audit log.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/hwbot.sqlite" }
type StorageConfig struct {
	Driver      string `json:"driver" validate:"omitempty,oneof=none file sqlite sqlite3"`
	Path        string `json:"path" validate:"required_if=Driver file,required_if=Driver sqlite,required_if=Driver sqlite3"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Poll: PollConfig{Schedule: DefaultSchedule},
		Logging: LoggingConfig{
			Level:   "INFO",
			Console: true,
			File:    LoggingFile{Enabled: true, Path: "./hwbot.log"},
		},
	}
}
