package notifier

import "time"

// Config controls the notification channel.
type Config struct {
	Enabled       bool
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	// DedupWindow suppresses an identical text to the same target within the window. 0 disables.
	DedupWindow time.Duration
	// SendTimeout bounds a single send attempt. 0 means 10s.
	SendTimeout time.Duration
}

type HistoryItem struct {
	At     time.Time
	Target string
	Text   string
	Err    string
}
