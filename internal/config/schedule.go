package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule polls every 600 seconds.
const DefaultSchedule = "@every 10m"

// ParseSchedule turns a schedule string into a cron.Schedule.
//
// Supported forms:
//   - Go duration: "10m", "90s" (fixed delay)
//   - Descriptor: "@every 10m", "@hourly"
//   - Cron: "*/10 * * * *"
func ParseSchedule(raw string) (cron.Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		s = DefaultSchedule
	}
	if !strings.ContainsAny(s, " \t@") {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", raw, err)
		}
		if d < time.Second {
			return nil, fmt.Errorf("invalid schedule %q: interval must be >= 1s", raw)
		}
		return cron.Every(d), nil
	}
	sched, err := cron.ParseStandard(s)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q (use '10m', '@every 10m' or cron like '*/10 * * * *'): %w", raw, err)
	}
	return sched, nil
}
