package config

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hwbot/internal/practicum"
	logx "hwbot/pkg/logx"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func fullEnv() map[string]string {
	return map[string]string{
		EnvPracticumToken: "p-token",
		EnvTelegramToken:  "t-token",
		EnvTelegramChatID: "42",
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	m := NewConfigManager("")
	m.SetEnv(envMap(fullEnv()))

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "p-token", cfg.Practicum.Token)
	assert.Equal(t, "t-token", cfg.Telegram.Token)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, DefaultSchedule, cfg.Poll.Schedule)
	assert.True(t, cfg.Logging.Console)
	assert.True(t, cfg.Logging.File.Enabled)
	assert.Same(t, cfg, m.Get())
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "hwbot.json", `{
		"practicum": {"token": "from-file", "timeout": "5s"},
		"telegram": {"chat_id": "7"},
		"poll": {"schedule": "15m"}
	}`)
	m := NewConfigManager(path)
	m.SetEnv(envMap(map[string]string{EnvPracticumToken: "from-env"}))

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Practicum.Token)
	assert.Equal(t, "5s", cfg.Practicum.Timeout)
	assert.Equal(t, "7", cfg.Telegram.ChatID)
	assert.Equal(t, "15m", cfg.Poll.Schedule)
	// Sections absent from the file keep their defaults.
	assert.True(t, cfg.Logging.Console)
}

func TestYAMLMatchesJSON(t *testing.T) {
	jsonPath := writeFile(t, "hwbot.json", `{
		"poll": {"schedule": "@every 5m", "lookback": "48h"},
		"logging": {"level": "debug", "console": false, "file": {"enabled": true, "path": "x.log"}},
		"storage": {"driver": "file", "path": "./data/audit"}
	}`)
	yamlPath := writeFile(t, "hwbot.yaml", `
poll:
  schedule: "@every 5m"
  lookback: 48h
logging:
  level: debug
  console: false
  file:
    enabled: true
    path: x.log
storage:
  driver: file
  path: ./data/audit
`)
	env := envMap(fullEnv())

	mj := NewConfigManager(jsonPath)
	mj.SetEnv(env)
	cj, err := mj.Load()
	require.NoError(t, err)

	my := NewConfigManager(yamlPath)
	my.SetEnv(env)
	cy, err := my.Load()
	require.NoError(t, err)

	assert.Equal(t, cj, cy)
}

func TestParseRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "unknown field", file: "c.json", content: `{"pol": {}}`},
		{name: "trailing data", file: "c.json", content: `{} {}`},
		{name: "bad schedule", file: "c.json", content: `{"poll": {"schedule": "every now and then"}}`},
		{name: "bad duration", file: "c.json", content: `{"practicum": {"timeout": "soon"}}`},
		{name: "bad endpoint", file: "c.json", content: `{"practicum": {"endpoint": "not a url"}}`},
		{name: "bad driver", file: "c.yaml", content: "storage:\n  driver: redis\n  path: x\n"},
		{name: "driver without path", file: "c.json", content: `{"storage": {"driver": "sqlite"}}`},
		{name: "bad level", file: "c.json", content: `{"logging": {"level": "loud"}}`},
		{name: "negative retries", file: "c.json", content: `{"notifier": {"enabled": true, "retry_max": -1}}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			m := NewConfigManager(writeFile(t, tt.file, tt.content))
			m.SetEnv(envMap(fullEnv()))
			_, err := m.Load()
			require.Error(t, err)
		})
	}
}

func criticalLines(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	var out []string
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		if m["level"] == "fatal" {
			out = append(out, m["name"].(string))
		}
	}
	return out
}

func TestCheckTokens(t *testing.T) {
	t.Run("all present", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := Default()
		ApplyEnv(cfg, envMap(fullEnv()))
		assert.True(t, CheckTokens(cfg, logx.NewWriter(&buf, "trace")))
		assert.Empty(t, criticalLines(t, &buf))
	})

	t.Run("one missing", func(t *testing.T) {
		var buf bytes.Buffer
		env := fullEnv()
		delete(env, EnvTelegramChatID)
		cfg := Default()
		ApplyEnv(cfg, envMap(env))
		assert.False(t, CheckTokens(cfg, logx.NewWriter(&buf, "trace")))
		assert.Equal(t, []string{EnvTelegramChatID}, criticalLines(t, &buf))
	})

	t.Run("all missing are all reported", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := Default()
		cfg.Telegram.Token = "   "
		assert.False(t, CheckTokens(cfg, logx.NewWriter(&buf, "trace")))
		assert.Equal(t, []string{EnvPracticumToken, EnvTelegramToken, EnvTelegramChatID}, criticalLines(t, &buf))
	})
}

func TestRequireTokensIsTokenKind(t *testing.T) {
	err := RequireTokens(Default(), logx.Nop())
	require.Error(t, err)
	assert.True(t, practicum.IsKind(err, practicum.KindToken))

	cfg := Default()
	ApplyEnv(cfg, envMap(fullEnv()))
	require.NoError(t, RequireTokens(cfg, logx.Nop()))
}

func TestParseSchedule(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		raw  string
		next time.Time
	}{
		{raw: "", next: base.Add(10 * time.Minute)},
		{raw: "10m", next: base.Add(10 * time.Minute)},
		{raw: "@every 600s", next: base.Add(600 * time.Second)},
		{raw: "*/15 * * * *", next: base.Add(15 * time.Minute)},
	}
	for _, tt := range tests {
		sched, err := ParseSchedule(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.next, sched.Next(base).UTC(), tt.raw)
	}

	for _, bad := range []string{"500ms", "-1m", "bogus", "* * *"} {
		_, err := ParseSchedule(bad)
		assert.Error(t, err, bad)
	}
}

func TestSummarizeConfigChangeHidesTokens(t *testing.T) {
	oldCfg := Default()
	newCfg := Default()
	newCfg.Practicum.Token = "super-secret"
	newCfg.Poll.Schedule = "5m"

	changed, attrs := SummarizeConfigChange(oldCfg, newCfg)
	assert.ElementsMatch(t, []string{"practicum", "poll"}, changed)

	var buf bytes.Buffer
	logx.NewWriter(&buf, "trace").Info("changed", attrs...)
	assert.NotContains(t, buf.String(), "super-secret")
	assert.Contains(t, buf.String(), `"poll.schedule":"5m"`)
}

func TestWatchPublishesReload(t *testing.T) {
	path := writeFile(t, "hwbot.json", `{"poll": {"schedule": "10m"}}`)
	m := NewConfigManager(path)
	m.SetEnv(envMap(fullEnv()))
	_, err := m.Load()
	require.NoError(t, err)

	sub := m.Subscribe(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		// Rewrite until the watcher has picked it up; the watcher may not be armed yet.
		require.NoError(t, os.WriteFile(path, []byte(`{"poll": {"schedule": "20m"}}`), 0o600))
		select {
		case cfg := <-sub:
			assert.Equal(t, "20m", strings.TrimSpace(cfg.Poll.Schedule))
			cancel()
			<-done
			return
		case <-deadline:
			t.Fatal("config reload was not published")
		case <-tick.C:
		}
	}
}
