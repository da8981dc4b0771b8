package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hwbot/internal/config"
	"hwbot/internal/practicum"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

type botAPI struct {
	mu    sync.Mutex
	texts []string
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	if s, ok := body["text"].(string); ok {
		b.texts = append(b.texts, s)
	}
	b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
}

func (b *botAPI) sent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.texts...)
}

func writeConfig(t *testing.T, v map[string]any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "hwbot.json")
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestNewAppMissingTokens(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"logging": map[string]any{"level": "error", "console": true, "file": map[string]any{"enabled": false}},
	})
	_, err := NewApp(path, WithEnv(envMap(map[string]string{config.EnvTelegramToken: "t"})))
	require.Error(t, err)
	assert.True(t, practicum.IsKind(err, practicum.KindToken))
}

func TestAppDeliversVerdict(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "OAuth p-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"homeworks": [{"homework_name": "hw1", "status": "approved"}], "current_date": 1000}`))
	}))
	defer api.Close()
	bot := &botAPI{}
	tg := httptest.NewServer(bot)
	defer tg.Close()

	dir := t.TempDir()
	path := writeConfig(t, map[string]any{
		"telegram": map[string]any{"api_url": tg.URL},
		"logging":  map[string]any{"level": "error", "console": true, "file": map[string]any{"enabled": false}},
		"storage":  map[string]any{"driver": "file", "path": filepath.Join(dir, "hwbot")},
	})
	a, err := NewApp(path, WithEnv(envMap(map[string]string{
		config.EnvPracticumToken:    "p-token",
		config.EnvTelegramToken:     "123:abc",
		config.EnvTelegramChatID:    "42",
		config.EnvPracticumEndpoint: api.URL,
	})))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))

	require.Eventually(t, func() bool { return len(a.Notifier().Snapshot()) == 1 }, 5*time.Second, 10*time.Millisecond)
	require.Len(t, bot.sent(), 1)
	assert.Equal(t, `Изменился статус проверки работы "hw1". Работа проверена: ревьюеру всё понравилось. Ура!`, bot.sent()[0])

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, a.Stop(stopCtx, StopSIGTERM))

	hist := a.Notifier().Snapshot()
	require.Len(t, hist, 1)
	assert.Empty(t, hist[0].Err)

	b, err := os.ReadFile(filepath.Join(dir, "hwbot.audit.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"notify"`)
	assert.Contains(t, string(b), `"kind":"poll"`)
}

func TestMapNotifierConfig(t *testing.T) {
	def, err := mapNotifierConfig(config.Default())
	require.NoError(t, err)
	assert.True(t, def.Enabled)
	assert.Equal(t, 3, def.RetryMax)
	assert.Zero(t, def.DedupWindow)

	enabled := true
	cfg := config.Default()
	cfg.Notifier = &config.NotifierConfig{Enabled: &enabled, RetryMax: 1, DedupWindow: "1h", RetryBase: "2s"}
	got, err := mapNotifierConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryMax)
	assert.Equal(t, time.Hour, got.DedupWindow)
	assert.Equal(t, 2*time.Second, got.RetryBase)
	assert.Equal(t, 10*time.Second, got.RetryMaxDelay)

	cfg.Notifier.RetryBase = "fast"
	_, err = mapNotifierConfig(cfg)
	require.Error(t, err)
}

func TestNotifierSectionWithoutEnabledStaysOn(t *testing.T) {
	path := writeConfig(t, map[string]any{"notifier": map[string]any{"dedup_window": "1h", "retry_max": 5}})
	m := config.NewConfigManager(path)
	m.SetEnv(envMap(nil))
	cfg, err := m.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.Notifier)
	assert.Nil(t, cfg.Notifier.Enabled)

	got, err := mapNotifierConfig(cfg)
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.Equal(t, 5, got.RetryMax)
	assert.Equal(t, time.Hour, got.DedupWindow)

	disabled := false
	cfg.Notifier.Enabled = &disabled
	got, err = mapNotifierConfig(cfg)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func TestTelegramTimeoutCappedBySendTimeout(t *testing.T) {
	cfg := config.Default()
	tc, err := mapTelegramConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, tc.Timeout)

	cfg.Telegram.Timeout = "30s"
	cfg.Notifier = &config.NotifierConfig{SendTimeout: "3s"}
	tc, err = mapTelegramConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, tc.Timeout)
}

func TestMapStorageConfig(t *testing.T) {
	tests := []struct {
		name    string
		sc      *config.StorageConfig
		enabled bool
		driver  string
		wantErr bool
	}{
		{name: "omitted"},
		{name: "none", sc: &config.StorageConfig{Driver: "none"}},
		{name: "file", sc: &config.StorageConfig{Driver: "file", Path: "x"}, enabled: true, driver: "file"},
		{name: "sqlite", sc: &config.StorageConfig{Driver: "SQLite", Path: "x.db"}, enabled: true, driver: "sqlite"},
		{name: "sqlite without path", sc: &config.StorageConfig{Driver: "sqlite"}, wantErr: true},
		{name: "unknown", sc: &config.StorageConfig{Driver: "redis", Path: "x"}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage = tt.sc
			sc, enabled, err := mapStorageConfig(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, enabled)
			assert.Equal(t, tt.driver, sc.Driver)
		})
	}
}

func TestMapPollConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Telegram.ChatID = " 42 "
	cfg.Poll.Lookback = "24h"
	pc, err := mapPollConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "42", pc.Target.ChatID)
	assert.Equal(t, 24*time.Hour, pc.Lookback)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(600*time.Second), pc.Schedule.Next(base))
}
