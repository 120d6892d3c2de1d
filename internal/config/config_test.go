package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "PORT", "FRONTEND_URL", "DB_PATH", "SESSION_IDLE_TTL", "SWEEP_INTERVAL",
		"GRPC_HEALTH_ADDR", "LOG_LEVEL", "TTS_COMMAND", "STT_COMMAND",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
	require.True(t, cfg.IsDevelopment())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("FRONTEND_URL", "https://chat.example.com/")
	t.Setenv("SESSION_IDLE_TTL", "15m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STT_COMMAND", "whisper-once")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, 15*time.Minute, cfg.SessionIdleTTL)
	require.Equal(t, slog.LevelDebug, cfg.LogLevel)
	require.Equal(t, "whisper-once", cfg.Voice.STTCommand)
	require.False(t, cfg.IsDevelopment())
	require.Contains(t, cfg.AllowedOrigins(), "https://chat.example.com")
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "chatbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
db_path: /var/lib/chatbot/chat.db
sweep_interval: 30s
grpc_health_addr: ":50051"
voice:
  tts_command: espeak -s 120
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7001")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "7001", cfg.Port)
	require.Equal(t, "/var/lib/chatbot/chat.db", cfg.DBPath)
	require.Equal(t, 30*time.Second, cfg.SweepInterval)
	require.Equal(t, ":50051", cfg.GRPCHealthAddr)
	require.Equal(t, "espeak -s 120", cfg.Voice.TTSCommand)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SWEEP_INTERVAL", "soon")
	_, err := Load()
	require.Error(t, err)

	clearEnv(t)
	t.Setenv("SESSION_IDLE_TTL", "-1m")
	_, err = Load()
	require.ErrorContains(t, err, "SESSION_IDLE_TTL")

	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	require.Error(t, err)
}
