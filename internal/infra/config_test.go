package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := loadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Engine.CommandTimeout)
	assert.True(t, cfg.Engine.FileConsentRequests)
	assert.Equal(t, "local", cfg.Engine.DefaultProvider)
	assert.Equal(t, 100, cfg.Engine.AuditBatchSize)
	assert.Equal(t, "google", cfg.Connectors.DefaultProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers.OpenAI.Model)
	assert.Empty(t, cfg.Connectors.GoogleCalendarToken)
	assert.Equal(t, 30*time.Second, cfg.Auth.Leeway)
	assert.Empty(t, cfg.Auth.Audience)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9100
engine:
  command_timeout: 2s
  file_consent_requests: false
  disabled_capabilities: [system_command]
logger:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	t.Setenv("GOOGLE_CALENDAR_TOKEN", "cal-token")
	t.Setenv("HOME_ASSISTANT_URL", "http://ha.local:8123")
	t.Setenv("OPENAI_MODEL", "gpt-test")
	t.Setenv("DB_URL", "postgres://localhost/assistant")

	cfg, err := loadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Engine.CommandTimeout)
	assert.False(t, cfg.Engine.FileConsentRequests)
	assert.Equal(t, []string{"system_command"}, cfg.Engine.DisabledCapabilities)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "cal-token", cfg.Connectors.GoogleCalendarToken)
	assert.Equal(t, "http://ha.local:8123", cfg.Connectors.HomeAssistantURL)
	assert.Equal(t, "gpt-test", cfg.Providers.OpenAI.Model)
	assert.Equal(t, "postgres://localhost/assistant", cfg.Database.URL)
}

func TestLoadConfig_BrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [\n"), 0o600))

	_, err := loadConfig(dir)
	assert.Error(t, err)
}

func TestLoadKeyResource_EnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, []byte("from-file"), 0o600))

	assert.Equal(t, []byte("from-file"), loadKeyResource(path, "TEST_KEY_DATA_UNSET"))

	t.Setenv("TEST_KEY_DATA", "from-env")
	assert.Equal(t, []byte("from-env"), loadKeyResource(path, "TEST_KEY_DATA"))
	assert.Nil(t, loadKeyResource("", "TEST_KEY_DATA_UNSET"))
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(LoggerConfig{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(LoggerConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(LoggerConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
