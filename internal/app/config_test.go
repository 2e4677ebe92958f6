package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(contents), 0o644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfigFile(t, "auth:\n  jwt:\n    secret: test-secret\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, time.Hour, cfg.Auth.JWT.TTL)
	require.Equal(t, 7*24*time.Hour, cfg.Auth.Refresh.TTL)
	require.Equal(t, 40, cfg.Auth.Refresh.TokenBytes)
	require.False(t, cfg.Email.SMTP.Enabled)
	require.True(t, cfg.Maintenance.Enabled)
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := writeConfigFile(t, `
server:
  port: 9100
  log_level: debug
database:
  driver: postgres
  host: db.internal
  user: app
  name: safeanchor
auth:
  jwt:
    secret: test-secret
    access_token_ttl: 30m
  refresh:
    refresh_token_ttl: 24h
email:
  smtp:
    enabled: true
    host: smtp.internal
    from: no-reply@safeanchor.org
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 24*time.Hour, cfg.Auth.Refresh.TTL)
	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.internal", cfg.Email.SMTP.Host)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	dir := writeConfigFile(t, "server:\n  port: 9100\n")

	_, err := LoadConfig(dir)
	require.Error(t, err)
}
