package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
mode: dev
server:
  addr: ":9090"
database:
  host: db.local
  port: 3306
  user: library
  password: secret
  dbname: library
auth:
  jwt_secret: test-secret
  token_ttl_hours: 12
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Mode)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "db.local", cfg.DB.Host)
	assert.Equal(t, 3306, cfg.DB.Port)
	assert.Equal(t, "library", cfg.DB.DBName)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 12, cfg.Auth.TokenTTLHrs)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
mode: release
database:
  host: 127.0.0.1
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 24, cfg.Auth.TokenTTLHrs)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "mode: [broken")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
