package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
app:
  name: "taible-storage"
  version: "2.0.0"
  debug: true
server:
  port: "9000"
  mode: "debug"
database:
  mysql:
    dsn: "user:pass@tcp(127.0.0.1:3306)/taible?charset=utf8mb4&parseTime=True&loc=Local"
  redis:
    addr: "127.0.0.1:6379"
    db: 1
minio:
  endpoint: "127.0.0.1:9000"
  access_key_id: "minioadmin"
  secret_access_key: "minioadmin"
  use_ssl: false
  bucket_name: "taible-storage"
cache:
  default_ttl_seconds: 120
  presign_ttl_seconds: 60
kafka:
  brokers: "127.0.0.1:9092"
  topic: "taible-file-events"
cors:
  allowed_origins:
    - "http://localhost:3000"
    - "http://localhost:5173"
log:
  level: "debug"
  format: "console"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "taible-storage", cfg.App.Name)
	assert.True(t, cfg.App.Debug)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Contains(t, cfg.Database.MySQL.DSN, "taible")
	assert.Equal(t, "127.0.0.1:6379", cfg.Database.Redis.Addr)
	assert.Equal(t, 1, cfg.Database.Redis.DB)
	assert.Equal(t, "taible-storage", cfg.MinIO.BucketName)
	assert.False(t, cfg.MinIO.UseSSL)
	assert.Equal(t, 120, cfg.Cache.DefaultTTLSeconds)
	assert.Equal(t, 60, cfg.Cache.PresignTTLSeconds)
	assert.Equal(t, "127.0.0.1:9092", cfg.Kafka.Brokers)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
database:
  mysql:
    dsn: "user:pass@tcp(127.0.0.1:3306)/taible"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 300, cfg.Cache.DefaultTTLSeconds)
	assert.Equal(t, 300, cfg.Cache.PresignTTLSeconds)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "taible-storage", cfg.App.Name)
	assert.Equal(t, "1.0.0", cfg.App.Version)
	assert.False(t, cfg.App.Debug)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Database.Redis.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
