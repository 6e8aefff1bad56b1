package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Aleph-Alpha/accessor/v1/database"
	"github.com/Aleph-Alpha/accessor/v1/kv"
	"github.com/Aleph-Alpha/accessor/v1/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appConfig struct {
	Database database.Config `yaml:"database"`
	Search   search.Config   `yaml:"search"`
	KV       kv.Config       `yaml:"kv"`
}

const sample = `
database:
  type: postgres
  postgres:
    connection:
      host: ${TEST_PG_HOST}
      port: "5432"
      user: app
      password: ${TEST_PG_PASSWORD}
      dbName: app
search:
  addresses: ["http://localhost:9200"]
  maxRetries: 2
kv:
  host: localhost
  port: 6379
  keyPrefix: "app:"
  readTimeout: 2s
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("TEST_PG_HOST=db.internal\nTEST_PG_PASSWORD=from-file\n"), 0o600))

	t.Setenv("TEST_PG_PASSWORD", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("TEST_PG_HOST") })

	var cfg appConfig
	require.NoError(t, Load(path, &cfg, envFile))

	assert.Equal(t, database.TypePostgres, cfg.Database.Type)
	require.NotNil(t, cfg.Database.Postgres)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Connection.Host)
	assert.Equal(t, "from-env", cfg.Database.Postgres.Connection.Password, "real environment wins over .env")
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Search.Addresses)
	assert.Equal(t, 2, cfg.Search.MaxRetries)
	assert.Equal(t, "app:", cfg.KV.KeyPrefix)
	assert.Equal(t, 2*time.Second, cfg.KV.ReadTimeout)
}

func TestDecode_RejectsUnknownKeys(t *testing.T) {
	var cfg appConfig
	err := Decode([]byte("kv:\n  hots: localhost\n"), &cfg)
	assert.Error(t, err)
}

func TestLoad_MissingFiles(t *testing.T) {
	var cfg appConfig
	assert.Error(t, Load(filepath.Join(t.TempDir(), "none.yaml"), &cfg))

	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}
