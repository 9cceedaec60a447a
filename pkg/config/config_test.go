package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Tokenizer.MinLength)
	assert.False(t, cfg.Tokenizer.Stem)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
	assert.Equal(t, "fs", cfg.Source.Driver)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
source:
  driver: s3
  bucket: catalog
  prefix: prod/
indexer:
  workers: 8
  buildWorkers: 1
  extractTimeout: 500ms
  weightOverrides:
    models:
      name: 5
search:
  maxLimit: 50
  defaultLimit: 20
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CS_SERVER_PORT", "9999")
	t.Setenv("CS_KAFKA_ENABLED", "true")
	t.Setenv("CS_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "catalog", cfg.Source.Bucket)
	assert.Equal(t, 8, cfg.Indexer.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.Indexer.ExtractTimeout)
	assert.Equal(t, 5.0, cfg.Indexer.WeightOverrides["models"]["name"])
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Source.Driver = "s3"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Search.DefaultLimit = 500
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Source.Driver = "ftp"
	assert.Error(t, cfg.Validate())

	assert.NoError(t, Default().Validate())
}
