package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("LORE_TEST_HOST", "redis.internal")

	tests := []struct {
		in   string
		want string
	}{
		{in: "host: ${LORE_TEST_HOST}", want: "host: redis.internal"},
		{in: "host: ${LORE_TEST_HOST:localhost}", want: "host: redis.internal"},
		{in: "port: ${LORE_TEST_MISSING:6379}", want: "port: 6379"},
		{in: "pass: ${LORE_TEST_MISSING:}", want: "pass: "},
		{in: "raw: ${LORE_TEST_MISSING}", want: "raw: ${LORE_TEST_MISSING}"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnv(tt.in))
		})
	}
}

func TestLoadFromMergesEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "staging")
	t.Setenv("LORE_TEST_WORLD", "aethermoor")

	writeConfig(t, dir, "config.yaml", `
app:
  name: lore
persistence:
  world_id: ${LORE_TEST_WORLD:default}
  autosave_interval: 2m
consistency:
  min_confidence: 0.25
  world_rules:
    - id: no-gunpowder
      name: No gunpowder
      enforcement_level: strict
      keywords: [gunpowder, musket]
`)
	writeConfig(t, dir, "config.staging.yaml", `
server:
  http:
    port: 9090
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "lore", cfg.App.Name)
	assert.Equal(t, "staging", cfg.App.Env)
	assert.Equal(t, 9090, cfg.Server.HTTP.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.HTTP.Addr())
	assert.Equal(t, "aethermoor", cfg.Persistence.WorldID)
	assert.Equal(t, 2*time.Minute, cfg.Persistence.AutosaveInterval)
	assert.InDelta(t, 0.25, cfg.Consistency.MinConfidence, 1e-9)
	require.Len(t, cfg.Consistency.WorldRules, 1)
	assert.Equal(t, []string{"gunpowder", "musket"}, cfg.Consistency.WorldRules[0].Keywords)

	// 默认值兜底
	assert.Equal(t, "stream:lore:changes", cfg.Messaging.RedisStream.Stream)
	assert.Equal(t, 6379, cfg.Cache.Redis.Port)
	assert.True(t, cfg.Consistency.CacheEnabled)
}

func TestLoadFromMissingBaseFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	assert.Error(t, err)
}
