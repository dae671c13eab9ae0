package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "camellia", cfg.AppName)
	assert.Equal(t, 0.90, cfg.MatchNameThreshold)
	assert.Equal(t, 0.85, cfg.MatchAddressThreshold)
	assert.Equal(t, 0.95, cfg.MatchNameZipThreshold)
	assert.Equal(t, 250, cfg.ChunkSize)
	assert.Equal(t, "1", cfg.DefaultCountryCode)
	assert.Equal(t, "CA", cfg.DefaultRegion)
	assert.Equal(t, "other", cfg.CategoryFallbackSlug)
	assert.False(t, cfg.CategorySubSlugTrueParent)
	assert.Equal(t, 30*time.Minute, cfg.RunLockTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoad_FromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CHUNK_SIZE=100\nREDIS_HOST=redis\nKAFKA_BROKERS=a:9092,b:9092\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("CHUNK_SIZE")
		os.Unsetenv("REDIS_HOST")
		os.Unsetenv("KAFKA_BROKERS")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.ChunkSize)
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, "redis:6379", cfg.RedisAddr())
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "chunk too large", key: "CHUNK_SIZE", value: "5000"},
		{name: "chunk zero", key: "CHUNK_SIZE", value: "0"},
		{name: "threshold above one", key: "MATCH_NAME_THRESHOLD", value: "1.5"},
		{name: "region not two letters", key: "DEFAULT_REGION", value: "CAL"},
		{name: "unknown log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "unparseable int", key: "PORT", value: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(missingEnvFile(t))
			assert.Error(t, err)
		})
	}
}
