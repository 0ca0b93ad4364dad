package internal

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesJSONLines(t *testing.T) {
	config := &Config{CacheDir: t.TempDir(), LogLevel: "warn"}

	logger, closer := NewLogger(config, false)
	logger.Info().Msg("dropped below level")
	logger.Warn().Str("id", "abc").Msg("scheduled upload failed")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(config.LogFile())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped below level")
	assert.Contains(t, string(data), `"message":"scheduled upload failed"`)
	assert.Contains(t, string(data), `"id":"abc"`)
	assert.Contains(t, string(data), `"app":"ytpost"`)
}
