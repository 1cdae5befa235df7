package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenkube/greenkube-agent/app/logging"
)

func TestNewLogger_LevelAndSink(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewLogger(
		logging.WithLevel("debug"),
		logging.WithSink(&buf),
		logging.WithVersion("test-version"),
	)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger.Info().Str("component", "test").Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "test-version", entry["version"])
	assert.Equal(t, "test", entry["component"])
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := logging.NewLogger(logging.WithLevel("extremely-loud"))
	require.Error(t, err)
}

func TestNewLogger_BelowLevelSuppressed(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewLogger(
		logging.WithLevel("error"),
		logging.WithSink(&buf),
	)
	require.NoError(t, err)

	logger.Debug().Msg("should not appear")
	assert.Zero(t, buf.Len())
}
