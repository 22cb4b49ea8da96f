package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"padelbot/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var appCfg = config.AppConfig{Name: "padelbot", Environment: "test", Version: "dev"}

func TestNewLoggerOutputs(t *testing.T) {
	cases := []struct {
		name       string
		cfg        config.LoggingConfig
		wantCloser bool
	}{
		{"DefaultStdout", config.LoggingConfig{Level: "info", Output: "stdout"}, false},
		{"Stderr", config.LoggingConfig{Level: "debug", Output: "stderr"}, false},
		{"Console", config.LoggingConfig{Level: "warn", Output: "stdout", Format: "console"}, false},
		{"EmptyConfig", config.LoggingConfig{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger, closer, err := New(tc.cfg, appCfg)
			require.NoError(t, err)
			require.NotNil(t, logger)
			assert.Equal(t, tc.wantCloser, closer != nil)
		})
	}
}

func TestNewLoggerFileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "bot.log")
	cfg := config.LoggingConfig{Level: "info", Output: "file", FilePath: logPath}

	logger, closer, err := New(cfg, appCfg)
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Info().Str("club", "allin").Msg("slot secured")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(data, &line))
	assert.Equal(t, "padelbot", line["app"])
	assert.Equal(t, "allin", line["club"])
	assert.Equal(t, "slot secured", line["message"])
}

func TestNewLoggerFileNeedsPath(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Output: "file"}, appCfg)
	assert.Error(t, err)
}

func TestLevelOrInfo(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, levelOrInfo(""))
	assert.Equal(t, zerolog.InfoLevel, levelOrInfo("bogus"))
	assert.Equal(t, zerolog.DebugLevel, levelOrInfo(" Debug "))
	assert.Equal(t, zerolog.ErrorLevel, levelOrInfo("error"))
}
