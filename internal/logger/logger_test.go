package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NamanBalaji/updater/internal/logger"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer

	logger.SetOutput(&buf, zerolog.InfoLevel)

	logger.Debugf("hidden %d", 1)
	logger.Infof("shown %d", 2)
	logger.Warnf("warned %s", "x")
	logger.Errorf("failed %v", "y")

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "warned x")
	assert.Contains(t, out, "failed y")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer

	logger.SetOutput(&buf, zerolog.DebugLevel)

	l := logger.With("scheduler")
	l.Debug().Int("chunk", 3).Msg("launched")

	out := buf.String()
	assert.Contains(t, out, "component=scheduler")
	assert.Contains(t, out, "chunk=3")
	assert.Contains(t, out, "launched")
}

func TestInitLoggingToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "updater.log")

	require.NoError(t, logger.InitLogging(true, path))
	t.Cleanup(logger.Close)

	logger.Debugf("written to %s", "file")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "written to file")
	assert.True(t, logger.DebugEnabled)
}
