package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"error":   LevelError,
		"WARN":    LevelWarn,
		"warning": LevelWarn,
		"Info":    LevelInfo,
		"":        LevelInfo,
		"debug":   LevelDebug,
	}
	for input, want := range cases {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestStdLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelWarn)

	logger.Debugf("hidden %d", 1)
	logger.Infof("hidden %d", 2)
	logger.Warnf("[wal] slow sync %dms", 30)
	logger.Errorf("[db] failed: %s", "boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN: [wal] slow sync 30ms")
	assert.Contains(t, out, "ERROR: [db] failed: boom")
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neemo.log")
	logger, f, err := OpenFile(path, LevelDebug)
	require.NoError(t, err)
	logger.Debugf("hello")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DEBUG: hello")
}

func TestOrDiscard(t *testing.T) {
	assert.Equal(t, Discard, OrDiscard(nil))
	l := New(&bytes.Buffer{}, LevelInfo)
	assert.Equal(t, Logger(l), OrDiscard(l))
}
