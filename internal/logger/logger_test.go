package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(true)
	assert.True(t, IsVerbose())
	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestGating(t *testing.T) {
	defer reset()
	var buf bytes.Buffer
	SetOutput(&buf)

	Debug("hidden %d", 1)
	Info("hidden %d", 2)
	Warn("skipping %s", "a.txt")
	Error("failed %s", "b.pdf")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] skipping a.txt")
	assert.Contains(t, out, "[ERROR] failed b.pdf")

	buf.Reset()
	SetVerbose(true)
	Debug("shown %d", 1)
	Info("ready")
	assert.Contains(t, buf.String(), "[DEBUG] shown 1")
	assert.Contains(t, buf.String(), "[INFO] ready")
}

func TestOpenFile(t *testing.T) {
	defer reset()
	path := filepath.Join(t.TempDir(), "logs", "docrag.log")

	require.NoError(t, OpenFile(path))
	Error("written to file")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[ERROR] written to file")
	assert.NoError(t, Close())
}
