package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanout(t *testing.T) {
	fs := afero.NewMemMapFs()
	var term bytes.Buffer

	logger, closeFn, err := New(Options{
		Level:    slog.LevelInfo,
		Terminal: &term,
		File:     "/var/log/animctl.log",
		Format:   "json",
		FS:       fs,
	})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("rewind", "target", 2)
	require.NoError(t, closeFn())

	assert.Contains(t, term.String(), "msg=rewind")
	assert.NotContains(t, term.String(), "hidden")

	data, err := afero.ReadFile(fs, "/var/log/animctl.log")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "rewind", rec["msg"])
	assert.Equal(t, float64(2), rec["target"])
}

func TestNoHandlers(t *testing.T) {
	logger, closeFn, err := New(Options{})
	require.NoError(t, err)
	logger.Error("dropped")
	assert.NoError(t, closeFn())
}

func TestFileOpenError(t *testing.T) {
	_, _, err := New(Options{File: "/log", FS: afero.NewReadOnlyFs(afero.NewMemMapFs())})
	assert.Error(t, err)
}
