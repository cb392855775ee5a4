package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestFindBinary(t *testing.T) {
	t.Run("environment variable wins", func(t *testing.T) {
		path := writeExecutable(t, t.TempDir(), "fake-ffmpeg")
		t.Setenv("TEST_FFMPEG_PATH", path)

		got, err := FindBinary("definitely-not-on-path", "TEST_FFMPEG_PATH")
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("env var pointing nowhere falls through", func(t *testing.T) {
		t.Setenv("TEST_FFMPEG_PATH", "/nonexistent/ffmpeg")

		_, err := FindBinary("definitely-not-on-path", "TEST_FFMPEG_PATH")
		assert.Error(t, err)
	})

	t.Run("non-executable file is rejected", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "plain-file")
		require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
		t.Setenv("TEST_FFMPEG_PATH", path)

		_, err := FindBinary("definitely-not-on-path", "TEST_FFMPEG_PATH")
		assert.Error(t, err)
	})

	t.Run("falls back to PATH", func(t *testing.T) {
		got, err := FindBinary("sh", "")
		require.NoError(t, err)
		assert.NotEmpty(t, got)
	})

	t.Run("missing binary errors", func(t *testing.T) {
		_, err := FindBinary("definitely-not-on-path", "")
		assert.Error(t, err)
	})
}
