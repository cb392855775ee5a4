package transcoder

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/testutil"
)

func writeRendition(t *testing.T, dir, playlist, pattern string, segments int, endlist bool) {
	t.Helper()
	data := testutil.MediaPlaylist(pattern, segments, endlist)
	require.NoError(t, os.WriteFile(filepath.Join(dir, playlist), []byte(data), 0o644))
	for i := 0; i < segments; i++ {
		seg := filepath.Join(dir, fmt.Sprintf(pattern, i))
		require.NoError(t, os.WriteFile(seg, []byte("segment data"), 0o644))
	}
}

func TestValidateOutput(t *testing.T) {
	t.Run("valid video and audio", func(t *testing.T) {
		dir := t.TempDir()
		writeRendition(t, dir, "video.m3u8", "video_segment%d.ts", 5, true)
		writeRendition(t, dir, "audio_0.m3u8", "audio_0_segment%d.ts", 5, true)

		assert.NoError(t, ValidateOutput(dir, 1))
	})

	t.Run("video only", func(t *testing.T) {
		dir := t.TempDir()
		writeRendition(t, dir, "video.m3u8", "video_segment%d.ts", 5, true)

		assert.NoError(t, ValidateOutput(dir, 0))
	})

	t.Run("missing video playlist", func(t *testing.T) {
		err := ValidateOutput(t.TempDir(), 0)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("missing audio playlist", func(t *testing.T) {
		dir := t.TempDir()
		writeRendition(t, dir, "video.m3u8", "video_segment%d.ts", 5, true)

		err := ValidateOutput(dir, 1)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("no endlist tag", func(t *testing.T) {
		dir := t.TempDir()
		writeRendition(t, dir, "video.m3u8", "video_segment%d.ts", 5, false)

		err := ValidateOutput(dir, 0)
		require.ErrorIs(t, err, ErrValidationFailed)
		assert.Contains(t, err.Error(), "ENDLIST")
	})

	t.Run("empty playlist", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "video.m3u8"),
			[]byte("#EXTM3U\n#EXT-X-ENDLIST\n"), 0o644))

		err := ValidateOutput(dir, 0)
		require.ErrorIs(t, err, ErrValidationFailed)
		assert.Contains(t, err.Error(), "no segments")
	})

	t.Run("referenced segment missing on disk", func(t *testing.T) {
		dir := t.TempDir()
		writeRendition(t, dir, "video.m3u8", "video_segment%d.ts", 5, true)
		require.NoError(t, os.Remove(filepath.Join(dir, "video_segment3.ts")))

		err := ValidateOutput(dir, 0)
		require.ErrorIs(t, err, ErrValidationFailed)
		assert.Contains(t, err.Error(), "missing segment")
	})

	t.Run("empty segments fail the spot check", func(t *testing.T) {
		dir := t.TempDir()
		writeRendition(t, dir, "video.m3u8", "video_segment%d.ts", 3, true)
		for i := 0; i < 3; i++ {
			path := filepath.Join(dir, fmt.Sprintf("video_segment%d.ts", i))
			require.NoError(t, os.WriteFile(path, nil, 0o644))
		}

		err := ValidateOutput(dir, 0)
		require.ErrorIs(t, err, ErrValidationFailed)
		assert.Contains(t, err.Error(), "empty")
	})
}
