package hlsplaylist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/testutil"
)

func TestParseMediaPlaylist(t *testing.T) {
	t.Run("complete playlist", func(t *testing.T) {
		data := testutil.MediaPlaylist("video_segment%d.ts", 3, true)

		pl := ParseMediaPlaylist([]byte(data))
		assert.True(t, pl.HasEndlist)
		assert.Equal(t, 3, pl.SegmentCount())
		assert.Equal(t, []string{"video_segment0.ts", "video_segment1.ts", "video_segment2.ts"}, pl.SegmentURIs)
	})

	t.Run("open playlist", func(t *testing.T) {
		data := testutil.MediaPlaylist("video_segment%d.ts", 2, false)

		pl := ParseMediaPlaylist([]byte(data))
		assert.False(t, pl.HasEndlist)
		assert.Equal(t, 2, pl.SegmentCount())
	})

	t.Run("partially written file still yields segments", func(t *testing.T) {
		// Truncated mid-write: no header tags, dangling EXTINF.
		data := "video_segment0.ts\n#EXTINF:2.0,\nvideo_segment1.ts\n#EXTINF"

		pl := ParseMediaPlaylist([]byte(data))
		assert.False(t, pl.HasEndlist)
		assert.Equal(t, 2, pl.SegmentCount())
	})

	t.Run("empty input", func(t *testing.T) {
		pl := ParseMediaPlaylist(nil)
		assert.False(t, pl.HasEndlist)
		assert.Zero(t, pl.SegmentCount())
	})
}

func TestReadMediaPlaylist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video.m3u8")
	require.NoError(t, os.WriteFile(path, []byte(testutil.MediaPlaylist("video_segment%d.ts", 5, true)), 0o644))

	pl, err := ReadMediaPlaylist(path)
	require.NoError(t, err)
	assert.True(t, pl.HasEndlist)
	assert.Equal(t, 5, pl.SegmentCount())

	_, err = ReadMediaPlaylist(filepath.Join(dir, "missing.m3u8"))
	assert.Error(t, err)
}

func TestRenderMaster(t *testing.T) {
	t.Run("with audio renditions", func(t *testing.T) {
		out := RenderMaster([]Rendition{
			{Name: "English", Language: "en", URI: "audio_0.m3u8", Default: true},
			{Name: "Français", Language: "fr", URI: "audio_1.m3u8"},
		})

		assert.Contains(t, out, "#EXTM3U\n#EXT-X-VERSION:6\n")
		assert.Contains(t, out, `#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="audio",NAME="English",LANGUAGE="en",DEFAULT=YES,AUTOSELECT=YES,URI="audio_0.m3u8"`)
		assert.Contains(t, out, `NAME="Français",LANGUAGE="fr",DEFAULT=NO`)
		assert.Contains(t, out, `#EXT-X-STREAM-INF:BANDWIDTH=5000000,CODECS="avc1.640028,mp4a.40.2",AUDIO="audio"`)
		assert.Contains(t, out, "video.m3u8\n")
	})

	t.Run("video only", func(t *testing.T) {
		out := RenderMaster(nil)

		assert.NotContains(t, out, "#EXT-X-MEDIA")
		assert.NotContains(t, out, "AUDIO=")
		assert.Contains(t, out, `#EXT-X-STREAM-INF:BANDWIDTH=5000000,CODECS="avc1.640028"`)
		assert.Contains(t, out, "video.m3u8\n")
	})
}

func TestWriteMaster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.m3u8")
	require.NoError(t, WriteMaster(path, []Rendition{{Name: "English", Language: "en", URI: "audio_0.m3u8", Default: true}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// The written file must be loadable by our own reader.
	pl := ParseMediaPlaylist(data)
	assert.NotNil(t, pl)
	assert.Contains(t, string(data), "video.m3u8")
}
