// Package testutil builds throwaway media trees and transcoded assets for
// tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// WriteVideoFile creates a fake source video with a little content so it
// has a non-zero size.
func WriteVideoFile(t *testing.T, dir, name string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0o644))
	return path
}

// MediaPlaylist renders a minimal VOD media playlist referencing segments
// named by pattern, e.g. "video_segment%d.ts".
func MediaPlaylist(pattern string, segments int, endlist bool) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:6\n")
	b.WriteString("#EXT-X-TARGETDURATION:2\n")
	b.WriteString("#EXT-X-PLAYLIST-TYPE:VOD\n")
	for i := 0; i < segments; i++ {
		b.WriteString("#EXTINF:2.000000,\n")
		fmt.Fprintf(&b, pattern+"\n", i)
	}
	if endlist {
		b.WriteString("#EXT-X-ENDLIST\n")
	}
	return b.String()
}

// AssetOptions controls what WriteAsset puts on disk.
type AssetOptions struct {
	// Segments is how many video segments to write (default 12).
	Segments int
	// Open leaves the playlist without an ENDLIST tag.
	Open bool
	// Done writes the .done sentinel.
	Done bool
	// Transcoding writes the .transcoding lock.
	Transcoding bool
	// NoPlaylist skips the playlist entirely.
	NoPlaylist bool
}

// WriteAsset creates a transcoded asset directory under root and returns
// its path.
func WriteAsset(t *testing.T, root, name string, opts AssetOptions) string {
	t.Helper()
	if opts.Segments == 0 {
		opts.Segments = 12
	}

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	if !opts.NoPlaylist {
		pl := MediaPlaylist("video_segment%d.ts", opts.Segments, !opts.Open)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "video.m3u8"), []byte(pl), 0o644))
	}
	for i := 0; i < opts.Segments; i++ {
		seg := filepath.Join(dir, fmt.Sprintf("video_segment%d.ts", i))
		require.NoError(t, os.WriteFile(seg, []byte("segment data"), 0o644))
	}

	ts := time.Now().UTC().Format(time.RFC3339)
	if opts.Done {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".done"), []byte(ts), 0o644))
	}
	if opts.Transcoding {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".transcoding"), []byte(ts), 0o644))
	}

	return dir
}
