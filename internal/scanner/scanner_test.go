package scanner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/testutil"
)

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{path: "film.mkv", expected: true},
		{path: "film.MKV", expected: true},
		{path: "clip.mp4", expected: true},
		{path: "old.avi", expected: true},
		{path: "web.webm", expected: true},
		{path: "subs.srt", expected: false},
		{path: "cover.jpg", expected: false},
		{path: "noext", expected: false},
		{path: "playlist.m3u8", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsVideoFile(tt.path))
		})
	}
}

func TestScan(t *testing.T) {
	movies := t.TempDir()
	series := t.TempDir()

	testutil.WriteVideoFile(t, movies, "Alien (1979).mkv")
	testutil.WriteVideoFile(t, filepath.Join(movies, "nested"), "Blade Runner (1982).mp4")
	testutil.WriteVideoFile(t, filepath.Join(series, "Twin Peaks"), "Twin Peaks - S01E01.mkv")

	// Non-video debris must be ignored.
	require.NoError(t, os.WriteFile(filepath.Join(movies, "notes.txt"), []byte("x"), 0o644))

	s := New(movies, series, nil)
	files := s.Scan()
	require.Len(t, files, 3)

	kinds := map[MediaKind]int{}
	for _, f := range files {
		kinds[f.Kind]++
		assert.Positive(t, f.Size)
		assert.False(t, f.ModTime.IsZero())
	}
	assert.Equal(t, 2, kinds[KindFilm])
	assert.Equal(t, 1, kinds[KindEpisode])
}

func TestScanInterleavesKinds(t *testing.T) {
	movies := t.TempDir()
	series := t.TempDir()

	now := time.Now()
	for i, name := range []string{"f1.mkv", "f2.mkv", "f3.mkv"} {
		path := testutil.WriteVideoFile(t, movies, name)
		require.NoError(t, os.Chtimes(path, now, now.Add(-time.Duration(i)*time.Hour)))
	}
	epPath := testutil.WriteVideoFile(t, series, "e1 S01E01.mkv")
	require.NoError(t, os.Chtimes(epPath, now, now))

	files := New(movies, series, nil).Scan()
	require.Len(t, files, 4)

	// Newest film first, then the episode, then the remaining films by
	// recency.
	assert.Equal(t, KindFilm, files[0].Kind)
	assert.Equal(t, "f1.mkv", filepath.Base(files[0].Path))
	assert.Equal(t, KindEpisode, files[1].Kind)
	assert.Equal(t, "f2.mkv", filepath.Base(files[2].Path))
	assert.Equal(t, "f3.mkv", filepath.Base(files[3].Path))
}

func TestScanMissingRoots(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope"), "", nil)
	assert.Empty(t, s.Scan())
}
