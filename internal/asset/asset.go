// Package asset inspects transcoded output directories and manages their
// publication sentinels.
package asset

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/vodarr/vodarr/internal/hlsplaylist"
)

// Sentinel file names inside an output directory.
const (
	DoneMarker        = ".done"
	TranscodingMarker = ".transcoding"
)

// MinSegmentsForPromotion is how many segments a closed playlist must
// reference before a directory without .done is promoted to done. Chosen
// empirically; directories below it are treated as debris.
const MinSegmentsForPromotion = 10

// candidatePlaylists are inspected in order when no sentinel decides.
var candidatePlaylists = []string{"video.m3u8", "stream_0.m3u8", "playlist.m3u8"}

// HasMarker reports whether the named sentinel exists in dir.
func HasMarker(dir, marker string) bool {
	_, err := os.Stat(filepath.Join(dir, marker))
	return err == nil
}

// WriteDone atomically creates the .done sentinel containing the current
// ISO timestamp. Atomic so no observer ever sees an empty sentinel.
func WriteDone(dir string) error {
	path := filepath.Join(dir, DoneMarker)
	ts := time.Now().UTC().Format(time.RFC3339)
	if err := renameio.WriteFile(path, []byte(ts), 0o644); err != nil {
		return fmt.Errorf("writing done marker: %w", err)
	}
	return nil
}

// WriteTranscoding creates the in-progress lock file containing the current
// ISO timestamp. The directory is created if needed.
func WriteTranscoding(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(dir, TranscodingMarker)
	ts := time.Now().UTC().Format(time.RFC3339)
	if err := os.WriteFile(path, []byte(ts), 0o644); err != nil {
		return fmt.Errorf("writing transcoding marker: %w", err)
	}
	return nil
}

// RemoveTranscoding removes the in-progress lock file. Missing is fine.
func RemoveTranscoding(dir string) error {
	err := os.Remove(filepath.Join(dir, TranscodingMarker))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing transcoding marker: %w", err)
	}
	return nil
}

// IsTranscoded decides whether an output directory holds a valid published
// asset:
//  1. an in-flight lock means no;
//  2. the done sentinel means yes;
//  3. otherwise a closed playlist referencing enough segments promotes the
//     directory to done on the spot.
func IsTranscoded(outputDir string) bool {
	if HasMarker(outputDir, TranscodingMarker) {
		return false
	}
	if HasMarker(outputDir, DoneMarker) {
		return true
	}

	pl := findPlaylist(outputDir)
	if pl == nil {
		return false
	}

	if pl.HasEndlist && pl.SegmentCount() >= MinSegmentsForPromotion {
		// Promotion failure is not fatal; the next inspection retries.
		_ = WriteDone(outputDir)
		return true
	}

	return false
}

// findPlaylist reads the best candidate playlist, preferring the video
// rendition playlist.
func findPlaylist(outputDir string) *hlsplaylist.MediaPlaylist {
	for _, name := range candidatePlaylists {
		path := filepath.Join(outputDir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		pl, err := hlsplaylist.ReadMediaPlaylist(path)
		if err != nil {
			continue
		}
		return pl
	}
	return nil
}
