// Package scanner walks the media libraries and yields candidate source
// files for transcoding.
package scanner

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// videoExtensions are the recognized source container extensions.
var videoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
}

// MediaKind distinguishes films from episodes.
type MediaKind string

const (
	KindFilm    MediaKind = "film"
	KindEpisode MediaKind = "episode"
)

// MediaFile is one candidate source file.
type MediaFile struct {
	Path    string
	Kind    MediaKind
	Size    int64
	ModTime time.Time
}

// Scanner walks the film and series roots.
type Scanner struct {
	moviesDir string
	seriesDir string
	logger    *slog.Logger
}

// New creates a Scanner. A missing root directory is not an error; it just
// yields nothing.
func New(moviesDir, seriesDir string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		moviesDir: moviesDir,
		seriesDir: seriesDir,
		logger:    logger,
	}
}

// IsVideoFile reports whether a path carries a recognized video extension.
func IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// Scan walks both roots and returns the interleaved candidate list:
// newest film, newest episode, next film, next episode, and so on. The
// interleave keeps one media type from monopolising the queue.
func (s *Scanner) Scan() []MediaFile {
	films := s.walk(s.moviesDir, KindFilm)
	episodes := s.walk(s.seriesDir, KindEpisode)

	sortByModTimeDesc(films)
	sortByModTimeDesc(episodes)

	s.logger.Debug("library scan complete",
		slog.Int("films", len(films)),
		slog.Int("episodes", len(episodes)),
	)

	return interleave(films, episodes)
}

// walk collects every regular video file under root. Missing roots return
// an empty list.
func (s *Scanner) walk(root string, kind MediaKind) []MediaFile {
	if root == "" {
		return nil
	}
	if _, err := os.Stat(root); err != nil {
		return nil
	}

	var files []MediaFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("scan error, skipping entry",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !IsVideoFile(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, MediaFile{
			Path:    path,
			Kind:    kind,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		s.logger.Warn("library walk failed",
			slog.String("root", root),
			slog.String("error", err.Error()),
		)
	}

	return files
}

func sortByModTimeDesc(files []MediaFile) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
}

// interleave merges two lists element by element, appending the remainder
// of the longer one.
func interleave(a, b []MediaFile) []MediaFile {
	out := make([]MediaFile, 0, len(a)+len(b))
	for i := 0; i < len(a) || i < len(b); i++ {
		if i < len(a) {
			out = append(out, a[i])
		}
		if i < len(b) {
			out = append(out, b[i])
		}
	}
	return out
}
