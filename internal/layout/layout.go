// Package layout derives deterministic output directories for transcoded
// assets from source file paths.
package layout

import (
	"path/filepath"
	"regexp"
	"strings"
)

// SeriesSubdir is the fixed subdirectory of the transcoded root that holds
// episode assets.
const SeriesSubdir = "series"

// episodePattern matches SxxEyy style episode markers, case-insensitive.
var episodePattern = regexp.MustCompile(`(?i)S\d{1,2}E\d{1,2}`)

// unsafeChars matches every character that is not allowed in an output
// directory name. Common accented letters are allowed through.
var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9\s\-_.()\[\]àáâäãåèéêëìíîïòóôöõùúûüçñÀÁÂÄÃÅÈÉÊËÌÍÎÏÒÓÔÖÕÙÚÛÜÇÑ]`)

// Layout maps source paths into the transcoded tree.
type Layout struct {
	transcodedRoot string
	seriesRoot     string
}

// New creates a Layout. seriesRoot may be empty when no series library is
// configured.
func New(transcodedRoot, seriesRoot string) *Layout {
	return &Layout{
		transcodedRoot: filepath.Clean(transcodedRoot),
		seriesRoot:     filepath.Clean(seriesRoot),
	}
}

// Root returns the transcoded root directory.
func (l *Layout) Root() string {
	return l.transcodedRoot
}

// SeriesRoot returns the transcoded series directory.
func (l *Layout) SeriesRoot() string {
	return filepath.Join(l.transcodedRoot, SeriesSubdir)
}

// OutputDir returns the output directory for a source file. Episodes,
// recognized by an SxxEyy filename marker or by living under the series
// library, go one level deeper under the series subdirectory. The function
// is pure: same input, same output, no filesystem access.
func (l *Layout) OutputDir(sourcePath string) string {
	name := SafeName(sourcePath)
	if l.IsEpisode(sourcePath) {
		return filepath.Join(l.transcodedRoot, SeriesSubdir, name)
	}
	return filepath.Join(l.transcodedRoot, name)
}

// IsEpisode reports whether a source path is routed as a series episode.
func (l *Layout) IsEpisode(sourcePath string) bool {
	base := filepath.Base(sourcePath)
	if episodePattern.MatchString(base) {
		return true
	}
	if l.seriesRoot == "" || l.seriesRoot == "." {
		return false
	}
	rel, err := filepath.Rel(l.seriesRoot, filepath.Clean(sourcePath))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// SafeName returns the sanitized directory name for a source file: the
// basename without extension, unsafe characters replaced by underscore.
func SafeName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return unsafeChars.ReplaceAllString(base, "_")
}
