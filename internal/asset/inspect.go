package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Info describes one published (or partial) asset directory.
type Info struct {
	// Name is the directory name.
	Name string `json:"name"`
	// RelPath is the path relative to the transcoded root, using forward
	// slashes. Episodes carry the series/ prefix.
	RelPath string `json:"rel_path"`
	// IsEpisode reports whether the asset lives under the series subtree.
	IsEpisode bool `json:"is_episode"`
	// Done reports whether the asset is published.
	Done bool `json:"done"`
	// InProgress reports whether a transcode lock is present.
	InProgress bool `json:"in_progress"`
	// SizeBytes is the total size of the directory contents.
	SizeBytes int64 `json:"size_bytes"`
	// SegmentCount counts the video segments on disk.
	SegmentCount int `json:"segment_count"`
	// CompletedAt is the done sentinel timestamp, when parseable.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ErrOutsideRoot rejects asset paths that escape the transcoded root.
var ErrOutsideRoot = errors.New("asset path escapes the transcoded root")

// List enumerates the asset directories under root, films first, then the
// series subtree.
func List(root string) ([]Info, error) {
	var out []Info

	appendDir := func(dir, rel string, isEpisode bool) {
		info, err := inspect(dir, rel, isEpisode)
		if err != nil {
			return
		}
		out = append(out, info)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading transcoded root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "series" {
			continue
		}
		appendDir(filepath.Join(root, e.Name()), e.Name(), false)
	}

	seriesRoot := filepath.Join(root, "series")
	seriesEntries, err := os.ReadDir(seriesRoot)
	if err != nil && !os.IsNotExist(err) {
		return out, fmt.Errorf("reading series subtree: %w", err)
	}
	for _, e := range seriesEntries {
		if !e.IsDir() {
			continue
		}
		appendDir(filepath.Join(seriesRoot, e.Name()), "series/"+e.Name(), true)
	}

	return out, nil
}

func inspect(dir, rel string, isEpisode bool) (Info, error) {
	info := Info{
		Name:       filepath.Base(dir),
		RelPath:    rel,
		IsEpisode:  isEpisode,
		Done:       HasMarker(dir, DoneMarker),
		InProgress: HasMarker(dir, TranscodingMarker),
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		info.SizeBytes += fi.Size()
		name := d.Name()
		if strings.HasPrefix(name, "video_segment") && strings.HasSuffix(name, ".ts") {
			info.SegmentCount++
		}
		return nil
	})
	if err != nil {
		return info, err
	}

	if info.Done {
		if data, err := os.ReadFile(filepath.Join(dir, DoneMarker)); err == nil {
			if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data))); err == nil {
				info.CompletedAt = &ts
			}
		}
	}

	return info, nil
}

// Resolve turns a root-relative asset path into an absolute directory,
// rejecting anything that escapes the root or points at the root itself.
func Resolve(root, rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == "." || cleaned == string(filepath.Separator) {
		return "", ErrOutsideRoot
	}
	abs := filepath.Join(root, cleaned)
	relBack, err := filepath.Rel(root, abs)
	if err != nil || relBack == ".." || strings.HasPrefix(relBack, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return abs, nil
}

// Delete removes one asset directory identified by its root-relative path.
func Delete(root, rel string) error {
	dir, err := Resolve(root, rel)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	return os.RemoveAll(dir)
}
