// Package cleanup removes interrupted or incomplete transcoded output
// directories and promotes finished ones.
package cleanup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vodarr/vodarr/internal/asset"
	"github.com/vodarr/vodarr/internal/layout"
)

// Service sweeps the transcoded tree.
type Service struct {
	transcodedRoot string
	logger         *slog.Logger
}

// New creates a cleanup Service for the transcoded root.
func New(transcodedRoot string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		transcodedRoot: transcodedRoot,
		logger:         logger,
	}
}

// CleanupInterrupted deletes every output directory still holding the
// in-progress lock. Run once at boot, before the queue is re-evaluated, so
// no source ever appears done without a valid asset. Returns the deleted
// directories relative to the transcoded root.
func (s *Service) CleanupInterrupted() ([]string, error) {
	var removed []string
	err := s.sweep(func(dir, rel string) error {
		if !asset.HasMarker(dir, asset.TranscodingMarker) {
			return nil
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing interrupted dir %s: %w", rel, err)
		}
		s.logger.Info("removed interrupted transcode output", slog.String("dir", rel))
		removed = append(removed, rel)
		return nil
	})
	return removed, err
}

// Result is the outcome of an incomplete-output sweep.
type Result struct {
	Kept    []string `json:"kept"`
	Cleaned []string `json:"cleaned"`
}

// CleanupIncomplete sweeps every output directory: interrupted ones are
// deleted; directories without .done are promoted when their playlist is
// closed and references enough segments, otherwise deleted. Paths in the
// result are relative to the transcoded root, episodes prefixed "series/".
func (s *Service) CleanupIncomplete() (*Result, error) {
	result := &Result{}
	err := s.sweep(func(dir, rel string) error {
		if asset.HasMarker(dir, asset.TranscodingMarker) {
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("removing interrupted dir %s: %w", rel, err)
			}
			result.Cleaned = append(result.Cleaned, rel)
			return nil
		}
		if asset.HasMarker(dir, asset.DoneMarker) {
			result.Kept = append(result.Kept, rel)
			return nil
		}

		// No sentinel: decide by playlist completeness plus segments on
		// disk. asset.IsTranscoded writes the .done promotion itself.
		if countSegments(dir) >= asset.MinSegmentsForPromotion && asset.IsTranscoded(dir) {
			result.Kept = append(result.Kept, rel)
			return nil
		}

		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing incomplete dir %s: %w", rel, err)
		}
		s.logger.Info("removed incomplete transcode output", slog.String("dir", rel))
		result.Cleaned = append(result.Cleaned, rel)
		return nil
	})
	return result, err
}

// sweep calls fn for every output directory, including the series subtree.
// rel is the path relative to the transcoded root.
func (s *Service) sweep(fn func(dir, rel string) error) error {
	entries, err := os.ReadDir(s.transcodedRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading transcoded root: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if entry.Name() == layout.SeriesSubdir {
			seriesDir := filepath.Join(s.transcodedRoot, layout.SeriesSubdir)
			seriesEntries, err := os.ReadDir(seriesDir)
			if err != nil {
				continue
			}
			for _, se := range seriesEntries {
				if !se.IsDir() {
					continue
				}
				dir := filepath.Join(seriesDir, se.Name())
				rel := layout.SeriesSubdir + "/" + se.Name()
				if err := fn(dir, rel); err != nil {
					return err
				}
			}
			continue
		}
		dir := filepath.Join(s.transcodedRoot, entry.Name())
		if err := fn(dir, entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

// countSegments counts video segment files on disk.
func countSegments(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "video_segment") && strings.HasSuffix(name, ".ts") {
			count++
		}
	}
	return count
}
