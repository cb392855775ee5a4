// Package mediasync keeps the library database's transcoded flags in
// agreement with what is actually on disk.
package mediasync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vodarr/vodarr/internal/asset"
	"github.com/vodarr/vodarr/internal/layout"
	"github.com/vodarr/vodarr/internal/repository"
)

// Syncer reconciles movie and episode records against the transcoded tree.
type Syncer struct {
	movies   repository.MovieRepository
	episodes repository.EpisodeRepository
	layout   *layout.Layout
	logger   *slog.Logger
}

// New creates a Syncer.
func New(movies repository.MovieRepository, episodes repository.EpisodeRepository, l *layout.Layout, logger *slog.Logger) *Syncer {
	return &Syncer{
		movies:   movies,
		episodes: episodes,
		layout:   l,
		logger:   logger.With(slog.String("component", "mediasync")),
	}
}

// MarkTranscoded flags the library record for a source path. A publish
// with no matching record means the library view is stale, so the whole
// tree is reconciled instead of dropping the event.
func (s *Syncer) MarkTranscoded(ctx context.Context, sourcePath string) error {
	if movie, err := s.movies.FindBySourcePath(ctx, sourcePath); err != nil {
		return fmt.Errorf("looking up movie: %w", err)
	} else if movie != nil {
		return s.movies.SetTranscoded(ctx, movie.ID, true)
	}

	if episode, err := s.episodes.FindBySourcePath(ctx, sourcePath); err != nil {
		return fmt.Errorf("looking up episode: %w", err)
	} else if episode != nil {
		return s.episodes.SetTranscoded(ctx, episode.ID, true)
	}

	s.logger.Info("no library record for published source, reconciling",
		slog.String("source", sourcePath))
	if _, err := s.SyncAll(ctx); err != nil {
		return fmt.Errorf("reconciling after untracked publish: %w", err)
	}
	return nil
}

// Result summarizes one reconciliation pass.
type Result struct {
	Checked int `json:"checked"`
	Marked  int `json:"marked"`
	Cleared int `json:"cleared"`
}

// SyncAll walks every record and rewrites flags that disagree with the
// disk state. Assets deleted from disk lose their flag, assets completed
// outside a tracked session gain it.
func (s *Syncer) SyncAll(ctx context.Context) (Result, error) {
	var res Result

	movies, err := s.movies.GetAll(ctx)
	if err != nil {
		return res, fmt.Errorf("listing movies: %w", err)
	}
	for _, m := range movies {
		res.Checked++
		onDisk := asset.IsTranscoded(s.layout.OutputDir(m.SourcePath))
		if onDisk == m.IsTranscoded {
			continue
		}
		if err := s.movies.SetTranscoded(ctx, m.ID, onDisk); err != nil {
			s.logger.Warn("updating movie flag",
				slog.String("source", m.SourcePath),
				slog.String("error", err.Error()),
			)
			continue
		}
		if onDisk {
			res.Marked++
		} else {
			res.Cleared++
		}
	}

	episodes, err := s.episodes.GetAll(ctx)
	if err != nil {
		return res, fmt.Errorf("listing episodes: %w", err)
	}
	for _, e := range episodes {
		res.Checked++
		onDisk := asset.IsTranscoded(s.layout.OutputDir(e.SourcePath))
		if onDisk == e.IsTranscoded {
			continue
		}
		if err := s.episodes.SetTranscoded(ctx, e.ID, onDisk); err != nil {
			s.logger.Warn("updating episode flag",
				slog.String("source", e.SourcePath),
				slog.String("error", err.Error()),
			)
			continue
		}
		if onDisk {
			res.Marked++
		} else {
			res.Cleared++
		}
	}

	s.logger.Info("library sync complete",
		slog.Int("checked", res.Checked),
		slog.Int("marked", res.Marked),
		slog.Int("cleared", res.Cleared),
	)
	return res, nil
}
