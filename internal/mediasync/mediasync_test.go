package mediasync

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/layout"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/testutil"
)

// fakeMovieRepo is an in-memory MovieRepository covering what the syncer
// touches.
type fakeMovieRepo struct {
	movies []*models.Movie
}

func (f *fakeMovieRepo) Create(ctx context.Context, m *models.Movie) error {
	f.movies = append(f.movies, m)
	return nil
}

func (f *fakeMovieRepo) GetByID(ctx context.Context, id models.ULID) (*models.Movie, error) {
	for _, m := range f.movies {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeMovieRepo) GetAll(ctx context.Context) ([]*models.Movie, error) {
	return f.movies, nil
}

func (f *fakeMovieRepo) FindBySourcePath(ctx context.Context, sourcePath string) (*models.Movie, error) {
	for _, m := range f.movies {
		if m.SourcePath == sourcePath {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeMovieRepo) ListUntranscoded(ctx context.Context) ([]*models.Movie, error) {
	var out []*models.Movie
	for _, m := range f.movies {
		if !m.IsTranscoded {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMovieRepo) SetTranscoded(ctx context.Context, id models.ULID, transcoded bool) error {
	for _, m := range f.movies {
		if m.ID == id {
			m.IsTranscoded = transcoded
		}
	}
	return nil
}

func (f *fakeMovieRepo) Update(ctx context.Context, m *models.Movie) error { return nil }
func (f *fakeMovieRepo) Delete(ctx context.Context, id models.ULID) error { return nil }

type fakeEpisodeRepo struct {
	episodes []*models.Episode
}

func (f *fakeEpisodeRepo) Create(ctx context.Context, e *models.Episode) error {
	f.episodes = append(f.episodes, e)
	return nil
}

func (f *fakeEpisodeRepo) GetByID(ctx context.Context, id models.ULID) (*models.Episode, error) {
	for _, e := range f.episodes {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeEpisodeRepo) GetAll(ctx context.Context) ([]*models.Episode, error) {
	return f.episodes, nil
}

func (f *fakeEpisodeRepo) FindBySourcePath(ctx context.Context, sourcePath string) (*models.Episode, error) {
	for _, e := range f.episodes {
		if e.SourcePath == sourcePath {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeEpisodeRepo) ListUntranscoded(ctx context.Context) ([]*models.Episode, error) {
	var out []*models.Episode
	for _, e := range f.episodes {
		if !e.IsTranscoded {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEpisodeRepo) SetTranscoded(ctx context.Context, id models.ULID, transcoded bool) error {
	for _, e := range f.episodes {
		if e.ID == id {
			e.IsTranscoded = transcoded
		}
	}
	return nil
}

func (f *fakeEpisodeRepo) Update(ctx context.Context, e *models.Episode) error { return nil }
func (f *fakeEpisodeRepo) Delete(ctx context.Context, id models.ULID) error   { return nil }

func TestMarkTranscoded(t *testing.T) {
	ctx := context.Background()

	t.Run("movie record", func(t *testing.T) {
		movie := &models.Movie{
			BaseModel:  models.BaseModel{ID: models.NewULID()},
			Title:      "Alien",
			SourcePath: "/movies/Alien (1979).mkv",
		}
		movies := &fakeMovieRepo{movies: []*models.Movie{movie}}
		episodes := &fakeEpisodeRepo{}

		s := New(movies, episodes, layout.New(t.TempDir(), ""), slog.Default())
		require.NoError(t, s.MarkTranscoded(ctx, movie.SourcePath))
		assert.True(t, movie.IsTranscoded)
	})

	t.Run("episode record", func(t *testing.T) {
		episode := &models.Episode{
			BaseModel:  models.BaseModel{ID: models.NewULID()},
			SourcePath: "/series/Twin Peaks/Twin Peaks - S01E01.mkv",
		}
		movies := &fakeMovieRepo{}
		episodes := &fakeEpisodeRepo{episodes: []*models.Episode{episode}}

		s := New(movies, episodes, layout.New(t.TempDir(), ""), slog.Default())
		require.NoError(t, s.MarkTranscoded(ctx, episode.SourcePath))
		assert.True(t, episode.IsTranscoded)
	})

	t.Run("untracked source is not an error", func(t *testing.T) {
		s := New(&fakeMovieRepo{}, &fakeEpisodeRepo{}, layout.New(t.TempDir(), ""), slog.Default())
		assert.NoError(t, s.MarkTranscoded(ctx, "/movies/unknown.mkv"))
	})

	t.Run("untracked source reconciles the library", func(t *testing.T) {
		root := t.TempDir()

		// A record whose asset finished outside a tracked session; the
		// reconciliation triggered by the untracked publish picks it up.
		stale := &models.Movie{
			BaseModel:  models.BaseModel{ID: models.NewULID()},
			SourcePath: "/movies/Alien (1979).mkv",
		}
		testutil.WriteAsset(t, root, "Alien (1979)", testutil.AssetOptions{Done: true})

		movies := &fakeMovieRepo{movies: []*models.Movie{stale}}
		s := New(movies, &fakeEpisodeRepo{}, layout.New(root, ""), slog.Default())

		require.NoError(t, s.MarkTranscoded(ctx, "/movies/unknown.mkv"))
		assert.True(t, stale.IsTranscoded)
	})
}

func TestSyncAll(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	lay := layout.New(root, "/library/series")

	// On disk but not flagged: gains the flag.
	gains := &models.Movie{
		BaseModel:  models.BaseModel{ID: models.NewULID()},
		SourcePath: "/movies/Alien (1979).mkv",
	}
	testutil.WriteAsset(t, root, "Alien (1979)", testutil.AssetOptions{Done: true})

	// Flagged but gone from disk: loses the flag.
	loses := &models.Movie{
		BaseModel:    models.BaseModel{ID: models.NewULID()},
		SourcePath:   "/movies/Deleted (2000).mkv",
		IsTranscoded: true,
	}

	// In agreement: untouched.
	agrees := &models.Movie{
		BaseModel:  models.BaseModel{ID: models.NewULID()},
		SourcePath: "/movies/Pending (2024).mkv",
	}

	episode := &models.Episode{
		BaseModel:  models.BaseModel{ID: models.NewULID()},
		SourcePath: "/library/series/Show/Show - S01E01.mkv",
	}
	testutil.WriteAsset(t, root, "series/Show - S01E01", testutil.AssetOptions{Done: true})

	movies := &fakeMovieRepo{movies: []*models.Movie{gains, loses, agrees}}
	episodes := &fakeEpisodeRepo{episodes: []*models.Episode{episode}}

	res, err := New(movies, episodes, lay, slog.Default()).SyncAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Checked)
	assert.Equal(t, 2, res.Marked)
	assert.Equal(t, 1, res.Cleared)

	assert.True(t, gains.IsTranscoded)
	assert.False(t, loses.IsTranscoded)
	assert.False(t, agrees.IsTranscoded)
	assert.True(t, episode.IsTranscoded)
}
