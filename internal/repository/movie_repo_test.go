package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vodarr/vodarr/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.Movie{}, &models.Episode{}))
	return db
}

func TestMovieRepo_Create(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	ctx := context.Background()

	movie := &models.Movie{
		Title:      "Alien",
		Year:       1979,
		SourcePath: "/movies/Alien (1979).mkv",
		SizeBytes:  8 << 30,
	}

	require.NoError(t, repo.Create(ctx, movie))
	assert.False(t, movie.ID.IsZero())

	found, err := repo.GetByID(ctx, movie.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Alien", found.Title)
	assert.Equal(t, movie.SourcePath, found.SourcePath)
	assert.False(t, found.IsTranscoded)
}

func TestMovieRepo_CreateValidation(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	ctx := context.Background()

	err := repo.Create(ctx, &models.Movie{SourcePath: "/movies/a.mkv"})
	assert.ErrorIs(t, err, models.ErrTitleRequired)

	err = repo.Create(ctx, &models.Movie{Title: "Alien"})
	assert.ErrorIs(t, err, models.ErrSourcePathRequired)
}

func TestMovieRepo_GetByIDMissing(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))

	found, err := repo.GetByID(context.Background(), models.NewULID())
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestMovieRepo_FindBySourcePath(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	ctx := context.Background()

	movie := &models.Movie{Title: "Alien", SourcePath: "/movies/Alien (1979).mkv"}
	require.NoError(t, repo.Create(ctx, movie))

	found, err := repo.FindBySourcePath(ctx, movie.SourcePath)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, movie.ID, found.ID)

	missing, err := repo.FindBySourcePath(ctx, "/movies/nope.mkv")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMovieRepo_SetTranscodedAndList(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	ctx := context.Background()

	a := &models.Movie{Title: "Alien", SourcePath: "/movies/a.mkv"}
	b := &models.Movie{Title: "Blade Runner", SourcePath: "/movies/b.mkv"}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	require.NoError(t, repo.SetTranscoded(ctx, a.ID, true))

	untranscoded, err := repo.ListUntranscoded(ctx)
	require.NoError(t, err)
	require.Len(t, untranscoded, 1)
	assert.Equal(t, b.ID, untranscoded[0].ID)

	require.NoError(t, repo.SetTranscoded(ctx, a.ID, false))
	untranscoded, err = repo.ListUntranscoded(ctx)
	require.NoError(t, err)
	assert.Len(t, untranscoded, 2)
}

func TestMovieRepo_SetTranscodedMissing(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))

	err := repo.SetTranscoded(context.Background(), models.NewULID(), true)
	assert.ErrorIs(t, err, models.ErrMovieNotFound)
}

func TestMovieRepo_GetAllOrdered(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Movie{Title: "Zodiac", SourcePath: "/movies/z.mkv"}))
	require.NoError(t, repo.Create(ctx, &models.Movie{Title: "Alien", SourcePath: "/movies/a.mkv"}))

	movies, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "Alien", movies[0].Title)
	assert.Equal(t, "Zodiac", movies[1].Title)
}

func TestMovieRepo_UpdateDelete(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	ctx := context.Background()

	movie := &models.Movie{Title: "Alien", SourcePath: "/movies/a.mkv"}
	require.NoError(t, repo.Create(ctx, movie))

	movie.Year = 1979
	require.NoError(t, repo.Update(ctx, movie))

	found, err := repo.GetByID(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, 1979, found.Year)

	require.NoError(t, repo.Delete(ctx, movie.ID))
	found, err = repo.GetByID(ctx, movie.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}
