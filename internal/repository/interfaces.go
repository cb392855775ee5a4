// Package repository defines data access interfaces for vodarr entities.
// All database access goes through these interfaces, enabling easy testing
// and database backend switching.
package repository

import (
	"context"

	"github.com/vodarr/vodarr/internal/models"
)

// MovieRepository defines operations for movie persistence.
type MovieRepository interface {
	// Create creates a new movie.
	Create(ctx context.Context, movie *models.Movie) error
	// GetByID retrieves a movie by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Movie, error)
	// GetAll retrieves all movies.
	GetAll(ctx context.Context) ([]*models.Movie, error)
	// FindBySourcePath retrieves a movie by its media file path.
	// Returns nil, nil when no row matches.
	FindBySourcePath(ctx context.Context, sourcePath string) (*models.Movie, error)
	// ListUntranscoded retrieves movies not yet marked transcoded.
	ListUntranscoded(ctx context.Context) ([]*models.Movie, error)
	// SetTranscoded updates the transcoded flag for a movie.
	SetTranscoded(ctx context.Context, id models.ULID, transcoded bool) error
	// Update updates an existing movie.
	Update(ctx context.Context, movie *models.Movie) error
	// Delete deletes a movie by ID.
	Delete(ctx context.Context, id models.ULID) error
}

// EpisodeRepository defines operations for episode persistence.
type EpisodeRepository interface {
	// Create creates a new episode.
	Create(ctx context.Context, episode *models.Episode) error
	// GetByID retrieves an episode by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Episode, error)
	// GetAll retrieves all episodes.
	GetAll(ctx context.Context) ([]*models.Episode, error)
	// FindBySourcePath retrieves an episode by its media file path.
	// Returns nil, nil when no row matches.
	FindBySourcePath(ctx context.Context, sourcePath string) (*models.Episode, error)
	// ListUntranscoded retrieves episodes not yet marked transcoded.
	ListUntranscoded(ctx context.Context) ([]*models.Episode, error)
	// SetTranscoded updates the transcoded flag for an episode.
	SetTranscoded(ctx context.Context, id models.ULID, transcoded bool) error
	// Update updates an existing episode.
	Update(ctx context.Context, episode *models.Episode) error
	// Delete deletes an episode by ID.
	Delete(ctx context.Context, id models.ULID) error
}
