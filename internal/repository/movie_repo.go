package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/vodarr/vodarr/internal/models"
)

// movieRepo implements MovieRepository using GORM.
type movieRepo struct {
	db *gorm.DB
}

// NewMovieRepository creates a new MovieRepository.
func NewMovieRepository(db *gorm.DB) MovieRepository {
	return &movieRepo{db: db}
}

// Create creates a new movie.
func (r *movieRepo) Create(ctx context.Context, movie *models.Movie) error {
	if err := movie.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(movie).Error; err != nil {
		return fmt.Errorf("creating movie: %w", err)
	}
	return nil
}

// GetByID retrieves a movie by ID.
func (r *movieRepo) GetByID(ctx context.Context, id models.ULID) (*models.Movie, error) {
	var movie models.Movie
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&movie).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting movie by ID: %w", err)
	}
	return &movie, nil
}

// GetAll retrieves all movies.
func (r *movieRepo) GetAll(ctx context.Context) ([]*models.Movie, error) {
	var movies []*models.Movie
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&movies).Error; err != nil {
		return nil, fmt.Errorf("getting all movies: %w", err)
	}
	return movies, nil
}

// FindBySourcePath retrieves a movie by its media file path.
func (r *movieRepo) FindBySourcePath(ctx context.Context, sourcePath string) (*models.Movie, error) {
	var movie models.Movie
	if err := r.db.WithContext(ctx).Where("source_path = ?", sourcePath).First(&movie).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding movie by source path: %w", err)
	}
	return &movie, nil
}

// ListUntranscoded retrieves movies not yet marked transcoded.
func (r *movieRepo) ListUntranscoded(ctx context.Context) ([]*models.Movie, error) {
	var movies []*models.Movie
	if err := r.db.WithContext(ctx).Where("is_transcoded = ?", false).Find(&movies).Error; err != nil {
		return nil, fmt.Errorf("listing untranscoded movies: %w", err)
	}
	return movies, nil
}

// SetTranscoded updates the transcoded flag for a movie.
func (r *movieRepo) SetTranscoded(ctx context.Context, id models.ULID, transcoded bool) error {
	result := r.db.WithContext(ctx).Model(&models.Movie{}).
		Where("id = ?", id).
		Update("is_transcoded", transcoded)
	if result.Error != nil {
		return fmt.Errorf("setting movie transcoded flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrMovieNotFound
	}
	return nil
}

// Update updates an existing movie.
func (r *movieRepo) Update(ctx context.Context, movie *models.Movie) error {
	if err := movie.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(movie).Error; err != nil {
		return fmt.Errorf("updating movie: %w", err)
	}
	return nil
}

// Delete deletes a movie by ID.
func (r *movieRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Delete(&models.Movie{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("deleting movie: %w", err)
	}
	return nil
}
