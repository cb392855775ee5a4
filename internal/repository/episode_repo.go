package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/vodarr/vodarr/internal/models"
)

// episodeRepo implements EpisodeRepository using GORM.
type episodeRepo struct {
	db *gorm.DB
}

// NewEpisodeRepository creates a new EpisodeRepository.
func NewEpisodeRepository(db *gorm.DB) EpisodeRepository {
	return &episodeRepo{db: db}
}

// Create creates a new episode.
func (r *episodeRepo) Create(ctx context.Context, episode *models.Episode) error {
	if err := episode.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(episode).Error; err != nil {
		return fmt.Errorf("creating episode: %w", err)
	}
	return nil
}

// GetByID retrieves an episode by ID.
func (r *episodeRepo) GetByID(ctx context.Context, id models.ULID) (*models.Episode, error) {
	var episode models.Episode
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&episode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting episode by ID: %w", err)
	}
	return &episode, nil
}

// GetAll retrieves all episodes.
func (r *episodeRepo) GetAll(ctx context.Context) ([]*models.Episode, error) {
	var episodes []*models.Episode
	if err := r.db.WithContext(ctx).
		Order("series_title ASC, season ASC, episode ASC").
		Find(&episodes).Error; err != nil {
		return nil, fmt.Errorf("getting all episodes: %w", err)
	}
	return episodes, nil
}

// FindBySourcePath retrieves an episode by its media file path.
func (r *episodeRepo) FindBySourcePath(ctx context.Context, sourcePath string) (*models.Episode, error) {
	var episode models.Episode
	if err := r.db.WithContext(ctx).Where("source_path = ?", sourcePath).First(&episode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding episode by source path: %w", err)
	}
	return &episode, nil
}

// ListUntranscoded retrieves episodes not yet marked transcoded.
func (r *episodeRepo) ListUntranscoded(ctx context.Context) ([]*models.Episode, error) {
	var episodes []*models.Episode
	if err := r.db.WithContext(ctx).Where("is_transcoded = ?", false).Find(&episodes).Error; err != nil {
		return nil, fmt.Errorf("listing untranscoded episodes: %w", err)
	}
	return episodes, nil
}

// SetTranscoded updates the transcoded flag for an episode.
func (r *episodeRepo) SetTranscoded(ctx context.Context, id models.ULID, transcoded bool) error {
	result := r.db.WithContext(ctx).Model(&models.Episode{}).
		Where("id = ?", id).
		Update("is_transcoded", transcoded)
	if result.Error != nil {
		return fmt.Errorf("setting episode transcoded flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrEpisodeNotFound
	}
	return nil
}

// Update updates an existing episode.
func (r *episodeRepo) Update(ctx context.Context, episode *models.Episode) error {
	if err := episode.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(episode).Error; err != nil {
		return fmt.Errorf("updating episode: %w", err)
	}
	return nil
}

// Delete deletes an episode by ID.
func (r *episodeRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Delete(&models.Episode{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("deleting episode: %w", err)
	}
	return nil
}
