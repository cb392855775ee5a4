package models

import (
	"errors"
	"fmt"
)

// ErrValidation represents a validation error with field and message.
type ErrValidation struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Common validation errors for models.
var (
	// ErrSourcePathRequired indicates a required source path field is empty.
	ErrSourcePathRequired = errors.New("source_path is required")

	// ErrTitleRequired indicates a required title field is empty.
	ErrTitleRequired = errors.New("title is required")

	// ErrSeriesTitleRequired indicates a required series title field is empty.
	ErrSeriesTitleRequired = errors.New("series_title is required")

	// ErrMovieNotFound indicates a movie row was not found.
	ErrMovieNotFound = errors.New("movie not found")

	// ErrEpisodeNotFound indicates an episode row was not found.
	ErrEpisodeNotFound = errors.New("episode not found")
)

// Validate checks required Movie fields.
func (m *Movie) Validate() error {
	if m.Title == "" {
		return ErrTitleRequired
	}
	if m.SourcePath == "" {
		return ErrSourcePathRequired
	}
	return nil
}

// Validate checks required Episode fields.
func (e *Episode) Validate() error {
	if e.SeriesTitle == "" {
		return ErrSeriesTitleRequired
	}
	if e.SourcePath == "" {
		return ErrSourcePathRequired
	}
	return nil
}
