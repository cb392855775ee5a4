package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
)

// MediaHandler handles library endpoints for movies and episodes.
type MediaHandler struct {
	movies   repository.MovieRepository
	episodes repository.EpisodeRepository
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(movies repository.MovieRepository, episodes repository.EpisodeRepository) *MediaHandler {
	return &MediaHandler{
		movies:   movies,
		episodes: episodes,
	}
}

// Register registers the media routes with the API.
func (h *MediaHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listMovies",
		Method:      "GET",
		Path:        "/api/v1/movies",
		Summary:     "List movies",
		Description: "Returns all movies, optionally only untranscoded ones",
		Tags:        []string{"Library"},
	}, h.ListMovies)

	huma.Register(api, huma.Operation{
		OperationID: "getMovie",
		Method:      "GET",
		Path:        "/api/v1/movies/{id}",
		Summary:     "Get movie",
		Description: "Returns a movie by ID",
		Tags:        []string{"Library"},
	}, h.GetMovie)

	huma.Register(api, huma.Operation{
		OperationID: "listEpisodes",
		Method:      "GET",
		Path:        "/api/v1/episodes",
		Summary:     "List episodes",
		Description: "Returns all episodes, optionally only untranscoded ones",
		Tags:        []string{"Library"},
	}, h.ListEpisodes)

	huma.Register(api, huma.Operation{
		OperationID: "getEpisode",
		Method:      "GET",
		Path:        "/api/v1/episodes/{id}",
		Summary:     "Get episode",
		Description: "Returns an episode by ID",
		Tags:        []string{"Library"},
	}, h.GetEpisode)
}

// ListMoviesInput is the input for listing movies.
type ListMoviesInput struct {
	Untranscoded bool `query:"untranscoded" doc:"Only return movies not yet transcoded"`
}

// ListMoviesOutput is the output for listing movies.
type ListMoviesOutput struct {
	Body struct {
		Movies []*models.Movie `json:"movies"`
	}
}

// ListMovies returns all movies.
func (h *MediaHandler) ListMovies(ctx context.Context, input *ListMoviesInput) (*ListMoviesOutput, error) {
	var (
		movies []*models.Movie
		err    error
	)
	if input.Untranscoded {
		movies, err = h.movies.ListUntranscoded(ctx)
	} else {
		movies, err = h.movies.GetAll(ctx)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list movies", err)
	}

	resp := &ListMoviesOutput{}
	resp.Body.Movies = movies
	if resp.Body.Movies == nil {
		resp.Body.Movies = []*models.Movie{}
	}
	return resp, nil
}

// GetMediaInput identifies one library record.
type GetMediaInput struct {
	ID string `path:"id" doc:"Record ID (ULID)"`
}

// GetMovieOutput is the output for getting a movie.
type GetMovieOutput struct {
	Body models.Movie
}

// GetMovie returns a movie by ID.
func (h *MediaHandler) GetMovie(ctx context.Context, input *GetMediaInput) (*GetMovieOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}

	movie, err := h.movies.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get movie", err)
	}
	if movie == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("movie %s not found", input.ID))
	}
	return &GetMovieOutput{Body: *movie}, nil
}

// ListEpisodesInput is the input for listing episodes.
type ListEpisodesInput struct {
	Untranscoded bool `query:"untranscoded" doc:"Only return episodes not yet transcoded"`
}

// ListEpisodesOutput is the output for listing episodes.
type ListEpisodesOutput struct {
	Body struct {
		Episodes []*models.Episode `json:"episodes"`
	}
}

// ListEpisodes returns all episodes.
func (h *MediaHandler) ListEpisodes(ctx context.Context, input *ListEpisodesInput) (*ListEpisodesOutput, error) {
	var (
		episodes []*models.Episode
		err      error
	)
	if input.Untranscoded {
		episodes, err = h.episodes.ListUntranscoded(ctx)
	} else {
		episodes, err = h.episodes.GetAll(ctx)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list episodes", err)
	}

	resp := &ListEpisodesOutput{}
	resp.Body.Episodes = episodes
	if resp.Body.Episodes == nil {
		resp.Body.Episodes = []*models.Episode{}
	}
	return resp, nil
}

// GetEpisodeOutput is the output for getting an episode.
type GetEpisodeOutput struct {
	Body models.Episode
}

// GetEpisode returns an episode by ID.
func (h *MediaHandler) GetEpisode(ctx context.Context, input *GetMediaInput) (*GetEpisodeOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}

	episode, err := h.episodes.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get episode", err)
	}
	if episode == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("episode %s not found", input.ID))
	}
	return &GetEpisodeOutput{Body: *episode}, nil
}
