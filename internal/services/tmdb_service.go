package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"movienight-backend/internal/config"
	"movienight-backend/internal/errs"
	"movienight-backend/internal/models"

	"github.com/sirupsen/logrus"
)

// MetadataFinder is the boundary to the external movie-metadata provider.
type MetadataFinder interface {
	// FindMovieByID resolves an external movie id. Unresolvable ids fail
	// with errs.ErrNotFound.
	FindMovieByID(ctx context.Context, id int) (*models.TMDBMovieResponse, error)
	// SearchMovies is the typeahead passthrough.
	SearchMovies(ctx context.Context, query string) (*models.TMDBSearchResponse, error)
}

type tmdbService struct {
	config     config.TMDBConfig
	logger     *logrus.Logger
	httpClient *http.Client
}

func NewTMDBService(cfg config.TMDBConfig, logger *logrus.Logger) MetadataFinder {
	return &tmdbService{
		config: cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}
}

func (s *tmdbService) FindMovieByID(ctx context.Context, id int) (*models.TMDBMovieResponse, error) {
	endpoint := fmt.Sprintf("%s/movie/%d?api_key=%s&language=en-US",
		s.config.BaseURL, id, s.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from TMDB: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("movie %d not known to TMDB: %w", id, errs.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("TMDB API returned status %d: %s", resp.StatusCode, string(body))
	}

	var movie models.TMDBMovieResponse
	if err := json.NewDecoder(resp.Body).Decode(&movie); err != nil {
		return nil, fmt.Errorf("failed to decode TMDB response: %w", err)
	}

	return &movie, nil
}

func (s *tmdbService) SearchMovies(ctx context.Context, query string) (*models.TMDBSearchResponse, error) {
	endpoint := fmt.Sprintf("%s/search/movie?api_key=%s&query=%s&language=en-US",
		s.config.BaseURL, s.config.APIKey, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search TMDB: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("TMDB API returned status %d: %s", resp.StatusCode, string(body))
	}

	var results models.TMDBSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode TMDB response: %w", err)
	}

	return &results, nil
}
