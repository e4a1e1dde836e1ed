package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"movienight-backend/internal/config"
	"movienight-backend/internal/errs"
	"movienight-backend/internal/events"
	"movienight-backend/internal/models"
	"movienight-backend/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const nextNightCacheKey = "movienight:next"

// MovieNightService hosts the scheduling mutations. Mutations that change
// what the current night looks like publish night-updated with the hydrated
// movie list; unassign and the bulk clear deliberately publish nothing, so
// dependent views must re-fetch.
type MovieNightService interface {
	// Create schedules a night, auto-titling from the running count when no
	// title is given. A schedule collision is reported as a generic
	// internal failure, never as a raw storage error.
	Create(ctx context.Context, title string, startingAt time.Time) (*models.MovieNight, error)

	// Update applies a partial patch and publishes the merged night.
	Update(ctx context.Context, id uint, patch models.MovieNightPatch) (*models.MovieNight, error)

	// GetNext returns the earliest upcoming-or-incomplete night, or nil.
	GetNext(ctx context.Context) (*models.MovieNight, error)

	// GetAll returns every night, newest start first. Admin surface.
	GetAll(ctx context.Context) ([]models.MovieNight, error)

	// AssignMovie points the movie at the current night and publishes
	// night-updated only; there is no movie-level event for assignment,
	// clients infer it from the night refresh.
	AssignMovie(ctx context.Context, movieID uint) (*models.Movie, error)

	// UnassignMovie clears the pointer. Publishes nothing.
	UnassignMovie(ctx context.Context, movieID uint) (*models.Movie, error)

	// Complete marks the night done and every assigned unwatched movie as
	// watched, then publishes night-updated.
	Complete(ctx context.Context, id uint) (*models.MovieNight, error)
}

type movieNightService struct {
	repo        repository.MovieNightRepository
	movieRepo   repository.MovieRepository
	broadcaster events.Broadcaster
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      *logrus.Logger
}

func NewMovieNightService(
	repo repository.MovieNightRepository,
	movieRepo repository.MovieRepository,
	broadcaster events.Broadcaster,
	cache *redis.Client,
	cfg config.RedisConfig,
	logger *logrus.Logger,
) MovieNightService {
	return &movieNightService{
		repo:        repo,
		movieRepo:   movieRepo,
		broadcaster: broadcaster,
		cache:       cache,
		cacheTTL:    cfg.TTL,
		logger:      logger,
	}
}

func (s *movieNightService) Create(ctx context.Context, title string, startingAt time.Time) (*models.MovieNight, error) {
	if title == "" {
		count, err := s.repo.Count(ctx)
		if err != nil {
			return nil, err
		}
		title = fmt.Sprintf("Movie Night %d", count+1)
	}

	night := &models.MovieNight{
		Title:      title,
		StartingAt: startingAt,
		Movies:     []models.Movie{},
	}
	if err := s.repo.Create(ctx, night); err != nil {
		if errs.IsConflict(err) {
			// Schedule collisions are not exposed as storage detail.
			return nil, fmt.Errorf("unable to create movie night, already exists?")
		}
		return nil, err
	}

	s.invalidateNextCache(ctx)
	s.broadcaster.Publish(events.TopicNightUpdated, night)

	s.logger.WithFields(logrus.Fields{
		"night_id":    night.ID,
		"starting_at": night.StartingAt,
	}).Info("Movie night created")

	return night, nil
}

func (s *movieNightService) Update(ctx context.Context, id uint, patch models.MovieNightPatch) (*models.MovieNight, error) {
	night, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if night == nil {
		return nil, fmt.Errorf("movie night %d: %w", id, errs.ErrNotFound)
	}

	if patch.Title != nil {
		night.Title = *patch.Title
	}
	if patch.StartingAt != nil {
		night.StartingAt = *patch.StartingAt
	}
	if patch.Completed != nil {
		night.Completed = *patch.Completed
	}

	if err := s.repo.Save(ctx, night); err != nil {
		return nil, err
	}

	s.invalidateNextCache(ctx)
	s.broadcaster.Publish(events.TopicNightUpdated, night)
	return night, nil
}

func (s *movieNightService) GetNext(ctx context.Context) (*models.MovieNight, error) {
	if cached, ok := s.cachedNext(ctx); ok {
		return cached, nil
	}

	night, err := s.repo.FindNext(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.storeNext(ctx, night)
	return night, nil
}

func (s *movieNightService) GetAll(ctx context.Context) ([]models.MovieNight, error) {
	return s.repo.FindAll(ctx)
}

func (s *movieNightService) AssignMovie(ctx context.Context, movieID uint) (*models.Movie, error) {
	night, err := s.repo.FindNext(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if night == nil {
		return nil, fmt.Errorf("no movie night found: %w", errs.ErrNotFound)
	}

	movie, err := s.movieRepo.FindByID(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, fmt.Errorf("movie %d: %w", movieID, errs.ErrNotFound)
	}

	if err := s.movieRepo.SetNight(ctx, movieID, &night.ID); err != nil {
		return nil, err
	}
	movie.MovieNightID = &night.ID

	night.Movies = append(night.Movies, *movie)
	s.invalidateNextCache(ctx)
	s.broadcaster.Publish(events.TopicNightUpdated, night)
	return movie, nil
}

func (s *movieNightService) UnassignMovie(ctx context.Context, movieID uint) (*models.Movie, error) {
	movie, err := s.movieRepo.FindByID(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, fmt.Errorf("movie %d: %w", movieID, errs.ErrNotFound)
	}

	if err := s.movieRepo.SetNight(ctx, movieID, nil); err != nil {
		return nil, err
	}
	movie.MovieNightID = nil

	// No event here: dependent views re-fetch the night themselves.
	s.invalidateNextCache(ctx)
	return movie, nil
}

func (s *movieNightService) Complete(ctx context.Context, id uint) (*models.MovieNight, error) {
	night, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if night == nil {
		return nil, fmt.Errorf("movie night %d: %w", id, errs.ErrNotFound)
	}

	if err := s.repo.MarkMoviesWatched(ctx, id); err != nil {
		return nil, err
	}

	night.Completed = true
	if err := s.repo.Save(ctx, night); err != nil {
		return nil, err
	}

	// Re-read so the published payload carries the refreshed watched flags.
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil || updated == nil {
		updated = night
	}

	s.invalidateNextCache(ctx)
	s.broadcaster.Publish(events.TopicNightUpdated, updated)
	return updated, nil
}

func (s *movieNightService) cachedNext(ctx context.Context) (*models.MovieNight, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, nextNightCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.WithError(err).Warn("Next-night cache read failed")
		}
		return nil, false
	}
	var night *models.MovieNight
	if err := json.Unmarshal(raw, &night); err != nil {
		s.logger.WithError(err).Warn("Dropping corrupt next-night cache entry")
		return nil, false
	}
	return night, true
}

func (s *movieNightService) storeNext(ctx context.Context, night *models.MovieNight) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(night)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, nextNightCacheKey, raw, s.cacheTTL).Err(); err != nil {
		s.logger.WithError(err).Warn("Next-night cache write failed")
	}
}

func (s *movieNightService) invalidateNextCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, nextNightCacheKey).Err(); err != nil {
		s.logger.WithError(err).Warn("Next-night cache invalidation failed")
	}
}
