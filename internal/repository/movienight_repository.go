package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"movienight-backend/internal/database"
	"movienight-backend/internal/errs"
	"movienight-backend/internal/models"

	"gorm.io/gorm"
)

type MovieNightRepository interface {
	// Create persists a night. Two nights cannot share a start time; an
	// overlap fails with errs.ErrConflict.
	Create(ctx context.Context, night *models.MovieNight) error
	Save(ctx context.Context, night *models.MovieNight) error
	Count(ctx context.Context) (int64, error)

	// FindByID returns the night with its movies, or nil when absent.
	FindByID(ctx context.Context, id uint) (*models.MovieNight, error)

	// FindNext returns the earliest night that is either upcoming relative
	// to now or not yet completed, with its movies. Nil when none qualifies.
	FindNext(ctx context.Context, now time.Time) (*models.MovieNight, error)

	// FindAll returns every night with movies, newest start time first.
	FindAll(ctx context.Context) ([]models.MovieNight, error)

	// MarkMoviesWatched flips watched on every currently-unwatched movie
	// assigned to the night. Already-watched movies are left untouched.
	MarkMoviesWatched(ctx context.Context, nightID uint) error
}

type movieNightRepository struct {
	db      *database.Database
	timeout time.Duration
}

func NewMovieNightRepository(db *database.Database) MovieNightRepository {
	return &movieNightRepository{
		db:      db,
		timeout: db.GetQueryTimeout(),
	}
}

func (r *movieNightRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *movieNightRepository) Create(ctx context.Context, night *models.MovieNight) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Create(night).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("movie night at %s already exists: %w", night.StartingAt, errs.ErrConflict)
	}
	return err
}

func (r *movieNightRepository) Save(ctx context.Context, night *models.MovieNight) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Omit("Movies").Save(night).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("movie night at %s already exists: %w", night.StartingAt, errs.ErrConflict)
	}
	return err
}

func (r *movieNightRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int64
	err := r.db.WithContext(ctx).Model(&models.MovieNight{}).Count(&count).Error
	return count, err
}

func (r *movieNightRepository) FindByID(ctx context.Context, id uint) (*models.MovieNight, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var night models.MovieNight
	err := r.db.WithContext(ctx).Preload("Movies").First(&night, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &night, nil
}

func (r *movieNightRepository) FindNext(ctx context.Context, now time.Time) (*models.MovieNight, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var night models.MovieNight
	err := r.db.WithContext(ctx).
		Where("starting_at >= ? OR completed = ?", now, false).
		Order("starting_at ASC").
		Preload("Movies").
		First(&night).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &night, nil
}

func (r *movieNightRepository) FindAll(ctx context.Context) ([]models.MovieNight, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var nights []models.MovieNight
	err := r.db.WithContext(ctx).
		Order("starting_at DESC").
		Preload("Movies").
		Find(&nights).Error
	return nights, err
}

func (r *movieNightRepository) MarkMoviesWatched(ctx context.Context, nightID uint) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.db.WithContext(ctx).Model(&models.Movie{}).
		Where("movie_night_id = ? AND watched = ?", nightID, false).
		Update("watched", true).Error
}
