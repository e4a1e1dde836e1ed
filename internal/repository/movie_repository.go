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

type MovieRepository interface {
	// Create persists a movie together with its initial votes. A duplicate
	// TMDB id fails with errs.ErrConflict.
	Create(ctx context.Context, movie *models.Movie) error
	Save(ctx context.Context, movie *models.Movie) error

	// FindByID returns the movie hydrated with votes and submitter display
	// fields, or nil when absent.
	FindByID(ctx context.Context, id uint) (*models.Movie, error)

	// ListPage returns up to limit movies ordered by descending vote count
	// (created-at desc, then id desc as tie-breaks), restricted to rows
	// created strictly before the cursor when one is given.
	ListPage(ctx context.Context, before *time.Time, limit int) ([]models.Movie, error)

	// LatestBySubmitter returns the user's most recent submission or nil.
	LatestBySubmitter(ctx context.Context, userID string) (*models.Movie, error)

	// SetNight updates the movie's night pointer; nil unassigns.
	SetNight(ctx context.Context, id uint, nightID *uint) error

	SetBanned(ctx context.Context, id uint, banned bool) error

	// DeleteUnbanned removes every non-banned movie. Votes go with them via
	// the cascade constraint.
	DeleteUnbanned(ctx context.Context) error

	// FindVote returns the (movie, user) vote row or nil.
	FindVote(ctx context.Context, movieID uint, userID string) (*models.Vote, error)

	// CreateVote inserts a vote. A concurrent duplicate for the same
	// (movie, user) pair fails with errs.ErrConflict via the composite
	// primary key, which is the real arbiter of the toggle race.
	CreateVote(ctx context.Context, vote *models.Vote) error

	DeleteVote(ctx context.Context, movieID uint, userID string) error
}

type movieRepository struct {
	db      *database.Database
	timeout time.Duration
}

func NewMovieRepository(db *database.Database) MovieRepository {
	return &movieRepository{
		db:      db,
		timeout: db.GetQueryTimeout(),
	}
}

func (r *movieRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *movieRepository) Create(ctx context.Context, movie *models.Movie) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Create(movie).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("movie %d already submitted: %w", movie.ID, errs.ErrConflict)
	}
	return err
}

func (r *movieRepository) Save(ctx context.Context, movie *models.Movie) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.db.WithContext(ctx).Omit("Votes", "SubmittedBy").Save(movie).Error
}

func (r *movieRepository) FindByID(ctx context.Context, id uint) (*models.Movie, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var movie models.Movie
	err := r.db.WithContext(ctx).
		Preload("Votes").
		Preload("SubmittedBy").
		First(&movie, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &movie, nil
}

func (r *movieRepository) ListPage(ctx context.Context, before *time.Time, limit int) ([]models.Movie, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var movies []models.Movie
	query := r.db.WithContext(ctx).Model(&models.Movie{}).
		Select("movies.*, COUNT(votes.user_id) AS vote_tally").
		Joins("LEFT JOIN votes ON votes.movie_id = movies.id").
		Group("movies.id").
		Order("vote_tally DESC, movies.created_at DESC, movies.id DESC").
		Limit(limit)

	if before != nil {
		query = query.Where("movies.created_at < ?", *before)
	}

	err := query.Preload("Votes").Preload("SubmittedBy").Find(&movies).Error
	if err != nil {
		return nil, err
	}
	return movies, nil
}

func (r *movieRepository) LatestBySubmitter(ctx context.Context, userID string) (*models.Movie, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var movie models.Movie
	err := r.db.WithContext(ctx).
		Where("submitter_id = ?", userID).
		Order("created_at DESC").
		First(&movie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &movie, nil
}

func (r *movieRepository) SetNight(ctx context.Context, id uint, nightID *uint) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.db.WithContext(ctx).Model(&models.Movie{}).
		Where("id = ?", id).
		Update("movie_night_id", nightID).Error
}

func (r *movieRepository) SetBanned(ctx context.Context, id uint, banned bool) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.db.WithContext(ctx).Model(&models.Movie{}).
		Where("id = ?", id).
		Update("banned", banned).Error
}

func (r *movieRepository) DeleteUnbanned(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.db.WithContext(ctx).
		Where("banned = ?", false).
		Delete(&models.Movie{}).Error
}

func (r *movieRepository) FindVote(ctx context.Context, movieID uint, userID string) (*models.Vote, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("movie_id = ? AND user_id = ?", movieID, userID).
		First(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vote, nil
}

func (r *movieRepository) CreateVote(ctx context.Context, vote *models.Vote) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Create(vote).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("vote already cast for movie %d: %w", vote.MovieID, errs.ErrConflict)
	}
	return err
}

func (r *movieRepository) DeleteVote(ctx context.Context, movieID uint, userID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.db.WithContext(ctx).
		Where("movie_id = ? AND user_id = ?", movieID, userID).
		Delete(&models.Vote{}).Error
}
