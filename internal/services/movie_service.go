package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"movienight-backend/internal/errs"
	"movienight-backend/internal/events"
	"movienight-backend/internal/models"
	"movienight-backend/internal/repository"

	"github.com/sirupsen/logrus"
)

// DefaultPageSize is the initial page size for the voted-movie feed.
const DefaultPageSize = 15

const maxPageSize = 50

// MovieService hosts the submission and voting mutations. Every successful
// mutation publishes exactly one event carrying the fully hydrated movie,
// vote list and submitter display fields included, never a delta. That keeps
// client reconciliation a plain overwrite-by-id.
type MovieService interface {
	// AddMovie resolves the external id, creates the movie with the
	// submitter's initial vote and publishes movie-added. Unresolvable ids
	// fail with errs.ErrNotFound, resubmissions with errs.ErrConflict.
	AddMovie(ctx context.Context, tmdbID int, actor *models.User) (*models.Movie, error)

	// ToggleVote casts or retracts the actor's vote and publishes
	// movie-voted with the adjusted list. Missing movies fail with
	// errs.ErrNotFound. A concurrent duplicate toggle loses at the store's
	// uniqueness constraint and surfaces errs.ErrConflict.
	ToggleVote(ctx context.Context, movieID uint, actor *models.User) error

	// ListPage returns one page ordered by descending vote count plus the
	// cursor for the strictly-older page, or an empty cursor when
	// exhausted. Pagination under concurrent vote changes is weakly
	// consistent: the cursor tracks creation time while the sort tracks
	// votes, so a later page can skip or repeat a moved item.
	ListPage(ctx context.Context, cursor string, take int) ([]models.Movie, string, error)

	// GetMovieByID returns the hydrated movie or nil when absent.
	GetMovieByID(ctx context.Context, id uint) (*models.Movie, error)

	// CurrentSubmission returns the user's latest submission. Store
	// failures are recovered into nil rather than propagated.
	CurrentSubmission(ctx context.Context, userID string) *models.Movie

	// ToggleBan flips the banned flag. No event is published; clients
	// observe the flag through later add/vote payloads.
	ToggleBan(ctx context.Context, movieID uint) (*models.Movie, error)

	// ClearAllSubmissions deletes every non-banned movie and reports
	// success. No event is published; callers force a full refetch.
	ClearAllSubmissions(ctx context.Context) bool

	// SearchMovies is the metadata typeahead, outside the sync core.
	SearchMovies(ctx context.Context, query string) (*models.TMDBSearchResponse, error)
}

type movieService struct {
	repo        repository.MovieRepository
	userRepo    repository.UserRepository
	metadata    MetadataFinder
	broadcaster events.Broadcaster
	logger      *logrus.Logger
}

func NewMovieService(
	repo repository.MovieRepository,
	userRepo repository.UserRepository,
	metadata MetadataFinder,
	broadcaster events.Broadcaster,
	logger *logrus.Logger,
) MovieService {
	return &movieService{
		repo:        repo,
		userRepo:    userRepo,
		metadata:    metadata,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (s *movieService) AddMovie(ctx context.Context, tmdbID int, actor *models.User) (*models.Movie, error) {
	info, err := s.metadata.FindMovieByID(ctx, tmdbID)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Upsert(ctx, actor); err != nil {
		return nil, fmt.Errorf("failed to record submitter: %w", err)
	}

	title := info.Title
	if title == "" {
		title = info.OriginalTitle
	}
	if title == "" {
		title = "Unknown Movie"
	}

	movie := &models.Movie{
		ID:          uint(info.ID),
		Title:       title,
		Description: info.Overview,
		Image:       info.PosterPath,
		ReleaseDate: info.ReleaseDate,
		SubmitterID: actor.ID,
		Votes: []models.Vote{
			{MovieID: uint(info.ID), UserID: actor.ID},
		},
	}

	if err := s.repo.Create(ctx, movie); err != nil {
		return nil, err
	}

	movie.SubmittedBy = actor
	s.broadcaster.Publish(events.TopicMovieAdded, movie)

	s.logger.WithFields(logrus.Fields{
		"movie_id":  movie.ID,
		"title":     movie.Title,
		"submitter": actor.ID,
	}).Info("Movie submitted")

	return movie, nil
}

func (s *movieService) ToggleVote(ctx context.Context, movieID uint, actor *models.User) error {
	movie, err := s.repo.FindByID(ctx, movieID)
	if err != nil {
		return err
	}
	if movie == nil {
		return fmt.Errorf("movie %d: %w", movieID, errs.ErrNotFound)
	}

	existing, err := s.repo.FindVote(ctx, movieID, actor.ID)
	if err != nil {
		return err
	}

	if existing != nil {
		if err := s.repo.DeleteVote(ctx, movieID, actor.ID); err != nil {
			return err
		}
		kept := movie.Votes[:0]
		for _, v := range movie.Votes {
			if v.UserID != actor.ID {
				kept = append(kept, v)
			}
		}
		movie.Votes = kept
		s.broadcaster.Publish(events.TopicMovieVoted, movie)
		return nil
	}

	vote := &models.Vote{MovieID: movieID, UserID: actor.ID}
	if err := s.repo.CreateVote(ctx, vote); err != nil {
		// Both sides of a concurrent double-toggle can observe "no vote";
		// the composite primary key rejects the second insert and we
		// report it as an ordinary failure.
		return err
	}
	movie.Votes = append(movie.Votes, *vote)
	s.broadcaster.Publish(events.TopicMovieVoted, movie)
	return nil
}

func (s *movieService) ListPage(ctx context.Context, cursor string, take int) ([]models.Movie, string, error) {
	if take < 1 {
		take = DefaultPageSize
	}
	if take > maxPageSize {
		take = maxPageSize
	}

	before, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", fmt.Errorf("invalid cursor: %w", err)
	}

	// Probe one past the page to learn whether an older page exists.
	movies, err := s.repo.ListPage(ctx, before, take+1)
	if err != nil {
		return nil, "", err
	}

	prevCursor := ""
	if len(movies) > take {
		movies = movies[:take]
		oldest := movies[0].CreatedAt
		for _, m := range movies[1:] {
			if m.CreatedAt.Before(oldest) {
				oldest = m.CreatedAt
			}
		}
		prevCursor = encodeCursor(oldest)
	}

	return movies, prevCursor, nil
}

func (s *movieService) GetMovieByID(ctx context.Context, id uint) (*models.Movie, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *movieService) CurrentSubmission(ctx context.Context, userID string) *models.Movie {
	movie, err := s.repo.LatestBySubmitter(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user", userID).Error("Failed to look up current submission")
		return nil
	}
	return movie
}

func (s *movieService) ToggleBan(ctx context.Context, movieID uint) (*models.Movie, error) {
	movie, err := s.repo.FindByID(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, fmt.Errorf("movie %d: %w", movieID, errs.ErrNotFound)
	}

	if err := s.repo.SetBanned(ctx, movieID, !movie.Banned); err != nil {
		return nil, err
	}
	movie.Banned = !movie.Banned
	return movie, nil
}

func (s *movieService) ClearAllSubmissions(ctx context.Context) bool {
	if err := s.repo.DeleteUnbanned(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to clear submissions")
		return false
	}
	return true
}

func (s *movieService) SearchMovies(ctx context.Context, query string) (*models.TMDBSearchResponse, error) {
	return s.metadata.SearchMovies(ctx, query)
}

// The page cursor is an opaque token derived from creation time.
func encodeCursor(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func decodeCursor(cursor string) (*time.Time, error) {
	if cursor == "" {
		return nil, nil
	}
	nanos, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil {
		return nil, err
	}
	t := time.Unix(0, nanos).UTC()
	return &t, nil
}
