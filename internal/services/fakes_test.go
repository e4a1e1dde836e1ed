package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"movienight-backend/internal/errs"
	"movienight-backend/internal/events"
	"movienight-backend/internal/models"
)

// In-memory doubles for the storage and metadata boundaries. They enforce
// the same uniqueness rules the real schema does, so the conflict paths are
// exercised for real.

type voteKey struct {
	movieID uint
	userID  string
}

type fakeMovieRepo struct {
	mu     sync.Mutex
	movies map[uint]*models.Movie
	votes  map[voteKey]*models.Vote

	failListPage error
}

func newFakeMovieRepo() *fakeMovieRepo {
	return &fakeMovieRepo{
		movies: make(map[uint]*models.Movie),
		votes:  make(map[voteKey]*models.Vote),
	}
}

func (f *fakeMovieRepo) Create(_ context.Context, movie *models.Movie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.movies[movie.ID]; ok {
		return fmt.Errorf("movie %d already submitted: %w", movie.ID, errs.ErrConflict)
	}
	if movie.CreatedAt.IsZero() {
		movie.CreatedAt = time.Now().UTC()
	}
	for i := range movie.Votes {
		v := movie.Votes[i]
		f.votes[voteKey{v.MovieID, v.UserID}] = &v
	}
	f.movies[movie.ID] = movie
	return nil
}

func (f *fakeMovieRepo) Save(_ context.Context, movie *models.Movie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movies[movie.ID] = movie
	return nil
}

func (f *fakeMovieRepo) FindByID(_ context.Context, id uint) (*models.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.movies[id]
	if !ok {
		return nil, nil
	}
	copied := *m
	copied.Votes = f.votesFor(id)
	return &copied, nil
}

func (f *fakeMovieRepo) votesFor(id uint) []models.Vote {
	var vs []models.Vote
	for k, v := range f.votes {
		if k.movieID == id {
			vs = append(vs, *v)
		}
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].UserID < vs[j].UserID })
	return vs
}

func (f *fakeMovieRepo) ListPage(_ context.Context, before *time.Time, limit int) ([]models.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failListPage != nil {
		return nil, f.failListPage
	}

	var out []models.Movie
	for id, m := range f.movies {
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		copied := *m
		copied.Votes = f.votesFor(id)
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if len(a.Votes) != len(b.Votes) {
			return len(a.Votes) > len(b.Votes)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMovieRepo) LatestBySubmitter(_ context.Context, userID string) (*models.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Movie
	for _, m := range f.movies {
		if m.SubmitterID != userID {
			continue
		}
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeMovieRepo) SetNight(_ context.Context, id uint, nightID *uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.movies[id]
	if !ok {
		return fmt.Errorf("movie %d: %w", id, errs.ErrNotFound)
	}
	m.MovieNightID = nightID
	return nil
}

func (f *fakeMovieRepo) SetBanned(_ context.Context, id uint, banned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.movies[id]
	if !ok {
		return fmt.Errorf("movie %d: %w", id, errs.ErrNotFound)
	}
	m.Banned = banned
	return nil
}

func (f *fakeMovieRepo) DeleteUnbanned(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, m := range f.movies {
		if m.Banned {
			continue
		}
		delete(f.movies, id)
		for k := range f.votes {
			if k.movieID == id {
				delete(f.votes, k)
			}
		}
	}
	return nil
}

func (f *fakeMovieRepo) FindVote(_ context.Context, movieID uint, userID string) (*models.Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.votes[voteKey{movieID, userID}]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

func (f *fakeMovieRepo) CreateVote(_ context.Context, vote *models.Vote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := voteKey{vote.MovieID, vote.UserID}
	if _, ok := f.votes[key]; ok {
		return fmt.Errorf("vote already exists: %w", errs.ErrConflict)
	}
	vote.CreatedAt = time.Now().UTC()
	f.votes[key] = vote
	return nil
}

func (f *fakeMovieRepo) DeleteVote(_ context.Context, movieID uint, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.votes, voteKey{movieID, userID})
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

type fakeNightRepo struct {
	mu     sync.Mutex
	nextID uint
	nights map[uint]*models.MovieNight
	movies *fakeMovieRepo
}

func newFakeNightRepo(movies *fakeMovieRepo) *fakeNightRepo {
	return &fakeNightRepo{
		nights: make(map[uint]*models.MovieNight),
		movies: movies,
	}
}

func (f *fakeNightRepo) Create(_ context.Context, night *models.MovieNight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.nights {
		if n.StartingAt.Equal(night.StartingAt) {
			return fmt.Errorf("movie night at %s already exists: %w", night.StartingAt, errs.ErrConflict)
		}
	}
	f.nextID++
	night.ID = f.nextID
	night.CreatedAt = time.Now().UTC()
	copied := *night
	f.nights[night.ID] = &copied
	return nil
}

func (f *fakeNightRepo) Save(_ context.Context, night *models.MovieNight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.nights[night.ID]; !ok {
		return fmt.Errorf("movie night %d: %w", night.ID, errs.ErrNotFound)
	}
	copied := *night
	f.nights[night.ID] = &copied
	return nil
}

func (f *fakeNightRepo) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.nights)), nil
}

func (f *fakeNightRepo) FindByID(_ context.Context, id uint) (*models.MovieNight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nights[id]
	if !ok {
		return nil, nil
	}
	return f.hydrate(n), nil
}

func (f *fakeNightRepo) hydrate(n *models.MovieNight) *models.MovieNight {
	copied := *n
	copied.Movies = nil
	if f.movies != nil {
		f.movies.mu.Lock()
		for _, m := range f.movies.movies {
			if m.MovieNightID != nil && *m.MovieNightID == n.ID {
				copied.Movies = append(copied.Movies, *m)
			}
		}
		f.movies.mu.Unlock()
	}
	return &copied
}

func (f *fakeNightRepo) FindNext(_ context.Context, now time.Time) (*models.MovieNight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var next *models.MovieNight
	for _, n := range f.nights {
		if n.StartingAt.Before(now) && n.Completed {
			continue
		}
		if next == nil || n.StartingAt.Before(next.StartingAt) {
			next = n
		}
	}
	if next == nil {
		return nil, nil
	}
	return f.hydrate(next), nil
}

func (f *fakeNightRepo) FindAll(_ context.Context) ([]models.MovieNight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MovieNight
	for _, n := range f.nights {
		out = append(out, *f.hydrate(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartingAt.After(out[j].StartingAt) })
	return out, nil
}

func (f *fakeNightRepo) MarkMoviesWatched(_ context.Context, nightID uint) error {
	f.movies.mu.Lock()
	defer f.movies.mu.Unlock()
	for _, m := range f.movies.movies {
		if m.MovieNightID != nil && *m.MovieNightID == nightID && !m.Watched {
			m.Watched = true
		}
	}
	return nil
}

type fakeMetadata struct {
	known map[int]*models.TMDBMovieResponse
}

func (f *fakeMetadata) FindMovieByID(_ context.Context, id int) (*models.TMDBMovieResponse, error) {
	info, ok := f.known[id]
	if !ok {
		return nil, fmt.Errorf("movie %d not known to TMDB: %w", id, errs.ErrNotFound)
	}
	return info, nil
}

func (f *fakeMetadata) SearchMovies(_ context.Context, query string) (*models.TMDBSearchResponse, error) {
	return &models.TMDBSearchResponse{}, nil
}

// recordingBroadcaster captures publishes so tests can assert exactly which
// mutations emitted events and what they carried.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	topic   events.Topic
	payload any
}

func (r *recordingBroadcaster) Publish(topic events.Topic, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{topic: topic, payload: payload})
}

func (r *recordingBroadcaster) Subscribe(events.Topic, events.Listener) func() {
	return func() {}
}

func (r *recordingBroadcaster) published(topic events.Topic) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.topic == topic {
			out = append(out, e.payload)
		}
	}
	return out
}

func (r *recordingBroadcaster) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
