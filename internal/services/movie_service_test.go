package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movienight-backend/internal/errs"
	"movienight-backend/internal/events"
	"movienight-backend/internal/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testUser(id string) *models.User {
	return &models.User{ID: id, Name: "User " + id, Role: models.RoleUser}
}

type movieServiceFixture struct {
	service   MovieService
	repo      *fakeMovieRepo
	users     *fakeUserRepo
	metadata  *fakeMetadata
	published *recordingBroadcaster
}

func setupMovieService(t *testing.T) *movieServiceFixture {
	t.Helper()

	repo := newFakeMovieRepo()
	users := newFakeUserRepo()
	metadata := &fakeMetadata{known: map[int]*models.TMDBMovieResponse{
		550: {ID: 550, Title: "Fight Club", Overview: "...", ReleaseDate: "1999-10-15", PosterPath: "/fc.jpg"},
		551: {ID: 551, OriginalTitle: "Le Samouraï"},
		552: {ID: 552},
	}}
	published := &recordingBroadcaster{}

	return &movieServiceFixture{
		service:   NewMovieService(repo, users, metadata, published, testLogger()),
		repo:      repo,
		users:     users,
		metadata:  metadata,
		published: published,
	}
}

func TestAddMoviePublishesHydratedMovie(t *testing.T) {
	f := setupMovieService(t)
	actor := testUser("alice")

	movie, err := f.service.AddMovie(context.Background(), 550, actor)
	require.NoError(t, err)

	assert.Equal(t, uint(550), movie.ID)
	assert.Equal(t, "Fight Club", movie.Title)
	require.Len(t, movie.Votes, 1)
	assert.Equal(t, "alice", movie.Votes[0].UserID)
	require.NotNil(t, movie.SubmittedBy)
	assert.Equal(t, "User alice", movie.SubmittedBy.Name)

	// The submitter's display fields were recorded for later hydration.
	stored, err := f.users.FindByID(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, stored)

	added := f.published.published(events.TopicMovieAdded)
	require.Len(t, added, 1)
	payload, ok := added[0].(*models.Movie)
	require.True(t, ok)
	assert.Equal(t, movie.ID, payload.ID)
	assert.NotNil(t, payload.SubmittedBy)
	assert.Len(t, payload.Votes, 1)
}

func TestAddMovieUnknownIDFailsWithoutEvent(t *testing.T) {
	f := setupMovieService(t)

	_, err := f.service.AddMovie(context.Background(), 999, testUser("alice"))
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, 0, f.published.count())
}

func TestAddMovieDuplicateSubmissionConflicts(t *testing.T) {
	f := setupMovieService(t)

	_, err := f.service.AddMovie(context.Background(), 550, testUser("alice"))
	require.NoError(t, err)

	_, err = f.service.AddMovie(context.Background(), 550, testUser("bob"))
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err))

	// Only the successful submission emitted an event.
	assert.Len(t, f.published.published(events.TopicMovieAdded), 1)
}

func TestAddMovieTitleFallbacks(t *testing.T) {
	f := setupMovieService(t)

	movie, err := f.service.AddMovie(context.Background(), 551, testUser("alice"))
	require.NoError(t, err)
	assert.Equal(t, "Le Samouraï", movie.Title)

	movie, err = f.service.AddMovie(context.Background(), 552, testUser("alice"))
	require.NoError(t, err)
	assert.Equal(t, "Unknown Movie", movie.Title)
}

func TestToggleVoteCastsThenRetracts(t *testing.T) {
	f := setupMovieService(t)
	ctx := context.Background()

	_, err := f.service.AddMovie(ctx, 550, testUser("alice"))
	require.NoError(t, err)

	bob := testUser("bob")
	require.NoError(t, f.service.ToggleVote(ctx, 550, bob))

	voted := f.published.published(events.TopicMovieVoted)
	require.Len(t, voted, 1)
	first := voted[0].(*models.Movie)
	assert.Len(t, first.Votes, 2)
	assert.True(t, first.HasVoteBy("bob"))

	// Second toggle retracts and publishes the shrunk list.
	require.NoError(t, f.service.ToggleVote(ctx, 550, bob))

	voted = f.published.published(events.TopicMovieVoted)
	require.Len(t, voted, 2)
	second := voted[1].(*models.Movie)
	assert.Len(t, second.Votes, 1)
	assert.False(t, second.HasVoteBy("bob"))

	stored, err := f.repo.FindVote(ctx, 550, "bob")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestToggleVoteUnknownMovie(t *testing.T) {
	f := setupMovieService(t)

	err := f.service.ToggleVote(context.Background(), 1234, testUser("alice"))
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, 0, f.published.count())
}

// stealthVoteRepo hides an existing vote from the check phase, reproducing
// the window where two toggles both observe "no vote" before inserting.
type stealthVoteRepo struct {
	*fakeMovieRepo
}

func (s *stealthVoteRepo) FindVote(context.Context, uint, string) (*models.Vote, error) {
	return nil, nil
}

func TestToggleVoteConcurrentDuplicateLosesAtStore(t *testing.T) {
	repo := newFakeMovieRepo()
	published := &recordingBroadcaster{}
	service := NewMovieService(&stealthVoteRepo{repo}, newFakeUserRepo(),
		&fakeMetadata{known: map[int]*models.TMDBMovieResponse{}}, published, testLogger())

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Movie{ID: 1, Title: "m", SubmitterID: "alice"}))
	require.NoError(t, repo.CreateVote(ctx, &models.Vote{MovieID: 1, UserID: "bob"}))

	// The insert hits the uniqueness constraint and surfaces a conflict
	// instead of double-counting.
	err := service.ToggleVote(ctx, 1, testUser("bob"))
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err))
	assert.Equal(t, 0, published.count())
}

func TestListPageWalksOlderPagesUntilExhausted(t *testing.T) {
	f := setupMovieService(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		movie := &models.Movie{
			ID:          uint(100 + i),
			Title:       "m",
			SubmitterID: "alice",
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, f.repo.Create(ctx, movie))
	}

	page1, cursor1, err := f.service.ListPage(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotEmpty(t, cursor1)
	assert.Equal(t, uint(104), page1[0].ID)
	assert.Equal(t, uint(103), page1[1].ID)

	page2, cursor2, err := f.service.ListPage(ctx, cursor1, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.NotEmpty(t, cursor2)
	assert.Equal(t, uint(102), page2[0].ID)
	assert.Equal(t, uint(101), page2[1].ID)

	// Last page is short and carries no cursor.
	page3, cursor3, err := f.service.ListPage(ctx, cursor2, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, uint(100), page3[0].ID)
	assert.Empty(t, cursor3)
}

func TestListPageOrdersByVotesFirst(t *testing.T) {
	f := setupMovieService(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)

	old := &models.Movie{ID: 1, Title: "old favourite", SubmitterID: "a", CreatedAt: base,
		Votes: []models.Vote{{MovieID: 1, UserID: "a"}, {MovieID: 1, UserID: "b"}}}
	fresh := &models.Movie{ID: 2, Title: "fresh", SubmitterID: "b", CreatedAt: base.Add(time.Hour),
		Votes: []models.Vote{{MovieID: 2, UserID: "b"}}}
	require.NoError(t, f.repo.Create(ctx, old))
	require.NoError(t, f.repo.Create(ctx, fresh))

	page, _, err := f.service.ListPage(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint(1), page[0].ID)
	assert.Equal(t, uint(2), page[1].ID)
}

func TestListPageRejectsMalformedCursor(t *testing.T) {
	f := setupMovieService(t)

	_, _, err := f.service.ListPage(context.Background(), "not-a-cursor", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cursor")
}

func TestToggleBanFlipsFlagWithoutEvent(t *testing.T) {
	f := setupMovieService(t)
	ctx := context.Background()

	_, err := f.service.AddMovie(ctx, 550, testUser("alice"))
	require.NoError(t, err)
	before := f.published.count()

	movie, err := f.service.ToggleBan(ctx, 550)
	require.NoError(t, err)
	assert.True(t, movie.Banned)

	movie, err = f.service.ToggleBan(ctx, 550)
	require.NoError(t, err)
	assert.False(t, movie.Banned)

	// Moderation is silent on the wire.
	assert.Equal(t, before, f.published.count())

	_, err = f.service.ToggleBan(ctx, 9999)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestClearAllSubmissionsSparesBannedAndStaysSilent(t *testing.T) {
	f := setupMovieService(t)
	ctx := context.Background()

	_, err := f.service.AddMovie(ctx, 550, testUser("alice"))
	require.NoError(t, err)
	_, err = f.service.AddMovie(ctx, 551, testUser("bob"))
	require.NoError(t, err)
	_, err = f.service.ToggleBan(ctx, 551)
	require.NoError(t, err)
	before := f.published.count()

	assert.True(t, f.service.ClearAllSubmissions(ctx))

	gone, err := f.service.GetMovieByID(ctx, 550)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := f.service.GetMovieByID(ctx, 551)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.True(t, kept.Banned)

	assert.Equal(t, before, f.published.count())
}

func TestCurrentSubmissionReturnsLatestOrNil(t *testing.T) {
	f := setupMovieService(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)

	require.NoError(t, f.repo.Create(ctx, &models.Movie{ID: 1, Title: "first", SubmitterID: "alice", CreatedAt: base}))
	require.NoError(t, f.repo.Create(ctx, &models.Movie{ID: 2, Title: "second", SubmitterID: "alice", CreatedAt: base.Add(time.Hour)}))

	current := f.service.CurrentSubmission(ctx, "alice")
	require.NotNil(t, current)
	assert.Equal(t, uint(2), current.ID)

	assert.Nil(t, f.service.CurrentSubmission(ctx, "nobody"))
}
