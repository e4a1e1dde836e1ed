// Package feed maintains a client-side view of the voted-movie list. Two
// independent sources feed it: the paginated history endpoint and the live
// event stream. Both funnel through the same overwrite-by-id merge, so the
// view never holds duplicates and always reflects the newest snapshot that
// arrived for each movie.
package feed

import (
	"sort"
	"sync"

	"movienight-backend/internal/models"
)

// Store is the reconciliation map plus pagination state. Safe for use from
// the page loader and the stream reader concurrently.
type Store struct {
	mu         sync.Mutex
	items      map[uint]models.Movie
	prevCursor string
	loading    bool
	loadedOnce bool
}

func NewStore() *Store {
	return &Store{
		items: make(map[uint]models.Movie),
	}
}

// MergeEvent applies one live upsert: the incoming snapshot unconditionally
// replaces whatever is held for that id, last write wins by arrival order.
func (s *Store) MergeEvent(movie models.Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[movie.ID] = movie
}

// BeginLoad claims the pagination latch. It returns the cursor to request
// the strictly-older page with, or ok=false when a load is already in
// flight or the feed is exhausted.
func (s *Store) BeginLoad() (cursor string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return "", false
	}
	if s.loadedOnce && s.prevCursor == "" {
		return "", false
	}
	s.loading = true
	return s.prevCursor, true
}

// FinishLoad releases the latch and, on success, merges the page and
// remembers the next cursor. An empty cursor marks the feed exhausted.
func (s *Store) FinishLoad(movies []models.Movie, prevCursor string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		return
	}
	for _, m := range movies {
		s.items[m.ID] = m
	}
	s.prevCursor = prevCursor
	s.loadedOnce = true
}

// Invalidate drops everything. Called when the live stream reports an
// error: local state may have missed events and is repaired by a full
// refetch, never by partial patching.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[uint]models.Movie)
	s.prevCursor = ""
	s.loading = false
	s.loadedOnce = false
}

// Exhausted reports whether the server has no older page to give.
func (s *Store) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedOnce && s.prevCursor == ""
}

// Len reports how many movies are held, including ones the visibility
// filter hides.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Visible returns the render list: votes descending, ties broken by
// creation time descending then id descending so the order is
// deterministic. Watched movies are always hidden; banned movies are hidden
// unless the viewer is an admin. Filtering happens here, not at merge time,
// so the map may hold movies that are never shown.
func (s *Store) Visible(admin bool) []models.Movie {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := make([]models.Movie, 0, len(s.items))
	for _, m := range s.items {
		if m.Watched {
			continue
		}
		if m.Banned && !admin {
			continue
		}
		visible = append(visible, m)
	}

	sort.Slice(visible, func(i, j int) bool {
		a, b := &visible[i], &visible[j]
		if len(a.Votes) != len(b.Votes) {
			return len(a.Votes) > len(b.Votes)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	return visible
}
