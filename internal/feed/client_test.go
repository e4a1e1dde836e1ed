package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestClientLoadMoreMergesPageAndCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/movies", r.URL.Path)
		require.Equal(t, "15", r.URL.Query().Get("take"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"status": "success",
			"code": 200,
			"message": "Movies retrieved successfully",
			"data": [
				{"id": 550, "title": "Fight Club", "votes": [{"movieId": 550, "userId": "alice"}]},
				{"id": 600, "title": "Brazil", "votes": []}
			],
			"meta": {"prev_cursor": "1700000000000000000", "take": 15}
		}`)
	}))
	defer server.Close()

	store := NewStore()
	client := NewClient(server.URL, store, testLogger())

	require.NoError(t, client.LoadMore(context.Background()))

	assert.Equal(t, 2, store.Len())
	assert.False(t, store.Exhausted())

	// The next load asks for the strictly-older page.
	cursor, ok := store.BeginLoad()
	require.True(t, ok)
	assert.Equal(t, "1700000000000000000", cursor)
}

func TestClientLoadMoreSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := NewStore()
	client := NewClient(server.URL, store, testLogger())

	err := client.LoadMore(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())

	// The latch is released so the caller can retry.
	_, ok := store.BeginLoad()
	assert.True(t, ok)
}

func TestClientReadStreamMergesEventsUntilClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		// Heartbeat comments are ignored, data frames are merged.
		fmt.Fprint(w, ": ping\n\n")
		fmt.Fprint(w, "data: {\"id\": 550, \"title\": \"Fight Club\", \"votes\": []}\n\n")
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, "data: {\"id\": 600, \"title\": \"Brazil\", \"votes\": []}\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	store := NewStore()
	client := NewClient(server.URL, store, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The server closing the stream is reported as an error so the caller
	// knows to invalidate and resync.
	err := client.readStream(ctx, "/api/v1/events/movies/added")
	require.Error(t, err)

	assert.Equal(t, 2, store.Len())
	visible := store.Visible(false)
	require.Len(t, visible, 2)
}
