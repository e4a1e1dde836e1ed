package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"movienight-backend/internal/models"
	"movienight-backend/internal/utils"
)

const (
	defaultPageSize  = 15
	reconnectBackoff = 3 * time.Second
)

// Client keeps a Store reconciled against a running server. It pulls
// history through the paginated list endpoint and pushes live updates from
// the added/voted event streams into the same store. When a stream drops,
// the store is invalidated and the first page refetched rather than trying
// to guess what was missed.
type Client struct {
	baseURL  string
	http     *http.Client
	store    *Store
	logger   *logrus.Logger
	pageSize int
}

func NewClient(baseURL string, store *Store, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		store:    store,
		logger:   logger,
		pageSize: defaultPageSize,
	}
}

type pageEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    []models.Movie  `json:"data"`
	Meta    *utils.PageMeta `json:"meta"`
}

// LoadMore fetches the next strictly-older page and merges it. It is a
// no-op when a load is already in flight or the feed is exhausted.
func (c *Client) LoadMore(ctx context.Context) error {
	cursor, ok := c.store.BeginLoad()
	if !ok {
		return nil
	}

	movies, prevCursor, err := c.fetchPage(ctx, cursor)
	c.store.FinishLoad(movies, prevCursor, err)
	if err != nil {
		return fmt.Errorf("failed to load movie page: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"movies":      len(movies),
		"prev_cursor": prevCursor,
	}).Debug("Merged movie page")
	return nil
}

func (c *Client) fetchPage(ctx context.Context, cursor string) ([]models.Movie, string, error) {
	q := url.Values{}
	q.Set("take", strconv.Itoa(c.pageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/movies?"+q.Encode(), nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d from list endpoint", resp.StatusCode)
	}

	var envelope pageEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, "", fmt.Errorf("failed to decode movie page: %w", err)
	}

	prevCursor := ""
	if envelope.Meta != nil {
		prevCursor = envelope.Meta.PrevCursor
	}
	return envelope.Data, prevCursor, nil
}

// Run consumes both movie streams until the context is cancelled. Each
// stream failure triggers invalidate-and-refetch, then a reconnect after a
// short backoff.
func (c *Client) Run(ctx context.Context) {
	streams := []string{
		"/api/v1/events/movies/added",
		"/api/v1/events/movies/voted",
	}

	for _, path := range streams {
		go c.consume(ctx, path)
	}

	<-ctx.Done()
}

func (c *Client) consume(ctx context.Context, path string) {
	for {
		err := c.readStream(ctx, path)
		if ctx.Err() != nil {
			return
		}

		c.logger.WithError(err).WithField("stream", path).Warn("Event stream dropped, resyncing")

		// Anything may have been missed while disconnected, so the local
		// view is rebuilt from scratch.
		c.store.Invalidate()
		if err := c.LoadMore(ctx); err != nil {
			c.logger.WithError(err).Warn("Resync fetch failed, retrying after reconnect")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectBackoff):
		}
	}
}

func (c *Client) readStream(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// No timeout on stream connections, they are expected to stay open.
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from stream endpoint", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var movie models.Movie
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &movie); err != nil {
			c.logger.WithError(err).WithField("stream", path).Warn("Skipping malformed stream payload")
			continue
		}
		c.store.MergeEvent(movie)
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("stream closed by server")
}
