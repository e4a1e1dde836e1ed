package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"movienight-backend/internal/events"
	"movienight-backend/internal/models"
	"movienight-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// subscriberBuffer bounds how far one streaming connection may lag before
// events are dropped for it. Delivery is at most once, best effort; a client
// that misses events reconciles by re-fetching, never by replay.
const subscriberBuffer = 16

const heartbeatInterval = 15 * time.Second

// StreamHandler is the subscription gateway: each request opens a long-lived
// SSE response bound to one hub topic and streams matching payloads until
// the client disconnects or the hub shuts down.
type StreamHandler struct {
	hub    *events.Hub
	logger *logrus.Logger
}

func NewStreamHandler(hub *events.Hub, logger *logrus.Logger) *StreamHandler {
	return &StreamHandler{
		hub:    hub,
		logger: logger,
	}
}

// MovieAdded godoc
// @Summary Stream newly submitted movies
// @Description Server-sent events; each frame is a fully hydrated movie
// @Tags streams
// @Produce text/event-stream
// @Success 200 {string} string "SSE stream"
// @Router /events/movies/added [get]
func (h *StreamHandler) MovieAdded(c *fiber.Ctx) error {
	return h.stream(c, events.TopicMovieAdded, nil)
}

// MovieVoted godoc
// @Summary Stream vote changes
// @Description Server-sent events; optionally filtered to a single movie id
// @Tags streams
// @Produce text/event-stream
// @Param id query int false "Only stream events for this movie"
// @Success 200 {string} string "SSE stream"
// @Router /events/movies/voted [get]
func (h *StreamHandler) MovieVoted(c *fiber.Ctx) error {
	var match func(any) bool
	if raw := c.Query("id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid movie ID filter")
		}
		match = func(payload any) bool {
			movie, ok := payload.(*models.Movie)
			return ok && movie.ID == uint(id)
		}
	}
	return h.stream(c, events.TopicMovieVoted, match)
}

// NightUpdated godoc
// @Summary Stream movie night updates
// @Description Server-sent events; each frame is a night with its movie list
// @Tags streams
// @Produce text/event-stream
// @Success 200 {string} string "SSE stream"
// @Router /events/movie-nights [get]
func (h *StreamHandler) NightUpdated(c *fiber.Ctx) error {
	return h.stream(c, events.TopicNightUpdated, nil)
}

func (h *StreamHandler) stream(c *fiber.Ctx, topic events.Topic, match func(any) bool) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// Subscribe before the stream starts so nothing published in between
	// is lost.
	ch, cancel := h.hub.SubscribeChan(topic, subscriberBuffer)

	log := h.logger.WithFields(logrus.Fields{
		"topic":  topic,
		"remote": c.IP(),
	})

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// Deregistration must run on every exit path: client disconnect,
		// write failure, hub shutdown.
		defer cancel()

		log.Debug("Stream opened")
		defer log.Debug("Stream closed")

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case payload, ok := <-ch:
				if !ok {
					return
				}
				if match != nil && !match(payload) {
					continue
				}
				data, err := json.Marshal(payload)
				if err != nil {
					log.WithError(err).Error("Failed to marshal stream payload")
					continue
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
					return
				}
				// A failed flush is how we learn the client went away.
				if err := w.Flush(); err != nil {
					return
				}
			case <-h.hub.Done():
				return
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}
