package handlers

import (
	"strconv"

	"movienight-backend/internal/middleware"
	"movienight-backend/internal/services"
	"movienight-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type MovieHandler struct {
	service services.MovieService
	logger  *logrus.Logger
}

func NewMovieHandler(service services.MovieService, logger *logrus.Logger) *MovieHandler {
	return &MovieHandler{
		service: service,
		logger:  logger,
	}
}

// AddMovie godoc
// @Summary Submit a movie
// @Description Resolve a TMDB id and submit it as a suggestion with the submitter's initial vote
// @Tags movies
// @Accept json
// @Produce json
// @Param movie body AddMovieRequest true "TMDB movie id"
// @Success 201 {object} utils.StandardResponse "Submitted movie"
// @Failure 404 {object} utils.StandardResponse "Unknown TMDB id"
// @Failure 409 {object} utils.StandardResponse "Already submitted"
// @Router /movies [post]
func (h *MovieHandler) AddMovie(c *fiber.Ctx) error {
	var req AddMovieRequest
	if err := c.BodyParser(&req); err != nil || req.ID <= 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	actor := middleware.CurrentUser(c)
	movie, err := h.service.AddMovie(c.Context(), req.ID, actor)
	if err != nil {
		h.logger.WithError(err).WithField("tmdb_id", req.ID).Error("Failed to add movie")
		return utils.ErrorResponse(c, statusFromError(err), err.Error())
	}

	return utils.SuccessResponse(c, fiber.StatusCreated, "Movie submitted successfully", movie)
}

// ListMovies godoc
// @Summary List voted movies
// @Description One page of movies ordered by descending vote count, with a cursor for the strictly-older page
// @Tags movies
// @Produce json
// @Param cursor query string false "Opaque cursor from a previous page"
// @Param take query int false "Page size" default(15)
// @Success 200 {object} utils.StandardResponse "Page of movies"
// @Router /movies [get]
func (h *MovieHandler) ListMovies(c *fiber.Ctx) error {
	take, _ := strconv.Atoi(c.Query("take", strconv.Itoa(services.DefaultPageSize)))
	cursor := c.Query("cursor", "")

	movies, prevCursor, err := h.service.ListPage(c.Context(), cursor, take)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list movies")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve movies")
	}

	meta := utils.PageMeta{PrevCursor: prevCursor, Take: take}
	return utils.SuccessWithMetaResponse(c, fiber.StatusOK, "Movies retrieved successfully", movies, meta)
}

// SearchMovies godoc
// @Summary Search the metadata provider
// @Description Typeahead passthrough to TMDB search
// @Tags movies
// @Produce json
// @Param query query string true "Search text"
// @Success 200 {object} utils.StandardResponse "Search results"
// @Router /movies/search [get]
func (h *MovieHandler) SearchMovies(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "query is required")
	}

	results, err := h.service.SearchMovies(c.Context(), query)
	if err != nil {
		h.logger.WithError(err).Error("Failed to search movies")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to search movies")
	}

	return utils.SuccessResponse(c, fiber.StatusOK, "Search completed", results)
}

// GetCurrentSubmission godoc
// @Summary Get the caller's latest submission
// @Tags movies
// @Produce json
// @Success 200 {object} utils.StandardResponse "Latest submission or null"
// @Router /movies/current [get]
func (h *MovieHandler) GetCurrentSubmission(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	movie := h.service.CurrentSubmission(c.Context(), actor.ID)
	return utils.SuccessResponse(c, fiber.StatusOK, "Current submission retrieved", movie)
}

// GetMovieByID godoc
// @Summary Get a movie
// @Description Movie with votes and submitter display fields
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} utils.StandardResponse "Movie or null"
// @Failure 400 {object} utils.StandardResponse "Invalid movie ID"
// @Router /movies/{id} [get]
func (h *MovieHandler) GetMovieByID(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid movie ID")
	}

	movie, err := h.service.GetMovieByID(c.Context(), uint(id))
	if err != nil {
		h.logger.WithError(err).WithField("id", id).Error("Failed to get movie")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve movie")
	}

	return utils.SuccessResponse(c, fiber.StatusOK, "Movie retrieved successfully", movie)
}

// ToggleVote godoc
// @Summary Toggle a vote
// @Description Casts the caller's vote, or retracts it when one exists
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} utils.StandardResponse
// @Failure 404 {object} utils.StandardResponse "Movie not found"
// @Failure 409 {object} utils.StandardResponse "Concurrent duplicate vote"
// @Router /movies/{id}/vote [post]
func (h *MovieHandler) ToggleVote(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid movie ID")
	}

	actor := middleware.CurrentUser(c)
	if err := h.service.ToggleVote(c.Context(), uint(id), actor); err != nil {
		h.logger.WithError(err).WithField("id", id).Error("Failed to toggle vote")
		return utils.ErrorResponse(c, statusFromError(err), err.Error())
	}

	return utils.SuccessResponse(c, fiber.StatusOK, "Vote toggled", nil)
}

// ToggleBan godoc
// @Summary Toggle a movie's ban
// @Tags admin
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} utils.StandardResponse "Updated movie"
// @Failure 404 {object} utils.StandardResponse "Movie not found"
// @Router /movies/{id}/ban [post]
func (h *MovieHandler) ToggleBan(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid movie ID")
	}

	movie, err := h.service.ToggleBan(c.Context(), uint(id))
	if err != nil {
		h.logger.WithError(err).WithField("id", id).Error("Failed to toggle ban")
		return utils.ErrorResponse(c, statusFromError(err), err.Error())
	}

	return utils.SuccessResponse(c, fiber.StatusOK, "Ban toggled", movie)
}

// ClearAllSubmissions godoc
// @Summary Delete every non-banned movie
// @Description Destructive wipe of all current submissions and their votes. No event is published; clients must refetch.
// @Tags admin
// @Produce json
// @Success 200 {object} utils.StandardResponse "Whether the wipe succeeded"
// @Router /movies [delete]
func (h *MovieHandler) ClearAllSubmissions(c *fiber.Ctx) error {
	cleared := h.service.ClearAllSubmissions(c.Context())
	return utils.SuccessResponse(c, fiber.StatusOK, "Submissions cleared", fiber.Map{
		"cleared": cleared,
	})
}
