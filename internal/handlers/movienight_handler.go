package handlers

import (
	"strconv"

	"movienight-backend/internal/models"
	"movienight-backend/internal/services"
	"movienight-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type MovieNightHandler struct {
	service services.MovieNightService
	logger  *logrus.Logger
}

func NewMovieNightHandler(service services.MovieNightService, logger *logrus.Logger) *MovieNightHandler {
	return &MovieNightHandler{
		service: service,
		logger:  logger,
	}
}

// GetNext godoc
// @Summary Get the next movie night
// @Description The earliest night that is upcoming or not yet completed, with its movies; null when none
// @Tags movie-nights
// @Produce json
// @Success 200 {object} utils.StandardResponse "Next movie night or null"
// @Router /movie-nights/next [get]
func (h *MovieNightHandler) GetNext(c *fiber.Ctx) error {
	night, err := h.service.GetNext(c.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get next movie night")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve next movie night")
	}

	return utils.SuccessResponse(c, fiber.StatusOK, "Next movie night retrieved", night)
}

// GetAll godoc
// @Summary List all movie nights
// @Tags admin
// @Produce json
// @Success 200 {object} utils.StandardResponse "Movie nights, newest start first"
// @Router /movie-nights [get]
func (h *MovieNightHandler) GetAll(c *fiber.Ctx) error {
	nights, err := h.service.GetAll(c.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list movie nights")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve movie nights")
	}

	return utils.SuccessResponse(c, fiber.StatusOK, "Movie nights retrieved", nights)
}

// Create godoc
// @Summary Schedule a movie night
// @Description Creates a night, auto-titled from the running count when no title is given
// @Tags admin
// @Accept json
// @Produce json
// @Param night body CreateMovieNightRequest true "Movie night"
// @Success 201 {object} utils.StandardResponse "Created movie night"
// @Failure 500 {object} utils.StandardResponse "Unable to create movie night"
// @Router /movie-nights [post]
func (h *MovieNightHandler) Create(c *fiber.Ctx) error {
	var req CreateMovieNightRequest
	if err := c.BodyParser(&req); err != nil || req.StartingAt.IsZero() {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	night, err := h.service.Create(c.Context(), req.Title, req.StartingAt)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create movie night")
		return utils.ErrorResponse(c, statusFromError(err), err.Error())
	}

	return utils.SuccessResponse(c, fiber.StatusCreated, "Movie night created", night)
}

// Update godoc
// @Summary Patch a movie night
// @Description Partial update of title, start time or completion flag
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Movie night ID"
// @Param patch body models.MovieNightPatch true "Fields to change"
// @Success 200 {object} utils.StandardResponse "Updated movie night"
// @Failure 404 {object} utils.StandardResponse "Movie night not found"
// @Router /movie-nights/{id} [patch]
func (h *MovieNightHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid movie night ID")
	}

	var patch models.MovieNightPatch
	if err := c.BodyParser(&patch); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	night, err := h.service.Update(c.Context(), uint(id), patch)
	if err != nil {
		h.logger.WithError(err).WithField("id", id).Error("Failed to update movie night")
		return utils.ErrorResponse(c, statusFromError(err), err.Error())
	}

	return utils.SuccessResponse(c, fiber.StatusOK, "Movie night updated", night)
}

// Complete godoc
// @Summary Complete a movie night
// @Description Marks the night completed and every assigned unwatched movie as watched
// @Tags admin
// @Produce json
// @Param id path int true "Movie night ID"
// @Success 200 {object} utils.StandardResponse "Completed movie night"
// @Failure 404 {object} utils.StandardResponse "Movie night not found"
// @Router /movie-nights/{id}/complete [post]
func (h *MovieNightHandler) Complete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid movie night ID")
	}

	night, err := h.service.Complete(c.Context(), uint(id))
	if err != nil {
		h.logger.WithError(err).WithField("id", id).Error("Failed to complete movie night")
		return utils.ErrorResponse(c, statusFromError(err), err.Error())
	}

	return utils.SuccessResponse(c, fiber.StatusOK, "Movie night completed", night)
}

// AssignMovie godoc
// @Summary Assign a movie to the current night
// @Description Points the movie at the earliest upcoming-or-incomplete night
// @Tags admin
// @Produce json
// @Param movieId path int true "Movie ID"
// @Success 200 {object} utils.StandardResponse "Updated movie"
// @Failure 404 {object} utils.StandardResponse "No movie night found"
// @Router /movie-nights/current/movies/{movieId} [post]
func (h *MovieNightHandler) AssignMovie(c *fiber.Ctx) error {
	movieID, err := strconv.ParseUint(c.Params("movieId"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid movie ID")
	}

	movie, err := h.service.AssignMovie(c.Context(), uint(movieID))
	if err != nil {
		h.logger.WithError(err).WithField("movie_id", movieID).Error("Failed to assign movie")
		return utils.ErrorResponse(c, statusFromError(err), err.Error())
	}

	return utils.SuccessResponse(c, fiber.StatusOK, "Movie assigned", movie)
}

// UnassignMovie godoc
// @Summary Remove a movie from its night
// @Description Clears the movie's night pointer. No event is published; dependent views must re-fetch.
// @Tags admin
// @Produce json
// @Param movieId path int true "Movie ID"
// @Success 200 {object} utils.StandardResponse "Updated movie"
// @Router /movie-nights/movies/{movieId} [delete]
func (h *MovieNightHandler) UnassignMovie(c *fiber.Ctx) error {
	movieID, err := strconv.ParseUint(c.Params("movieId"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid movie ID")
	}

	movie, err := h.service.UnassignMovie(c.Context(), uint(movieID))
	if err != nil {
		h.logger.WithError(err).WithField("movie_id", movieID).Error("Failed to unassign movie")
		return utils.ErrorResponse(c, statusFromError(err), err.Error())
	}

	return utils.SuccessResponse(c, fiber.StatusOK, "Movie unassigned", movie)
}
