package handlers

import (
	"errors"
	"time"

	"movienight-backend/internal/errs"

	"github.com/gofiber/fiber/v2"
)

// AddMovieRequest carries the external TMDB id of the submission.
type AddMovieRequest struct {
	ID int `json:"id"`
}

type CreateMovieNightRequest struct {
	Title      string    `json:"title"`
	StartingAt time.Time `json:"startingAt"`
}

// statusFromError maps the service failure taxonomy onto HTTP status codes.
// Anything outside the taxonomy is an internal failure.
func statusFromError(err error) int {
	switch {
	case errs.IsNotFound(err):
		return fiber.StatusNotFound
	case errs.IsConflict(err):
		return fiber.StatusConflict
	case errs.IsForbidden(err):
		return fiber.StatusForbidden
	default:
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}
}
