package routes

import (
	"movienight-backend/internal/handlers"
	"movienight-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

func Setup(
	app *fiber.App,
	jwtSecret string,
	movieHandler *handlers.MovieHandler,
	nightHandler *handlers.MovieNightHandler,
	streamHandler *handlers.StreamHandler,
	uploadHandler *handlers.UploadHandler,
) {
	api := app.Group("/api")
	v1 := api.Group("/v1")

	authed := middleware.JWTAuth(jwtSecret)
	admin := middleware.RequireAdmin()

	// Movie routes - submissions and voting
	movies := v1.Group("/movies")
	{
		movies.Get("/", movieHandler.ListMovies)
		movies.Get("/search", movieHandler.SearchMovies)
		movies.Get("/current", authed, movieHandler.GetCurrentSubmission)
		movies.Get("/:id", movieHandler.GetMovieByID)
		movies.Post("/", authed, movieHandler.AddMovie)
		movies.Post("/:id/vote", authed, movieHandler.ToggleVote)
		movies.Post("/:id/ban", authed, admin, movieHandler.ToggleBan)
		movies.Delete("/", authed, admin, movieHandler.ClearAllSubmissions)
	}

	// Movie night routes - scheduling
	nights := v1.Group("/movie-nights")
	{
		nights.Get("/next", nightHandler.GetNext)
		nights.Get("/", authed, admin, nightHandler.GetAll)
		nights.Post("/", authed, admin, nightHandler.Create)
		nights.Patch("/:id", authed, admin, nightHandler.Update)
		nights.Post("/:id/complete", authed, admin, nightHandler.Complete)
		nights.Post("/current/movies/:movieId", authed, admin, nightHandler.AssignMovie)
		nights.Delete("/movies/:movieId", authed, admin, nightHandler.UnassignMovie)
	}

	// Stream routes - the push subscription gateway
	streams := v1.Group("/events")
	{
		streams.Get("/movies/added", streamHandler.MovieAdded)
		streams.Get("/movies/voted", streamHandler.MovieVoted)
		streams.Get("/movie-nights", streamHandler.NightUpdated)
	}

	if uploadHandler != nil {
		upload := v1.Group("/upload")
		{
			upload.Get("/presign", authed, admin, uploadHandler.GetPresignedURL)
		}
	}
}
