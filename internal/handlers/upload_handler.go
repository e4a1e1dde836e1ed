package handlers

import (
	"movienight-backend/internal/services"
	"movienight-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type UploadHandler struct {
	posters *services.PosterStore
	logger  *logrus.Logger
}

func NewUploadHandler(posters *services.PosterStore, logger *logrus.Logger) *UploadHandler {
	return &UploadHandler{
		posters: posters,
		logger:  logger,
	}
}

// GetPresignedURL godoc
// @Summary Presign a poster upload
// @Description Generate a presigned PUT URL for a custom movie poster
// @Tags admin
// @Produce json
// @Param filename query string true "Filename"
// @Success 200 {object} utils.StandardResponse
// @Failure 400 {object} utils.StandardResponse
// @Router /upload/presign [get]
func (h *UploadHandler) GetPresignedURL(c *fiber.Ctx) error {
	filename := c.Query("filename")
	if filename == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "filename is required")
	}

	uploadURL, publicURL, err := h.posters.PresignUpload(c.Context(), filename)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate presigned URL")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate presigned URL")
	}

	return utils.SuccessResponse(c, fiber.StatusOK, "Presigned URL generated successfully", fiber.Map{
		"upload_url": uploadURL,
		"public_url": publicURL,
	})
}
