package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mediavault/internal/fetch"
	"mediavault/internal/http/middleware"
	"mediavault/internal/model"
	"mediavault/internal/service"
)

type downloadRequest struct {
	VideoURL string `json:"videoUrl"`
	Title    string `json:"title"`
}

// DownloadVideo handles POST /api/videos/download: fetch a remote video and store it as the caller's.
//
// @Summary Download a remote video into the library
// @Tags media
// @Accept json
// @Produce json
// @Param body body downloadRequest true "Source"
// @Success 201 {object} map[string]any
// @Failure 400 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /api/videos/download [post]
func DownloadVideo(f fetch.Fetcher, media service.MediaService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := callerID(c)
		if err != nil {
			return err
		}
		var req downloadRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		if strings.TrimSpace(req.VideoURL) == "" {
			return badRequest("VALIDATION_ERROR", "No video URL provided")
		}

		dl, err := f.Fetch(c.UserContext(), req.VideoURL)
		if err != nil {
			if errors.Is(err, fetch.ErrInvalidURL) || errors.Is(err, fetch.ErrTooLarge) {
				return err
			}
			log.Warn("video_download_failed",
				zap.String("request_id", middleware.GetRequestID(c)),
				zap.String("url", req.VideoURL),
				zap.Error(err),
			)
			return fiber.NewError(fiber.StatusBadGateway, "Failed to download video")
		}
		defer dl.Close()

		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = "Downloaded video"
		}
		ct := dl.ContentType
		if !strings.HasPrefix(ct, "video/") {
			ct = "video/mp4"
		}

		m, err := media.Create(c.UserContext(), service.CreateMediaInput{
			Kind:  model.KindVideo,
			Title: title,
			File: &service.Upload{
				Reader:      dl,
				Filename:    ".mp4",
				ContentType: ct,
				Size:        dl.Size,
			},
			UserID: userID,
		})
		if err != nil {
			return err
		}
		return writeSuccess(c, fiber.StatusCreated, "Video downloaded successfully", fiber.Map{
			string(model.KindVideo): m,
		})
	}
}
