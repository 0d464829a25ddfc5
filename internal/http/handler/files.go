package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"mediavault/internal/model"
	"mediavault/internal/storage"
)

// ServeMedia streams a stored binary of kind from GET /<dir>/:name.
//
// @Summary Download a stored media file
// @Tags files
// @Param dir path string true "videos, pictures, audios or documents"
// @Param name path string true "Stored filename"
// @Success 200 {file} file
// @Failure 404 {object} errorPayload
// @Router /{dir}/{name} [get]
func ServeMedia(store storage.Storage, kind model.MediaKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := url.PathUnescape(c.Params("name"))
		if err != nil || name == "" {
			return badRequest("INVALID_NAME", "invalid file name")
		}

		rc, info, err := store.Get(c.UserContext(), kind.Dir()+"/"+name)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
			case errors.Is(err, storage.ErrInvalidKey):
				return badRequest("INVALID_NAME", "invalid file name")
			}
			return err
		}

		ct := info.ContentType
		if ct == "" {
			ct = fiber.MIMEOctetStream
		}
		c.Set(fiber.HeaderContentType, ct)
		if !info.LastModified.IsZero() {
			c.Set(fiber.HeaderLastModified, info.LastModified.UTC().Format(http.TimeFormat))
		}
		size := int(info.Size)
		if info.Size < 0 {
			size = -1
		}
		return c.SendStream(rc, size)
	}
}
