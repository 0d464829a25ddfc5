package handler

import (
	"github.com/gofiber/fiber/v2"

	"mediavault/internal/model"
	"mediavault/internal/service"
)

// CreateMedia handles POST /api/<kinds> (multipart: title, description, <kind> file or <kind>Url).
//
// @Summary Upload or link a media item
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param kinds path string true "videos, pictures, audios or files"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Success 201 {object} map[string]any
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Router /api/{kinds} [post]
func CreateMedia(svc service.MediaService, kind model.MediaKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := callerID(c)
		if err != nil {
			return err
		}

		up, closer, err := optionalUpload(c, kind.FileField())
		if err != nil {
			return err
		}
		defer closer.Close()

		title, _ := formField(c, "title")
		description, _ := formField(c, "description")
		rawURL, _ := formField(c, kind.URLField())

		m, err := svc.Create(c.UserContext(), service.CreateMediaInput{
			Kind:        kind,
			Title:       title,
			Description: description,
			URL:         rawURL,
			File:        up,
			UserID:      userID,
		})
		if err != nil {
			return err
		}
		return writeSuccess(c, fiber.StatusCreated, capitalize(string(kind))+" uploaded successfully", fiber.Map{
			string(kind): m,
		})
	}
}

// ListMedia handles GET /api/<kinds>?limit&offset&mine.
//
// @Summary List media items
// @Tags media
// @Produce json
// @Param kinds path string true "videos, pictures, audios or files"
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Offset" default(0)
// @Param mine query bool false "Only the caller's items"
// @Success 200 {object} map[string]any
// @Failure 400 {object} errorPayload
// @Router /api/{kinds} [get]
func ListMedia(svc service.MediaService, kind model.MediaKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pageParams(c)
		if err != nil {
			return err
		}

		in := service.ListMediaInput{Limit: limit, Offset: offset}
		if c.QueryBool("mine") {
			if in.UserID, err = callerID(c); err != nil {
				return err
			}
		}

		res, err := svc.List(c.UserContext(), kind, in)
		if err != nil {
			return err
		}
		return writeSuccess(c, fiber.StatusOK, capitalize(kind.Plural())+" retrieved successfully", fiber.Map{
			kind.Plural(): res.Items,
			"total":       res.Total,
		})
	}
}

// GetMedia handles GET /api/<kinds>/:id.
//
// @Summary Get a media item
// @Tags media
// @Produce json
// @Param kinds path string true "videos, pictures, audios or files"
// @Param id path int true "ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} errorPayload
// @Router /api/{kinds}/{id} [get]
func GetMedia(svc service.MediaService, kind model.MediaKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		m, err := svc.Get(c.UserContext(), kind, id)
		if err != nil {
			return err
		}
		return writeSuccess(c, fiber.StatusOK, capitalize(string(kind))+" retrieved successfully", fiber.Map{
			string(kind): m,
		})
	}
}

// UpdateMedia handles PUT /api/<kinds>/:id. Only fields present in the form are changed.
//
// @Summary Update a media item
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param kinds path string true "videos, pictures, audios or files"
// @Param id path int true "ID"
// @Success 200 {object} map[string]any
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /api/{kinds}/{id} [put]
func UpdateMedia(svc service.MediaService, kind model.MediaKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := callerID(c)
		if err != nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}

		up, closer, err := optionalUpload(c, kind.FileField())
		if err != nil {
			return err
		}
		defer closer.Close()

		in := service.UpdateMediaInput{Kind: kind, ID: id, UserID: userID, File: up}
		if v, ok := formField(c, "title"); ok {
			in.Title = &v
		}
		if v, ok := formField(c, "description"); ok {
			in.Description = &v
		}
		if v, ok := formField(c, kind.URLField()); ok {
			in.URL = &v
		}

		m, err := svc.Update(c.UserContext(), in)
		if err != nil {
			return err
		}
		return writeSuccess(c, fiber.StatusOK, capitalize(string(kind))+" updated successfully", fiber.Map{
			string(kind): m,
		})
	}
}

// DeleteMedia handles DELETE /api/<kinds>/:id.
//
// @Summary Delete a media item
// @Tags media
// @Produce json
// @Param kinds path string true "videos, pictures, audios or files"
// @Param id path int true "ID"
// @Success 200 {object} map[string]any
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/{kinds}/{id} [delete]
func DeleteMedia(svc service.MediaService, kind model.MediaKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := callerID(c)
		if err != nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}
		if err := svc.Delete(c.UserContext(), kind, id, userID); err != nil {
			return err
		}
		return writeSuccess(c, fiber.StatusOK, capitalize(string(kind))+" deleted successfully", nil)
	}
}
