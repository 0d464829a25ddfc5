package handler

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"mediavault/internal/http/middleware"
	"mediavault/internal/service"
)

// callerID returns the authenticated user's ID.
func callerID(c *fiber.Ctx) (int64, error) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
	}
	return id.ID, nil
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("INVALID_ID", "invalid id format")
	}
	return id, nil
}

// pageParams reads limit and offset; the service applies defaults and bounds.
func pageParams(c *fiber.Ctx) (limit, offset int, err error) {
	limit, err = strconv.Atoi(c.Query("limit", "10"))
	if err != nil {
		return 0, 0, badRequest("INVALID_LIMIT", "invalid limit")
	}
	offset, err = strconv.Atoi(c.Query("offset", "0"))
	if err != nil {
		return 0, 0, badRequest("INVALID_OFFSET", "invalid offset")
	}
	return limit, offset, nil
}

// formField returns a text field and whether the client sent it at all.
func formField(c *fiber.Ctx, name string) (string, bool) {
	if form, err := c.MultipartForm(); err == nil {
		v, ok := form.Value[name]
		if !ok || len(v) == 0 {
			return "", false
		}
		return v[0], true
	}
	args := c.Request().PostArgs()
	if !args.Has(name) {
		return "", false
	}
	return string(args.Peek(name)), true
}

func formBool(c *fiber.Ctx, name string) bool {
	v, _ := formField(c, name)
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b
}

// formFiles returns every file sent under name; nil when the body is not multipart.
func formFiles(c *fiber.Ctx, name string) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	return form.File[name]
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openUpload(fh *multipart.FileHeader) (*service.Upload, io.Closer, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, badRequest("FILE_OPEN_ERROR", "cannot open uploaded file")
	}
	ct := fh.Header.Get(fiber.HeaderContentType)
	if ct == "" {
		ct = fiber.MIMEOctetStream
	}
	return &service.Upload{Reader: f, Filename: fh.Filename, ContentType: ct, Size: fh.Size}, f, nil
}

// optionalUpload opens the first file under name, or returns nil when none was sent.
func optionalUpload(c *fiber.Ctx, name string) (*service.Upload, io.Closer, error) {
	files := formFiles(c, name)
	if len(files) == 0 {
		return nil, nopCloser{}, nil
	}
	return openUpload(files[0])
}

// requiredUpload is optionalUpload that fails with 400 when the file is missing.
func requiredUpload(c *fiber.Ctx, name string) (*service.Upload, io.Closer, error) {
	files := formFiles(c, name)
	if len(files) == 0 {
		return nil, nil, badRequest("FILE_REQUIRED", "No "+name+" file provided")
	}
	return openUpload(files[0])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
