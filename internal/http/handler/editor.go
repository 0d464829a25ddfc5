package handler

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"mediavault/internal/editor"
	"mediavault/internal/model"
	"mediavault/internal/service"
)

// MediaEditor is the set of engine operations exposed under /api/editor.
type MediaEditor interface {
	Trim(ctx context.Context, video io.Reader, ranges []editor.Range) (*editor.Output, error)
	TrimAudio(ctx context.Context, audio io.Reader, ranges []editor.Range) (*editor.Output, error)
	Concat(ctx context.Context, videos []io.Reader) (*editor.Output, error)
	Filter(ctx context.Context, video io.Reader, filters []editor.Filter) (*editor.Output, error)
	Upscale(ctx context.Context, video io.Reader) (*editor.Output, error)
	AddMusic(ctx context.Context, video, music io.Reader) (*editor.Output, error)
}

var _ MediaEditor = (*editor.Editor)(nil)

// sendOutput streams the result as an attachment, or stores it as a new media
// item when the form carries save=true. The workspace is removed once the body
// has been written.
func sendOutput(c *fiber.Ctx, media service.MediaService, kind model.MediaKind, out *editor.Output) error {
	if !formBool(c, "save") {
		c.Attachment(out.Name)
		c.Set(fiber.HeaderContentType, out.ContentType)
		return c.SendStream(out, int(out.Size))
	}
	defer out.Close()

	userID, err := callerID(c)
	if err != nil {
		return err
	}
	title, _ := formField(c, "title")
	description, _ := formField(c, "description")
	m, err := media.Create(c.UserContext(), service.CreateMediaInput{
		Kind:        kind,
		Title:       title,
		Description: description,
		File: &service.Upload{
			Reader:      out,
			Filename:    out.Name,
			ContentType: out.ContentType,
			Size:        out.Size,
		},
		UserID: userID,
	})
	if err != nil {
		return err
	}
	return writeSuccess(c, fiber.StatusCreated, "Edited "+string(kind)+" saved successfully", fiber.Map{
		string(kind): m,
	})
}

func trimHandler(
	media service.MediaService,
	field string,
	kind model.MediaKind,
	run func(ctx context.Context, in io.Reader, ranges []editor.Range) (*editor.Output, error),
) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, closer, err := requiredUpload(c, field)
		if err != nil {
			return err
		}
		defer closer.Close()

		raw, _ := formField(c, "ranges")
		ranges, err := editor.ParseRanges(raw)
		if err != nil {
			return err
		}
		out, err := run(c.UserContext(), in.Reader, ranges)
		if err != nil {
			return err
		}
		return sendOutput(c, media, kind, out)
	}
}

// TrimVideo handles POST /api/editor/trim (video file + ranges).
//
// @Summary Keep the given ranges of a video
// @Tags editor
// @Accept multipart/form-data
// @Produce video/mp4
// @Param video formData file true "Video"
// @Param ranges formData string true "JSON array of [start, end] pairs in seconds"
// @Success 200 {file} file
// @Failure 400 {object} errorPayload
// @Router /api/editor/trim [post]
func TrimVideo(ed MediaEditor, media service.MediaService) fiber.Handler {
	return trimHandler(media, "video", model.KindVideo, func(ctx context.Context, in io.Reader, r []editor.Range) (*editor.Output, error) {
		return ed.Trim(ctx, in, r)
	})
}

// TrimAudio handles POST /api/editor/trim-audio (audio file + ranges).
//
// @Summary Keep the given ranges of an audio track
// @Tags editor
// @Accept multipart/form-data
// @Produce audio/mpeg
// @Param audio formData file true "Audio"
// @Param ranges formData string true "JSON array of [start, end] pairs in seconds"
// @Success 200 {file} file
// @Router /api/editor/trim-audio [post]
func TrimAudio(ed MediaEditor, media service.MediaService) fiber.Handler {
	return trimHandler(media, "audio", model.KindAudio, func(ctx context.Context, in io.Reader, r []editor.Range) (*editor.Output, error) {
		return ed.TrimAudio(ctx, in, r)
	})
}

// ConcatVideos handles POST /api/editor/concat (two or more "videos" files).
//
// @Summary Join videos in upload order
// @Tags editor
// @Accept multipart/form-data
// @Produce video/mp4
// @Param videos formData file true "Videos"
// @Success 200 {file} file
// @Router /api/editor/concat [post]
func ConcatVideos(ed MediaEditor, media service.MediaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		files := formFiles(c, "videos")
		if len(files) < 2 {
			return editor.ErrTooFewVideos
		}
		readers := make([]io.Reader, 0, len(files))
		for _, fh := range files {
			up, closer, err := openUpload(fh)
			if err != nil {
				return err
			}
			defer closer.Close()
			readers = append(readers, up.Reader)
		}

		out, err := ed.Concat(c.UserContext(), readers)
		if err != nil {
			return err
		}
		return sendOutput(c, media, model.KindVideo, out)
	}
}

// filterNames accepts repeated fields, comma separated values and a JSON array.
func filterNames(c *fiber.Ctx) ([]string, error) {
	var values []string
	if form, err := c.MultipartForm(); err == nil {
		values = form.Value["filters"]
	} else if v, ok := formField(c, "filters"); ok {
		values = []string{v}
	}

	var names []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "[") {
			var arr []string
			if err := json.Unmarshal([]byte(v), &arr); err != nil {
				return nil, badRequest("VALIDATION_ERROR", "filters must be a list of filter names")
			}
			names = append(names, arr...)
			continue
		}
		names = append(names, strings.Split(v, ",")...)
	}
	return names, nil
}

// FilterVideo handles POST /api/editor/filter (video + filters).
//
// @Summary Apply visual filters
// @Tags editor
// @Accept multipart/form-data
// @Produce video/mp4
// @Param video formData file true "Video"
// @Param filters formData []string true "grayscale, enhance, vflip"
// @Success 200 {file} file
// @Router /api/editor/filter [post]
func FilterVideo(ed MediaEditor, media service.MediaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, closer, err := requiredUpload(c, "video")
		if err != nil {
			return err
		}
		defer closer.Close()

		names, err := filterNames(c)
		if err != nil {
			return err
		}
		filters, err := editor.ParseFilters(names)
		if err != nil {
			return err
		}
		out, err := ed.Filter(c.UserContext(), in.Reader, filters)
		if err != nil {
			return err
		}
		return sendOutput(c, media, model.KindVideo, out)
	}
}

// UpscaleVideo handles POST /api/editor/upscale.
//
// @Summary Re-encode a video at 1920x1080
// @Tags editor
// @Accept multipart/form-data
// @Produce video/mp4
// @Param video formData file true "Video"
// @Success 200 {file} file
// @Router /api/editor/upscale [post]
func UpscaleVideo(ed MediaEditor, media service.MediaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, closer, err := requiredUpload(c, "video")
		if err != nil {
			return err
		}
		defer closer.Close()

		out, err := ed.Upscale(c.UserContext(), in.Reader)
		if err != nil {
			return err
		}
		return sendOutput(c, media, model.KindVideo, out)
	}
}

// AddMusic handles POST /api/editor/music (video + audio).
//
// @Summary Replace a video's soundtrack
// @Tags editor
// @Accept multipart/form-data
// @Produce video/mp4
// @Param video formData file true "Video"
// @Param audio formData file true "Audio"
// @Success 200 {file} file
// @Router /api/editor/music [post]
func AddMusic(ed MediaEditor, media service.MediaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		video, vCloser, err := requiredUpload(c, "video")
		if err != nil {
			return err
		}
		defer vCloser.Close()
		audio, aCloser, err := requiredUpload(c, "audio")
		if err != nil {
			return err
		}
		defer aCloser.Close()

		out, err := ed.AddMusic(c.UserContext(), video.Reader, audio.Reader)
		if err != nil {
			return err
		}
		return sendOutput(c, media, model.KindVideo, out)
	}
}
