package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"mediavault/internal/auth"
	"mediavault/internal/config"
	"mediavault/internal/editor"
	"mediavault/internal/fetch"
	"mediavault/internal/http/middleware"
	"mediavault/internal/model"
	"mediavault/internal/service"
	serviceMocks "mediavault/internal/service/mocks"
)

const testUserID int64 = 7

// newTestApp returns an app whose requests are authenticated as testUserID.
func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.IdentityLocalKey, &auth.Identity{ID: testUserID, Email: "u@x.io", Role: model.RoleUser})
		return c.Next()
	})
	return app
}

type formFile struct {
	field, name, content string
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func decode(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

func strPtr(s string) *string { return &s }

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Code)
		assert.False(t, body.Success)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{name: "validation", err: &service.ValidationError{Field: "title", Message: "title is required"}, status: 400, code: "VALIDATION_ERROR", message: "title is required"},
		{name: "not found", err: fmt.Errorf("get: %w", service.ErrNotFound), status: 404, code: "NOT_FOUND", message: "Resource not found"},
		{name: "forbidden", err: service.ErrForbidden, status: 403, code: "FORBIDDEN"},
		{name: "email taken", err: service.ErrEmailTaken, status: 409, code: "CONFLICT", message: "Email already used"},
		{name: "concurrent update", err: fmt.Errorf("update: %w", service.ErrConflict), status: 409, code: "CONFLICT", message: "Resource was modified concurrently, retry the request"},
		{name: "bad credentials", err: service.ErrInvalidCredentials, status: 401, code: "UNAUTHORIZED", message: "Invalid credentials"},
		{name: "fiber error", err: fiber.NewError(fiber.StatusUnauthorized, "Authentication required"), status: 401, code: "UNAUTHORIZED", message: "Authentication required"},
		{name: "editor input", err: editor.ErrNoRanges, status: 400, code: "VALIDATION_ERROR"},
		{name: "empty output", err: editor.ErrEmptyOutput, status: 500, code: "INTERNAL_ERROR", message: "Output file is empty"},
		{name: "engine failure", err: &editor.OperationError{Op: "upscale", Err: errors.New("exit status 1")}, status: 500, code: "EDITOR_FAILED", message: "upscale failed"},
		{name: "remote too large", err: fmt.Errorf("upload to storage: %w", fetch.ErrTooLarge), status: 413, code: "PAYLOAD_TOO_LARGE"},
		{name: "internal", err: errors.New("pq: connection refused"), status: 500, code: "INTERNAL_ERROR", message: "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
			app.Get("/boom", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body errorPayload
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
		})
	}
}

func TestErrorHandler_LogsInternalCause(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.New(core))})
	app.Use(middleware.RequestID())
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("disk on fire") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(body), "disk on fire")
	assert.Contains(t, string(body), "req-123")

	entries := logs.FilterMessage("request_failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "disk on fire", entries[0].ContextMap()["error"])
}

func TestCreateMedia(t *testing.T) {
	mockSvc := new(serviceMocks.MockMediaService)
	app := newTestApp()
	app.Post("/api/videos", CreateMedia(mockSvc, model.KindVideo))

	t.Run("file upload", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"title": "Demo"}, formFile{"video", "clip.mp4", "bytes"})

		stored := &model.Media{ID: 1, Kind: model.KindVideo, Title: "Demo", File: strPtr("1700000000000-clip.mp4"), UserID: testUserID}
		mockSvc.On("Create", mock.Anything, mock.MatchedBy(func(in service.CreateMediaInput) bool {
			return in.Kind == model.KindVideo && in.Title == "Demo" && in.UserID == testUserID &&
				in.File != nil && in.File.Filename == "clip.mp4" && in.File.Size == 5 && in.URL == ""
		})).Return(stored, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/videos", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		res := decode(t, resp.Body)
		assert.Equal(t, true, res["success"])
		video := res["video"].(map[string]any)
		assert.Equal(t, "/videos/1700000000000-clip.mp4", video["video_url"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("url link", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"title": "Link", "videoUrl": "https://example.com/v.mp4"})

		mockSvc.On("Create", mock.Anything, mock.MatchedBy(func(in service.CreateMediaInput) bool {
			return in.File == nil && in.URL == "https://example.com/v.mp4"
		})).Return(&model.Media{ID: 2, Kind: model.KindVideo, URL: strPtr("https://example.com/v.mp4")}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/videos", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("validation error", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"title": "Nothing"})

		mockSvc.On("Create", mock.Anything, mock.Anything).Return(nil, &service.ValidationError{
			Field:   "video",
			Message: "Either a video file or a video URL must be provided.",
		}).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/videos", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "Either a video file or a video URL must be provided.", res.Message)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"title": "Demo"}, formFile{"video", "clip.mp4", "x"})
		mockSvc.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db save failed")).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/videos", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestListMedia(t *testing.T) {
	mockSvc := new(serviceMocks.MockMediaService)
	app := newTestApp()
	app.Get("/api/pictures", ListMedia(mockSvc, model.KindPicture))

	t.Run("mine", func(t *testing.T) {
		res := &service.MediaListResult{
			Items: []model.Media{{ID: 4, Kind: model.KindPicture, Title: "Cat"}},
			Total: 1,
		}
		mockSvc.On("List", mock.Anything, model.KindPicture, service.ListMediaInput{Limit: 5, Offset: 0, UserID: testUserID}).
			Return(res, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/pictures?limit=5&mine=true", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp.Body)
		assert.Len(t, body["pictures"], 1)
		assert.EqualValues(t, 1, body["total"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("everyone", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, model.KindPicture, service.ListMediaInput{Limit: 10, Offset: 20}).
			Return(&service.MediaListResult{Items: []model.Media{}}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/pictures?offset=20", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/pictures?limit=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_LIMIT", body.Code)
	})
}

func TestGetMedia(t *testing.T) {
	mockSvc := new(serviceMocks.MockMediaService)
	app := newTestApp()
	app.Get("/api/audios/:id", GetMedia(mockSvc, model.KindAudio))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, model.KindAudio, int64(3)).
			Return(&model.Media{ID: 3, Kind: model.KindAudio, File: strPtr("1-song.mp3")}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/audios/3", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp.Body)
		assert.Equal(t, "/audios/1-song.mp3", body["audio"].(map[string]any)["audio_url"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, model.KindAudio, int64(9)).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/audios/9", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/audios/abc", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_ID", res.Code)
	})
}

func TestUpdateMedia(t *testing.T) {
	mockSvc := new(serviceMocks.MockMediaService)
	app := newTestApp()
	app.Put("/api/files/:id", UpdateMedia(mockSvc, model.KindFile))

	t.Run("title only", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"title": "Renamed"})

		mockSvc.On("Update", mock.Anything, mock.MatchedBy(func(in service.UpdateMediaInput) bool {
			return in.ID == 5 && in.UserID == testUserID && in.Kind == model.KindFile &&
				in.Title != nil && *in.Title == "Renamed" &&
				in.Description == nil && in.URL == nil && in.File == nil
		})).Return(&model.Media{ID: 5, Kind: model.KindFile, Title: "Renamed"}, nil).Once()

		req := httptest.NewRequest(http.MethodPut, "/api/files/5", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		res := decode(t, resp.Body)
		assert.Equal(t, "Renamed", res["file"].(map[string]any)["title"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("replace file", func(t *testing.T) {
		body, ct := multipartBody(t, nil, formFile{"file", "report v2.pdf", "%PDF"})

		mockSvc.On("Update", mock.Anything, mock.MatchedBy(func(in service.UpdateMediaInput) bool {
			return in.File != nil && in.File.Filename == "report v2.pdf" && in.Title == nil
		})).Return(&model.Media{ID: 5, Kind: model.KindFile, File: strPtr("1-report-v2.pdf")}, nil).Once()

		req := httptest.NewRequest(http.MethodPut, "/api/files/5", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		res := decode(t, resp.Body)
		assert.Equal(t, "/documents/1-report-v2.pdf", res["file"].(map[string]any)["file_url"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("not owner", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"title": "Mine now"})
		mockSvc.On("Update", mock.Anything, mock.Anything).Return(nil, service.ErrForbidden).Once()

		req := httptest.NewRequest(http.MethodPut, "/api/files/6", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDeleteMedia(t *testing.T) {
	mockSvc := new(serviceMocks.MockMediaService)
	app := newTestApp()
	app.Delete("/api/videos/:id", DeleteMedia(mockSvc, model.KindVideo))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, model.KindVideo, int64(1), testUserID).Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/videos/1", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp.Body)
		assert.Equal(t, "Video deleted successfully", body["message"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, model.KindVideo, int64(2), testUserID).Return(service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/videos/2", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("forbidden", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, model.KindVideo, int64(3), testUserID).Return(service.ErrForbidden).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/videos/3", nil))

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestRouting(t *testing.T) {
	authCfg := config.AuthConfig{
		AccessSecret:      "access",
		RefreshSecret:     "refresh",
		AccessTTL:         time.Minute,
		RefreshTTL:        time.Hour,
		AccessCookieName:  "accessToken",
		RefreshCookieName: "refreshToken",
	}
	tokens := auth.NewManager(authCfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(zap.NewNop()),
	})
	mockUsers := new(serviceMocks.MockUserService)
	RegisterRoutes(app, Deps{
		Auth:   authCfg,
		Tokens: tokens,
		Users:  mockUsers,
		Media:  new(serviceMocks.MockMediaService),
	})

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Code)
	})

	t.Run("api requires auth", func(t *testing.T) {
		for _, kind := range model.Kinds {
			req := httptest.NewRequest(http.MethodGet, "/api/"+kind.Plural(), nil)
			resp, _ := app.Test(req)

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, kind)
			var res errorPayload
			json.NewDecoder(resp.Body).Decode(&res)
			assert.Equal(t, "Authentication required", res.Message)
		}
	})

	t.Run("protected videos redirect to login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/videos/1-clip.mp4", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/pages/login?error=unauthorized", resp.Header.Get("Location"))
	})

	t.Run("admin only user list", func(t *testing.T) {
		pair, err := tokens.Issue(auth.Identity{ID: 1, Email: "u@x.io", Role: model.RoleUser})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.Header.Set("Cookie", "accessToken="+pair.Access)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("register is public", func(t *testing.T) {
		mockUsers.On("Register", mock.Anything, service.RegisterInput{Name: "Ann", Email: "ann@x.io", Password: "pw1"}).
			Return(&model.User{ID: 2, Name: "Ann", Email: "ann@x.io"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/users/register",
			bytes.NewBufferString(`{"name":"Ann","email":"ann@x.io","password":"pw1"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockUsers.AssertExpectations(t)
	})
}
