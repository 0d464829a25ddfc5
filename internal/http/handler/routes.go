package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mediavault/internal/config"
	"mediavault/internal/fetch"
	"mediavault/internal/http/middleware"
	"mediavault/internal/model"
	"mediavault/internal/service"
	"mediavault/internal/storage"
)

// LoginPath is where unauthenticated page requests are redirected.
const LoginPath = "/pages/login"

// Deps holds everything the routes are built from.
type Deps struct {
	DB      *sql.DB
	Auth    config.AuthConfig
	Tokens  middleware.TokenVerifier
	Users   service.UserService
	Media   service.MediaService
	Editor  MediaEditor
	Fetcher fetch.Fetcher
	Storage storage.Storage
	Log     *zap.Logger
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	requireAuth := middleware.RequireAuth(d.Tokens, d.Auth.AccessCookieName)

	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")

	users := api.Group("/users")
	users.Post("/register", RegisterUser(d.Users))
	users.Post("/login", LoginUser(d.Users, d.Auth))
	users.Post("/logout", LogoutUser(d.Auth))
	users.Post("/refresh", RefreshSession(d.Users, d.Auth))
	users.Get("/me", requireAuth, CurrentUser(d.Users))
	users.Put("/me/profile", requireAuth, UpdateProfile(d.Users))
	users.Get("", requireAuth, middleware.RequireRole(model.RoleAdmin), ListUsers(d.Users))

	for _, kind := range model.Kinds {
		g := api.Group("/"+kind.Plural(), requireAuth)
		if kind == model.KindVideo {
			g.Post("/download", DownloadVideo(d.Fetcher, d.Media, d.Log))
		}
		g.Post("", CreateMedia(d.Media, kind))
		g.Get("", ListMedia(d.Media, kind))
		g.Get("/:id", GetMedia(d.Media, kind))
		g.Put("/:id", UpdateMedia(d.Media, kind))
		g.Delete("/:id", DeleteMedia(d.Media, kind))
	}

	ed := api.Group("/editor", requireAuth)
	ed.Post("/trim", TrimVideo(d.Editor, d.Media))
	ed.Post("/trim-audio", TrimAudio(d.Editor, d.Media))
	ed.Post("/concat", ConcatVideos(d.Editor, d.Media))
	ed.Post("/filter", FilterVideo(d.Editor, d.Media))
	ed.Post("/upscale", UpscaleVideo(d.Editor, d.Media))
	ed.Post("/music", AddMusic(d.Editor, d.Media))

	for _, kind := range model.Kinds {
		path := "/" + kind.Dir() + "/:name"
		if kind == model.KindVideo {
			app.Get(path, middleware.RequirePage(d.Tokens, d.Auth.AccessCookieName, LoginPath), ServeMedia(d.Storage, kind))
			continue
		}
		app.Get(path, ServeMedia(d.Storage, kind))
	}
}
