package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mediavault/docs"
	"mediavault/internal/auth"
	"mediavault/internal/config"
	"mediavault/internal/database"
	"mediavault/internal/database/migration"
	"mediavault/internal/editor"
	"mediavault/internal/fetch"
	handlers "mediavault/internal/http/handler"
	"mediavault/internal/http/middleware"
	"mediavault/internal/logging"
	"mediavault/internal/otel"
	"mediavault/internal/repository/postgres"
	"mediavault/internal/service"
	"mediavault/internal/storage"
	"mediavault/internal/sweeper"
)

const shutdownTimeout = 15 * time.Second

// @title MediaVault API
// @version 1.0
// @BasePath /
func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.Log)
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid_config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal("tracing_init_failed", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("db_connect_failed", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := migration.EnsureMigrated(db, log, cfg.Database.Host); err != nil {
			log.Fatal("db_migration_failed", zap.Error(err))
		}
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("storage_init_failed", zap.Error(err), zap.String("backend", cfg.Storage.Backend))
	}

	mediaRepo := postgres.NewMediaPostgres(db)
	userRepo := postgres.NewUserPostgres(db)
	tokens := auth.NewManager(cfg.Auth)

	mediaSvc := service.NewMediaService(store, mediaRepo, log)
	userSvc := service.NewUserService(userRepo, tokens)

	ed := editor.New(cfg.Editor, log)
	if err := ed.Cleanup(); err != nil {
		log.Warn("editor_cleanup_failed", zap.Error(err))
	}

	sweep := sweeper.New(mediaRepo, store, cfg.Sweeper, log)
	if cfg.Sweeper.Enabled {
		if err := sweep.Start(ctx); err != nil {
			log.Fatal("sweeper_start_failed", zap.Error(err))
		}
	}

	metrics, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal("metrics_init_failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.BodyLimitMB << 20,
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || strings.HasPrefix(c.Path(), "/health")
	})))
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(metrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:      db,
		Auth:    cfg.Auth,
		Tokens:  tokens,
		Users:   userSvc,
		Media:   mediaSvc,
		Editor:  ed,
		Fetcher: fetch.New(cfg.Fetch, log),
		Storage: store,
		Log:     log,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("server_starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := app.Listen(addr); err != nil {
			log.Error("server_listen_failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("server_stopping")

	sweep.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("server_shutdown_failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing_shutdown_failed", zap.Error(err))
	}
	log.Info("server_stopped")
}
