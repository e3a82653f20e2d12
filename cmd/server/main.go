package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gipity/gipity-scaffold/docs"
	"github.com/gipity/gipity-scaffold/internal/cache"
	"github.com/gipity/gipity-scaffold/internal/config"
	"github.com/gipity/gipity-scaffold/internal/db"
	"github.com/gipity/gipity-scaffold/internal/handler"
	"github.com/gipity/gipity-scaffold/internal/identity"
	"github.com/gipity/gipity-scaffold/internal/logger"
	"github.com/gipity/gipity-scaffold/internal/notify"
	"github.com/gipity/gipity-scaffold/internal/repository"
	"github.com/gipity/gipity-scaffold/internal/router"
	"github.com/gipity/gipity-scaffold/internal/service"
	"github.com/gipity/gipity-scaffold/internal/storage"
)

// @title Gipity Notes API
// @version 1.0
// @description Notes backend with provider-managed authentication and per-user file storage.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}
	if cfg.DBAutoMigrate {
		if err := db.Migrate(gormDB); err != nil {
			log.Fatal().Err(err).Msg("auto-migrate")
		}
	}
	schema := db.DetectSchema(gormDB)
	if !schema.UserNames {
		log.Warn().Msg("users table has no name columns, profile names will not be stored")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, log)
	defer cacheClient.Close()

	ctx := context.Background()
	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:       cfg.S3Endpoint,
		Region:         cfg.S3Region,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		ForcePathStyle: cfg.S3ForcePathStyle,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("object store init")
	}

	provider := identity.NewGoTrueClient(cfg.AuthURL, cfg.AuthAnonKey, cfg.AuthServiceRoleKey, 15*time.Second)

	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if cfg.MailEnabled() {
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB, schema)
	noteRepo := repository.NewNoteRepository(gormDB)

	// Initialize services
	userService := service.NewUserService(userRepo, cacheClient, cfg.UserCacheTTL)
	authService := service.NewAuthService(provider, userService, userRepo, notifier, cfg.PasswordResetURL, log)
	fileService := service.NewFileService(store, cfg.NotesBucket, cfg.StorageBuckets)
	noteService := service.NewNoteService(noteRepo, fileService, cfg.NotesBucket, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	router.Register(
		e,
		cfg,
		log,
		cacheClient,
		authService,
		handler.NewAuthHandler(authService, userService),
		handler.NewNoteHandler(noteService),
		handler.NewFileHandler(fileService),
		handler.NewAdminHandler(userService),
	)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "http://"), "https://")
	}

	addr := ":" + cfg.ServerPort
	go func() {
		log.Info().Str("addr", addr).Str("swagger", "/swagger/index.html").Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("server stopped")
}
