package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/terra-clan/course-engine/internal/api"
	"github.com/terra-clan/course-engine/internal/auth"
	"github.com/terra-clan/course-engine/internal/cache"
	"github.com/terra-clan/course-engine/internal/catalog"
	"github.com/terra-clan/course-engine/internal/cleanup"
	"github.com/terra-clan/course-engine/internal/config"
	"github.com/terra-clan/course-engine/internal/content"
	"github.com/terra-clan/course-engine/internal/health"
	"github.com/terra-clan/course-engine/internal/i18n"
	"github.com/terra-clan/course-engine/internal/notify"
	"github.com/terra-clan/course-engine/internal/progress"
	"github.com/terra-clan/course-engine/internal/seed"
	"github.com/terra-clan/course-engine/internal/storage"
	"github.com/terra-clan/course-engine/internal/upload"
	"github.com/terra-clan/course-engine/internal/validation"
	"github.com/terra-clan/course-engine/migrations"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before the environment is read")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	slog.Info("starting course-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"upload", cfg.Upload.Provider,
		"email", cfg.Email.Provider,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	checks := health.NewRegistry(2 * time.Second)

	repo, err := openRepository(initCtx, cfg.Database)
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	checks.Register("database", health.CheckerFunc(repo.Ping))

	var views cache.ViewCache = cache.Nop{}
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(initCtx, cache.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.ViewTTL,
		})
		if err != nil {
			// reads fall back to building views from storage
			slog.Warn("view cache unavailable, continuing without it", "error", err)
		} else {
			defer rc.Close()
			views = rc
			checks.Register("redis", health.CheckerFunc(rc.HealthCheck))
		}
	}

	files, closeFiles, err := newFileStorage(initCtx, cfg.Upload)
	if err != nil {
		slog.Error("failed to create file storage", "error", err)
		os.Exit(1)
	}
	defer closeFiles()

	mailer, err := newMailer(cfg.Email)
	if err != nil {
		slog.Error("failed to create mailer", "error", err)
		os.Exit(1)
	}
	notifier := notify.NewEnrollmentNotifier(repo, mailer, cfg.Email.AppName)

	tokens, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		slog.Error("failed to create token issuer", "error", err)
		os.Exit(1)
	}

	messages, err := i18n.NewCatalog()
	if err != nil {
		slog.Error("failed to build message catalog", "error", err)
		os.Exit(1)
	}

	v := validation.New()
	courses := catalog.NewService(repo, v, files, views)
	hierarchy := content.NewManager(repo, v, views)
	tracker := progress.NewTracker(repo, repo, progress.WithNotifier(notifier))

	if cfg.Seed.Dir != "" {
		seedFiles, err := seed.LoadDir(cfg.Seed.Dir)
		if err != nil {
			slog.Warn("failed to load seed files", "dir", cfg.Seed.Dir, "error", err)
		} else if _, err := seed.NewSeeder(repo, courses, hierarchy).Apply(initCtx, seedFiles); err != nil {
			slog.Error("failed to apply seed files", "error", err)
			os.Exit(1)
		}
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sweeper *cleanup.Sweeper
	if cfg.Sweeper.Enabled {
		sweeper = cleanup.NewSweeper(repo, cfg.Sweeper.Schedule)
		if err := sweeper.Start(ctx); err != nil {
			slog.Error("failed to start orphan sweeper", "error", err)
			os.Exit(1)
		}
	}

	// Setup HTTP server
	server := api.NewServer(cfg.Server, api.Services{
		Courses:  courses,
		Reader:   catalog.NewReader(repo, views),
		Content:  hierarchy,
		Progress: tracker,
		Health:   checks,
	}, tokens, messages)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()
	if sweeper != nil {
		sweeper.Stop()
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Let pending enrollment e-mails finish
	notifier.Wait()

	slog.Info("course-engine stopped")
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openRepository returns the in-memory store for DSN "memory" and a
// migrated PostgreSQL repository otherwise.
func openRepository(ctx context.Context, cfg config.DatabaseConfig) (storage.Repository, error) {
	if cfg.UsesMemory() {
		slog.Warn("using in-memory storage; data is lost on restart")
		return storage.NewMemoryRepository(), nil
	}

	if cfg.CreateIfMissing {
		if err := storage.EnsureDatabase(ctx, cfg.DSN); err != nil {
			return nil, err
		}
	}

	repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{
		DSN:          cfg.DSN,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
		MaxLifetime:  cfg.MaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("database connected successfully")

	slog.Info("running database migrations", "dir", cfg.MigrationsDir)
	if err := storage.RunMigrations(ctx, repo.Pool(), storage.MigrationSource(cfg.MigrationsDir, migrations.FS)); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func newFileStorage(ctx context.Context, cfg config.UploadConfig) (upload.Storage, func(), error) {
	switch cfg.Provider {
	case "bunny":
		s, err := upload.NewBunnyStorage(upload.BunnyConfig{
			StorageZone: cfg.Bunny.StorageZone,
			AccessKey:   cfg.Bunny.AccessKey,
			Endpoint:    cfg.Bunny.Endpoint,
			PublicBase:  cfg.Bunny.PublicBase,
			Retries:     cfg.Bunny.Retries,
			Timeout:     cfg.Bunny.Timeout,
		})
		return s, func() {}, err
	case "gcs":
		s, err := upload.NewGCSStorage(ctx, upload.GCSConfig{
			Bucket:          cfg.GCS.Bucket,
			PublicBase:      cfg.GCS.PublicBase,
			CredentialsFile: cfg.GCS.CredentialsFile,
		})
		if err != nil {
			return nil, func() {}, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Error("failed to close gcs client", "error", err)
			}
		}, nil
	default:
		slog.Warn("file uploads disabled; course images must be given as URLs")
		return upload.Noop{}, func() {}, nil
	}
}

func newMailer(cfg config.EmailConfig) (notify.Mailer, error) {
	if cfg.Provider != "sendgrid" {
		return notify.NewConsoleMailer(), nil
	}
	return notify.NewSendgridMailer(notify.SendgridConfig{
		APIKey:  cfg.SendgridKey,
		From:    mail.Address{Name: cfg.FromName, Address: cfg.FromAddress},
		AppName: cfg.AppName,
	})
}
