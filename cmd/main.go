package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/attachments"
	"github.com/ukydev/maintenance-hub/internal/auth"
	"github.com/ukydev/maintenance-hub/internal/config"
	"github.com/ukydev/maintenance-hub/internal/db"
	"github.com/ukydev/maintenance-hub/internal/handlers"
	"github.com/ukydev/maintenance-hub/internal/maintenance"
	"github.com/ukydev/maintenance-hub/internal/middleware"
	"github.com/ukydev/maintenance-hub/internal/models"
	"github.com/ukydev/maintenance-hub/internal/notify"
	"github.com/ukydev/maintenance-hub/internal/ratelimit"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	cfg.Log.ConfigureLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
	log.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()
	log.WithField("database", cfg.Mongo.Database).Info("Connected to MongoDB")

	store := db.NewStore(client.Database(cfg.Mongo.Database))
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	authService, err := auth.NewService(cfg.Auth)
	if err != nil {
		return err
	}
	if err := seedAdmin(ctx, store.Users, authService, cfg.Auth); err != nil {
		return err
	}

	limiter, closeLimiter := newLimiter(ctx, cfg)
	defer closeLimiter()

	notifier, closeNotifier, err := notify.FromConfig(cfg)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(notifier, 0)
	defer closeNotifier()
	defer dispatcher.Wait()

	service := maintenance.NewService(maintenance.Deps{
		Requests:  store.Requests,
		Counter:   store.Counters,
		Equipment: store.Equipment,
		Users:     store.Users,
		Teams:     store.Teams,
		Notifier:  dispatcher,
	})

	var files attachments.Store
	if cfg.S3.Enabled {
		s3Store, err := attachments.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return err
		}
		files = s3Store
		log.WithField("bucket", cfg.S3.Bucket).Info("Attachment storage enabled")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newAPI(cfg, store, authService, service, files, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.RequestTimeout,
		WriteTimeout:      cfg.Server.RequestTimeout,
		IdleTimeout:       2 * cfg.Server.RequestTimeout,
	}
	return serve(ctx, srv, cfg.Server.ShutdownTimeout)
}

// newAPI wires the HTTP handlers over the store and services.
func newAPI(cfg *config.Config, store *db.Store, authService *auth.Service, service *maintenance.Service, files attachments.Store, limiter ratelimit.Limiter) http.Handler {
	router := handlers.NewRouter(handlers.Router{
		Auth:           handlers.NewAuthHandler(authService, store.Users),
		Requests:       handlers.NewRequestHandler(service, files),
		Workshops:      handlers.NewWorkshopHandler(store.Workshops),
		Teams:          handlers.NewTeamHandler(store.Teams, store.Workshops, service),
		Equipment:      handlers.NewEquipmentHandler(store.Equipment, store.Workshops, store.Teams, service),
		Technicians:    handlers.NewTechnicianHandler(store.Users, store.Teams, authService),
		Health:         handlers.NewHealthHandler(store),
		AuthMiddleware: middleware.NewAuthMiddleware(authService),
		Limiter:        limiter,
	})
	return middleware.NewCORS(cfg.Server)(router)
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newLimiter uses Redis when enabled and reachable so limits hold across
// instances, and the in-process limiter otherwise.
func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func()) {
	memory := func() (ratelimit.Limiter, func()) {
		return ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window), func() {}
	}
	if !cfg.Redis.Enabled {
		return memory()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).WithField("addr", cfg.Redis.Addr).Warn("Redis unavailable, rate limiting per instance")
		_ = client.Close()
		return memory()
	}
	log.WithField("addr", cfg.Redis.Addr).Info("Rate limiting backed by Redis")
	closeClient := func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("Failed to close Redis client")
		}
	}
	return ratelimit.NewRedisLimiter(client, "maintenance-hub:ratelimit", cfg.RateLimit.Requests, cfg.RateLimit.Window), closeClient
}

// seedAdmin creates the bootstrap administrator when a password is
// configured and no user has the admin username yet.
func seedAdmin(ctx context.Context, users db.UserCollection, authService *auth.Service, cfg config.AuthConfig) error {
	if cfg.AdminPassword == "" {
		return nil
	}
	_, err := users.FindUserByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("look up admin user: %w", err)
	}
	if err := authService.ValidatePassword(cfg.AdminPassword); err != nil {
		return fmt.Errorf("admin password: %w", err)
	}
	hash, err := authService.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin := models.User{
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Administrator",
		Role:         models.RoleAdmin,
		Skills:       []string{},
	}
	if err := users.InsertUser(ctx, admin); err != nil {
		if errors.Is(err, db.ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("create admin user: %w", err)
	}
	log.WithField("username", cfg.AdminUsername).Info("Created bootstrap admin user")
	return nil
}
