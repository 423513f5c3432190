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

	"github.com/gin-gonic/gin"

	"uturn/internal/api"
	"uturn/internal/api/ws"
	"uturn/internal/config"
	"uturn/internal/domain/entities"
	"uturn/internal/filestore"
	"uturn/internal/logger"
	"uturn/internal/notify"
	"uturn/internal/repository/memory"
	"uturn/internal/repository/postgres"
	"uturn/internal/services"
)

func main() {
	// 1. Load configuration
	cfg := config.Load()

	// 2. Initialize logger
	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", logger.Error(err))
		os.Exit(1)
	}

	ctx := context.Background()

	// 3. Initialize repositories
	repos, closeStorage, err := buildRepositories(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize storage", logger.Error(err))
		os.Exit(1)
	}
	defer closeStorage()

	lockManager := memory.NewLockManager(time.Minute)
	defer lockManager.Stop()

	// 4. Initialize file storage and notification channels
	files, err := buildFileStore(ctx, cfg)
	if err != nil {
		log.Error("Failed to initialize file storage", logger.Error(err))
		os.Exit(1)
	}
	notifier, closeNotifier, err := buildNotifier(cfg, log)
	if err != nil {
		log.Error("Failed to initialize notifications", logger.Error(err))
		os.Exit(1)
	}
	defer closeNotifier()

	// 5. Initialize services
	notificationService := services.NewNotificationService(notifier, log)
	availabilityService := services.NewAvailabilityService(repos, lockManager, cfg.Scheduling, log)
	commissionService := services.NewCommissionService(repos, notificationService, log)
	tripService := services.NewTripService(repos, availabilityService, commissionService, notificationService, files, cfg, log)
	driverService := services.NewDriverService(repos.Drivers)

	hub := ws.NewHub(log)
	tripService.SetObserver(hub)

	// 6. Setup router
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.MaxMultipartMemory = cfg.Server.MaxUploadBytes
	router := api.NewRouter(cfg, tripService, driverService, hub, log)
	router.Setup(engine)
	if mem, ok := files.(*filestore.MemoryStore); ok {
		serveMemoryFiles(engine, mem)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 7. Start server
	go func() {
		log.Info("Starting UTurn server",
			logger.String("addr", cfg.Server.Port),
			logger.String("storage", cfg.Storage.Backend),
			logger.String("files", cfg.Files.Backend),
			logger.Bool("auth_bypass", cfg.Auth.Bypass),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", logger.Error(err))
			os.Exit(1)
		}
	}()

	// 8. Graceful shutdown listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("Shutting down...")
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", logger.Error(err))
	}
}

func buildRepositories(ctx context.Context, cfg *config.Config, log logger.Logger) (services.Repositories, func(), error) {
	if cfg.Storage.Backend != config.BackendPostgres {
		return services.Repositories{
			Bookings:  memory.NewJobRepository(),
			SoloRides: memory.NewJobRepository(),
			Drivers:   memory.NewDriverRepository(),
		}, func() {}, nil
	}

	pool, err := postgres.New(ctx, cfg.Storage, log)
	if err != nil {
		return services.Repositories{}, nil, err
	}
	bookings, err := postgres.NewJobRepository(pool, entities.JobKindBooking, log)
	if err != nil {
		pool.Close()
		return services.Repositories{}, nil, err
	}
	soloRides, err := postgres.NewJobRepository(pool, entities.JobKindSolo, log)
	if err != nil {
		pool.Close()
		return services.Repositories{}, nil, err
	}
	return services.Repositories{
		Bookings:  bookings,
		SoloRides: soloRides,
		Drivers:   postgres.NewDriverRepository(pool, log),
	}, pool.Close, nil
}

func buildFileStore(ctx context.Context, cfg *config.Config) (filestore.Store, error) {
	if cfg.Files.Backend != config.BackendS3 {
		return filestore.NewMemoryStore(cfg.Files.PublicBaseURL), nil
	}
	client, err := filestore.NewS3Client(ctx, cfg.Files.Region)
	if err != nil {
		return nil, err
	}
	return filestore.NewS3Store(client, cfg.Files.Bucket, cfg.Files.PublicBaseURL), nil
}

// buildNotifier always logs notifications, and also publishes them to the
// broker and alerts ops on Telegram when those are configured.
func buildNotifier(cfg *config.Config, log logger.Logger) (notify.Notifier, func(), error) {
	notifiers := notify.Multi{notify.NewLogNotifier(log)}
	closers := []func(){}

	if cfg.Messaging.AMQPURL != "" {
		publisher, err := notify.DialAMQP(cfg.Messaging.AMQPURL, cfg.Messaging.AMQPExchange, cfg.Messaging.PublishTimeout, log)
		if err != nil {
			return nil, nil, err
		}
		notifiers = append(notifiers, publisher)
		closers = append(closers, func() {
			if err := publisher.Close(); err != nil {
				log.Warn("Failed to close broker connection", logger.Error(err))
			}
		})
	}

	if cfg.Messaging.TelegramToken != "" {
		bot, err := notify.NewTelegramBot(cfg.Messaging.TelegramToken)
		if err != nil {
			return nil, nil, err
		}
		notifiers = append(notifiers, notify.NewTelegramNotifier(bot, cfg.Messaging.TelegramOpsChat))
	}

	return notifiers, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

// serveMemoryFiles exposes in-memory uploads under /files so the URLs the
// memory store hands out resolve in development.
func serveMemoryFiles(engine *gin.Engine, store *filestore.MemoryStore) {
	engine.GET("/files/*key", func(c *gin.Context) {
		obj, ok := store.Get(strings.TrimPrefix(c.Param("key"), "/"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.Data(http.StatusOK, obj.ContentType, obj.Data)
	})
}
