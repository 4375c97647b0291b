package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/lab-booking/internal/application"
	"github.com/example/lab-booking/internal/booking"
	"github.com/example/lab-booking/internal/config"
	httptransport "github.com/example/lab-booking/internal/http"
	"github.com/example/lab-booking/internal/logging"
	"github.com/example/lab-booking/internal/notify"
	"github.com/example/lab-booking/internal/persistence/sqlite"
)

func main() {
	// A missing .env file is fine; real deployments configure through the
	// environment or a YAML file.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("LABBOOK_CONFIG"), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(os.Stdout, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := sqlite.Open(ctx, cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(ctx, pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	eventRepo := sqlite.NewEventRepository(pool)
	resourceRepo := sqlite.NewResourceRepository(pool)
	groupRepo := sqlite.NewGroupRepository(pool)
	userRepo := sqlite.NewUserRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)

	registry := notify.NewRegistry(0)
	var publisher notify.Publisher
	if cfg.AMQPURL != "" {
		publisher = notify.NewQueuePublisher(cfg.AMQPURL, cfg.AMQPQueue, logger)
	}
	dispatcher := notify.NewDispatcher(registry, publisher, logger)

	idGenerator := uuid.NewString

	eventService := application.NewEventService(application.EventServiceConfig{
		Events:      eventRepo,
		Resources:   resourceRepo,
		Notifier:    dispatcher,
		Policy:      booking.Policy{RequireReviewForValidatorMove: cfg.RequireReviewForValidatorMove},
		Logger:      logger,
		IDGenerator: idGenerator,
		CacheTTL:    cfg.OccupancyTTL,
	})
	resourceService := application.NewResourceService(resourceRepo, logger, idGenerator)
	groupService := application.NewGroupService(groupRepo, logger, idGenerator)
	userService := application.NewUserService(userRepo, logger, idGenerator)
	authService := application.NewAuthService(userRepo, sessionRepo, logger, idGenerator, nil, cfg.SessionTTL)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:      httptransport.NewAuthHandler(authService, logger),
		Events:    httptransport.NewEventHandler(eventService, logger),
		Resources: httptransport.NewResourceHandler(resourceService, logger),
		Groups:    httptransport.NewGroupHandler(groupService, logger),
		Users:     httptransport.NewUserHandler(userService, logger),
		Stream:    httptransport.NewStreamHandler(registry, logger),
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.URL.Path, "/login") {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	go purgeExpiredSessions(ctx, authService, logger)

	// No WriteTimeout: the event stream endpoint holds its response open
	// for the lifetime of the subscription.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("lab booking API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func purgeExpiredSessions(ctx context.Context, auth *application.AuthService, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := auth.PurgeExpiredSessions(ctx); err != nil {
				logger.Warn("failed to purge expired sessions", "error", err)
			}
		}
	}
}
