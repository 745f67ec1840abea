package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/calendar-bridge/internal/application"
	"github.com/example/calendar-bridge/internal/config"
	"github.com/example/calendar-bridge/internal/events"
	httptransport "github.com/example/calendar-bridge/internal/http"
	"github.com/example/calendar-bridge/internal/persistence"
	"github.com/example/calendar-bridge/internal/persistence/memory"
	"github.com/example/calendar-bridge/internal/persistence/sqlite"
	"github.com/example/calendar-bridge/internal/provider"
	"github.com/example/calendar-bridge/internal/sync"
)

// storage is the set of repositories a backend must provide.
type storage interface {
	persistence.ConnectionRepository
	persistence.EventRepository
	persistence.SyncJobRepository
	io.Closer
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := openStorage(cfg)
	if err != nil {
		logger.Error("failed to open storage", "error", err, "backend", cfg.Storage)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	idGenerator := uuid.NewString
	now := time.Now

	bus := events.NewBus()
	defer bus.Close()

	registry := provider.NewRegistry(provider.DefaultCatalogue(), bus, now)
	adapter := provider.NewSimulatedAdapter(idGenerator, now)

	orchestrator := sync.NewOrchestrator(sync.OrchestratorConfig{
		Connections: store,
		Events:      store,
		Jobs:        store,
		Adapter:     adapter,
		Bus:         bus,
		Logger:      logger,
		IDGenerator: idGenerator,
		Now:         now,
	})
	defer orchestrator.Shutdown()

	connectionService := application.NewConnectionService(application.ConnectionServiceConfig{
		Connections: store,
		Events:      store,
		Providers:   registry,
		Syncs:       orchestrator,
		Bus:         bus,
		Policy: application.DomainPolicy{
			Allowed: cfg.AllowedDomains,
			Blocked: cfg.BlockedDomains,
		},
		MaxConnections:      cfg.MaxConnections,
		DefaultSyncInterval: cfg.SyncInterval,
		IDGenerator:         idGenerator,
		Now:                 now,
		Logger:              logger,
	})
	eventService := application.NewEventService(application.EventServiceConfig{
		Events:      store,
		Connections: store,
		Adapter:     adapter,
		Bus:         bus,
		MaxDuration: cfg.MaxEventDuration,
		IDGenerator: idGenerator,
		Now:         now,
		Logger:      logger,
	})
	availabilityService := application.NewAvailabilityService(store, store, logger)
	healthService := application.NewHealthService(registry, store, store, cfg.FailedJobThreshold, now, logger)

	go orchestrator.Run(ctx, cfg.SyncInterval)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Connections:  httptransport.NewConnectionHandler(connectionService, logger),
		Events:       httptransport.NewEventHandler(eventService, logger),
		Availability: httptransport.NewAvailabilityHandler(availabilityService, logger),
		Sync:         httptransport.NewSyncHandler(orchestrator, logger),
		Health:       httptransport.NewHealthHandler(healthService, logger),
		Stream:       httptransport.NewStreamHandler(bus, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
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

	logger.Info("calendar bridge API listening", "addr", server.Addr, "storage", cfg.Storage)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func openStorage(cfg config.Config) (storage, error) {
	switch cfg.Storage {
	case "sqlite":
		return sqlite.Open(cfg.SQLiteDSN)
	default:
		return memoryStorage{memory.NewStore()}, nil
	}
}

// memoryStorage adds the Closer the storage interface expects.
type memoryStorage struct {
	*memory.Store
}

func (memoryStorage) Close() error { return nil }
