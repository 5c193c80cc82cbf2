package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"timeroom/internal/attendance"
	"timeroom/internal/attendance/handler"
	"timeroom/internal/attendance/service"
	pgstore "timeroom/internal/attendance/store/postgres"
	"timeroom/internal/broadcast"
	"timeroom/internal/notify"
	"timeroom/internal/pipeline"
	"timeroom/internal/platform/config"
	"timeroom/internal/platform/httpserver"
	"timeroom/internal/platform/logger"
	"timeroom/internal/platform/metrics"
	"timeroom/internal/platform/middleware"
	"timeroom/internal/platform/postgres"
	platformredis "timeroom/internal/platform/redis"
	"timeroom/internal/reader"
)

// main wires dependencies and owns the process lifecycle. Domain logic lives
// in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Store: postgres when configured, otherwise an in-memory store seeded
	// with one area per antenna port for development runs.
	var store attendance.Store
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = pgstore.New(db)
		log.Info("using postgres store")
	} else {
		memStore := attendance.NewInMemoryStore()
		for port := 1; port <= 4; port++ {
			memStore.SeedLocation(attendance.Location{
				ID:          port,
				AntennaPort: port,
				AreaName:    fmt.Sprintf("Area %d", port),
			})
		}
		store = memStore
		log.Warn("DATABASE_URL not set, using in-memory store")
	}

	// Debounce state: Redis survives restarts; memory is the default.
	redisClient, redisErr := platformredis.New(cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}
	debouncer := newDebouncer(redisClient, redisErr, cfg.DebounceWindow, log)

	var notifier notify.Notifier
	if cfg.FonnteToken != "" && cfg.WhatsAppPhone != "" {
		notifier = notify.NewFonnteClient(cfg.FonnteToken, cfg.WhatsAppPhone)
	} else {
		notifier = notify.NewNoopNotifier(log)
	}

	svc := service.New(store, cfg.MinDwell)
	hub := broadcast.NewHub(svc, m, log)
	aggregator := notify.NewAggregator(notifier, m, log, cfg.NotifyInterval)
	readerClient := reader.NewClient(cfg.ReaderURL, cfg.PollTimeout)

	monitor := pipeline.NewMonitor(readerClient, debouncer, svc, hub, aggregator, m, log, pipeline.Config{
		PollInterval:         cfg.PollInterval,
		PollBackoff:          cfg.PollBackoff,
		SweepInterval:        cfg.DebounceSweepInterval,
		BroadcastUnknownTags: cfg.BroadcastUnknownTags,
	})

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestLogger(log))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	apiHandler := handler.New(svc, debouncer, hub, log)
	apiHandler.Register(router)
	router.Handle("/ws", hub.Handler())
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return monitor.Run(ctx) })
	group.Go(func() error { return monitor.RunSweeper(ctx) })
	group.Go(func() error { return aggregator.Run(ctx) })
	group.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// newDebouncer prefers Redis-backed debounce state when configured. Redis is
// an optimization, not a dependency: when it is unreachable the server starts
// anyway on the in-process map, losing only restart continuity. The store is
// the sole fatal startup condition.
func newDebouncer(client *platformredis.Client, err error, window time.Duration, log *slog.Logger) pipeline.Debouncer {
	if err != nil {
		log.Warn("redis unavailable, using in-memory debounce store", "error", err)
		return pipeline.NewMemoryDebouncer(window)
	}
	if client == nil {
		return pipeline.NewMemoryDebouncer(window)
	}
	log.Info("using redis debounce store")
	return pipeline.NewRedisDebouncer(client.Client, window)
}
