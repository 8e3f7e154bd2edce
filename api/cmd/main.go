package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/admission"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/store"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/config"
	rediscache "github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/caching/redis"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/db/memory"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/db/postgres"
	rabbitpub "github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/stats"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/metrics"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/handlers"
	authmw "github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/router"
	"github.com/baechuer/real-time-ressys/services/ewm-service/migrations"
)

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now().UTC() }

// storage is what both store drivers provide.
type storage interface {
	event.EventRepo
	admission.RequestRepo
	store.Directory
	handlers.Pinger
}

// App holds all dependencies for the service.
type App struct {
	Config *config.Config
	Server *http.Server

	DB        *sql.DB
	Cache     *rediscache.Client
	Publisher *rabbitpub.Publisher
	Stats     *stats.Client
}

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config load failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("app init failed")
	}
	defer app.Close()

	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreDriver).Msg("listening")
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		zlog.Info().Msg("shutdown signal received")
	case err := <-errCh:
		zlog.Error().Err(err).Msg("server crashed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	// 1) Storage
	var st storage
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := openDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		app.DB = db
		repo := postgres.New(db, postgres.WithRetryPolicy(postgres.RetryPolicy{
			MaxRetries:   cfg.DBRetryAttempts,
			InitialDelay: cfg.DBRetryBaseDelay,
			MaxDelay:     time.Second,
		}))
		st = repo

		if cfg.OutboxEnabled && cfg.RabbitURL != "" {
			p, err := rabbitpub.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange, cfg.RabbitConfirmWait)
			if err != nil {
				app.Close()
				return nil, err
			}
			app.Publisher = p
			repo.StartOutboxWorker(ctx, p, cfg.OutboxInterval)
			zlog.Info().Str("exchange", cfg.RabbitExchange).Msg("outbox relay ready")
		} else {
			zlog.Warn().Msg("outbox relay disabled: domain events stay in event_outbox")
		}
	case config.StoreMemory:
		mem := memory.New()
		for i := 1; i <= cfg.MemorySeedUsers; i++ {
			mem.AddUser(int64(i))
		}
		for i := 1; i <= cfg.MemorySeedCategories; i++ {
			mem.AddCategory(int64(i))
		}
		st = mem
		zlog.Warn().Int("users", cfg.MemorySeedUsers).Int("categories", cfg.MemorySeedCategories).
			Msg("memory store in use: data is lost on restart")
	}

	// 2) Cache and stats
	var eventOpts []event.Option
	if cfg.RedisURL != "" {
		c, err := rediscache.New(cfg.RedisURL)
		if err != nil {
			zlog.Warn().Err(err).Msg("redis unavailable: running without cache")
		} else {
			app.Cache = c
			eventOpts = append(eventOpts, event.WithCache(c, cfg.CacheTTLDetails, cfg.CacheTTLList))
		}
	}

	rec := metrics.Recorder{}
	app.Stats = stats.New(stats.Config{
		BaseURL:      cfg.StatsURL,
		ReadTimeout:  cfg.StatsTimeout,
		WriteTimeout: cfg.StatsTimeout,
		Workers:      cfg.StatsWorkers,
		QueueSize:    cfg.StatsQueue,
	}, stats.WithRecorder(rec))
	eventOpts = append(eventOpts, event.WithViewStats(app.Stats))

	// 3) Application
	clock := sysClock{}
	events := event.New(st, st, clock, eventOpts...)
	adm := admission.New(st, st, st, clock,
		admission.WithInvalidator(events),
		admission.WithRecorder(rec),
	)

	// 4) Transport
	deps := map[string]handlers.Pinger{"store": st}
	if app.Cache != nil {
		deps["redis"] = app.Cache
	}
	h := router.New(
		handlers.NewEventsHandler(events, app.Stats, clock),
		handlers.NewRequestsHandler(adm),
		authmw.NewAuth(cfg.JWTSecret, cfg.JWTIssuer),
		handlers.NewHealthHandler(deps),
		cfg,
	)

	app.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
	return app, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if u, err := url.Parse(cfg.DatabaseURL); err == nil {
		zlog.Info().
			Str("db_user", u.User.Username()).
			Str("db_host", u.Host).
			Str("db_db", u.Path).
			Msg("db config loaded")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if cfg.MigrateOnStart {
		if err := migrations.Apply(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		zlog.Info().Msg("migrations applied")
	}
	return db, nil
}

// Close releases resources in reverse order of creation. Queued stats hits are flushed first.
func (a *App) Close() {
	if a.Stats != nil {
		a.Stats.Close()
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.Publisher != nil {
		_ = a.Publisher.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
