// Package main is the entry point for the mileage tracker API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/pkordes/mileage-tracker/internal/auth"
	"github.com/pkordes/mileage-tracker/internal/captcha"
	"github.com/pkordes/mileage-tracker/internal/config"
	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/events"
	"github.com/pkordes/mileage-tracker/internal/geocode"
	"github.com/pkordes/mileage-tracker/internal/handler"
	"github.com/pkordes/mileage-tracker/internal/middleware"
	"github.com/pkordes/mileage-tracker/internal/repo"
	"github.com/pkordes/mileage-tracker/internal/service"
	"github.com/pkordes/mileage-tracker/migrations"
	"github.com/pkordes/mileage-tracker/spec"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if cfg.AutoMigrate {
		if err := migrate(context.Background(), pool); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	// --- Storage ----------------------------------------------------------
	tripRepo := repo.NewTripRepo(pool)
	userRepo := repo.NewUserRepo(pool)

	var tripStore service.TripStore = tripRepo
	var publisher *events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		tripStore = events.NewPublishingStore(tripRepo, publisher, logger)
		slog.Info("trip events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// --- Address lookup ---------------------------------------------------
	// The resolver loads in the background; until it is ready, trips record
	// "Address lookup unavailable" instead of waiting.
	resolver := geocode.NewLoader(func(context.Context) (geocode.Resolver, error) {
		return geocode.NewClient(cfg.GeocodeURL, cfg.MapsAPIKey, cfg.GeocodeTimeout)
	})
	go func() {
		if err := resolver.Load(context.Background()); err != nil {
			slog.Warn("address lookup disabled", "error", err)
		}
	}()

	// --- Services ---------------------------------------------------------
	rate := domain.Rate{PerMile: cfg.ReimbursementRate, CurrencySymbol: cfg.CurrencySymbol}
	sessions := auth.NewSessions()
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	trackers := service.NewTrackerRegistry(service.TrackerDeps{
		Location:      service.ReportedLocation{},
		Resolver:      resolver,
		Store:         tripStore,
		Rate:          rate,
		Logger:        logger,
		LookupTimeout: cfg.GeocodeTimeout,
	}, func(userID string) service.IdentityProvider {
		return sessions.Identity(userID)
	})
	defer trackers.Close()
	defer sessions.Subscribe(trackers.UserChanged)()

	srv := handler.NewServer(handler.Deps{
		Trackers: func(ctx context.Context, userID string) handler.Tracker {
			return trackers.For(ctx, userID)
		},
		History:      service.NewHistoryService(tripRepo, rate),
		Accounts:     service.NewAccountService(userRepo, tokens, sessions, logger),
		Captcha:      captcha.NewVerifier(cfg.RecaptchaVerifyURL, cfg.RecaptchaSecretKey, 10*time.Second),
		Rate:         rate,
		Logger:       logger,
		Authenticate: middleware.RequireAuth(tokens, sessions),
		OpenAPI:      spec.OpenAPI,
	})

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	// The write timeout leaves room for an end-of-trip address lookup.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			slog.Warn("closing event publisher", "error", err)
		}
	}
	slog.Info("server stopped")
}

// migrate applies every pending migration embedded in the binary.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	results, err := migrations.Up(ctx, db)
	if err != nil {
		return err
	}
	for _, res := range results {
		slog.Info("migration applied", "source", res.Source.Path, "duration", res.Duration)
	}
	return nil
}
