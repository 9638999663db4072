package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yuki-disu/PPD-back/internal/handlers"
	"github.com/yuki-disu/PPD-back/internal/mailer"
	"github.com/yuki-disu/PPD-back/internal/metrics"
	"github.com/yuki-disu/PPD-back/internal/notify"
	"github.com/yuki-disu/PPD-back/internal/ratelimit"
	"github.com/yuki-disu/PPD-back/internal/repository"
	"github.com/yuki-disu/PPD-back/internal/service"
	"github.com/yuki-disu/PPD-back/pkg/auth"
	"github.com/yuki-disu/PPD-back/pkg/config"
	"github.com/yuki-disu/PPD-back/pkg/database"
	"github.com/yuki-disu/PPD-back/pkg/events"
	"github.com/yuki-disu/PPD-back/pkg/logger"
	mw "github.com/yuki-disu/PPD-back/pkg/middleware"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		logger.Error("API exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.SetDefault(logger.New(os.Stdout, os.Getenv("LOG_LEVEL")))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(cfg.Database.URL); err != nil {
			return err
		}
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	var eventBus events.EventBus = events.NoopBus{}
	if cfg.NATS.URL != "" {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			return err
		}
		eventBus = bus
	} else {
		logger.Warn("NATS_URL not set, domain events are dropped")
	}
	defer eventBus.Close()

	policy := ratelimit.Policy{Attempts: cfg.RateLimit.AuthAttempts, Window: cfg.RateLimit.AuthWindow}
	var limiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		limiter, err = ratelimit.NewRedisLimiter(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, policy)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("REDIS_ADDR not set, rate limits are per instance")
		limiter = ratelimit.NewMemoryLimiter(policy)
	}
	defer limiter.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Initialize repositories
	userRepo := repository.NewUserRepository(pool)
	recoveryRepo := repository.NewRecoveryRepository(pool)
	estateRepo := repository.NewEstateRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	favoriteRepo := repository.NewFavoriteRepository(pool)

	mail := mailer.New(cfg.Email)

	// Initialize services
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.Audience)
	credentials := service.NewCredentialAuthority(issuer, nil)
	opts := []service.Option{service.WithMetrics(collector)}

	recoveryService := service.NewRecoveryService(userRepo, recoveryRepo, credentials, mail, eventBus,
		cfg.Auth.RecoveryCodeTTL, cfg.Server.PublicURL, opts...)

	h := handlers.New(handlers.Services{
		Auth:      service.NewAuthService(userRepo, credentials, eventBus, opts...),
		Recovery:  recoveryService,
		Users:     service.NewUserService(userRepo, credentials, eventBus, opts...),
		Estates:   service.NewEstateService(estateRepo),
		Favorites: service.NewFavoriteService(favoriteRepo),
		Bookings:  service.NewBookingService(bookingRepo, estateRepo, eventBus, opts...),
		Sessions:  service.NewSessionVerifier(credentials, userRepo),
	}, limiter)

	if cfg.Notify.InProcess {
		if err := notify.New(userRepo, estateRepo, mail).Start(eventBus); err != nil {
			return err
		}
	}

	// Setup router
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("estates-api"))
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	r.Use(mw.Metrics(collector))
	r.Use(mw.CORS(cfg.Server.AllowedOrigins))

	r.Get("/healthz", mw.Health(pool))
	r.Handle("/metrics", metrics.Handler(registry))
	r.With(chimw.Timeout(cfg.Server.RequestTimeout)).Mount("/api/v1", h.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting estates API", "port", cfg.Server.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return service.RunRecoveryCleanup(gctx, recoveryService, cfg.Auth.RecoveryCleanup)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down estates API...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
