// Command notifier consumes domain events from NATS and sends the matching
// emails. It shares the "notify" queue group with API instances.
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
	"github.com/yuki-disu/PPD-back/internal/mailer"
	"github.com/yuki-disu/PPD-back/internal/metrics"
	"github.com/yuki-disu/PPD-back/internal/notify"
	"github.com/yuki-disu/PPD-back/internal/repository"
	"github.com/yuki-disu/PPD-back/pkg/config"
	"github.com/yuki-disu/PPD-back/pkg/database"
	"github.com/yuki-disu/PPD-back/pkg/events"
	"github.com/yuki-disu/PPD-back/pkg/logger"
	mw "github.com/yuki-disu/PPD-back/pkg/middleware"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		logger.Error("Notifier exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.SetDefault(logger.New(os.Stdout, os.Getenv("LOG_LEVEL")))

	if cfg.NATS.URL == "" {
		return errors.New("NATS_URL is required for the notifier")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	bus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		return err
	}
	defer bus.Close()

	n := notify.New(repository.NewUserRepository(pool), repository.NewEstateRepository(pool), mailer.New(cfg.Email))
	if err := n.Start(bus); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notifier"))
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	r.Use(mw.Metrics(collector))

	r.Get("/healthz", mw.Health(pool))
	r.Handle("/metrics", metrics.Handler(registry))

	srv := &http.Server{
		Addr:              ":" + cfg.Notify.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting notifier", "port", cfg.Notify.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down notifier...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
