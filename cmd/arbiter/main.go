package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/arbiterhq/arbiter/internal/adapter/bus"
	"github.com/arbiterhq/arbiter/internal/adapter/discord"
	arbhttp "github.com/arbiterhq/arbiter/internal/adapter/http"
	arbnats "github.com/arbiterhq/arbiter/internal/adapter/nats"
	arbotel "github.com/arbiterhq/arbiter/internal/adapter/otel"
	"github.com/arbiterhq/arbiter/internal/adapter/postgres"
	"github.com/arbiterhq/arbiter/internal/adapter/ristretto"
	"github.com/arbiterhq/arbiter/internal/adapter/slack"
	"github.com/arbiterhq/arbiter/internal/adapter/ws"
	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/domain/adjudication"
	"github.com/arbiterhq/arbiter/internal/domain/scopechange"
	"github.com/arbiterhq/arbiter/internal/domain/supervision"
	"github.com/arbiterhq/arbiter/internal/logger"
	"github.com/arbiterhq/arbiter/internal/port/notifier"
	"github.com/arbiterhq/arbiter/internal/resilience"
	"github.com/arbiterhq/arbiter/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"telemetry", cfg.Telemetry.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	shutdownOtel, err := arbotel.Setup(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := arbnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	seen, err := ristretto.New(cfg.Dedup.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("dedup cache: %w", err)
	}
	defer seen.Close()

	metrics, err := arbotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Services ---

	hub := ws.NewHub()
	store := postgres.NewStore(pool)
	resolver := service.NewResolver(store)
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	retry := resilience.RetryPolicy{
		MaxTries: cfg.Supervision.PersistMaxTries,
		BaseWait: cfg.Supervision.PersistBaseWait,
	}

	var notifiers []notifier.Notifier
	if cfg.Notify.SlackWebhookURL != "" {
		notifiers = append(notifiers, slack.NewNotifier(cfg.Notify.SlackWebhookURL))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		notifiers = append(notifiers, discord.NewNotifier(cfg.Notify.DiscordWebhookURL))
	}
	notifiers = append(notifiers, bus.NewNotifier(queue))
	notify := service.NewNotificationService(notifiers, cfg.Notify.EnabledEvents)

	thresholds := adjudication.Thresholds{
		ProceedBelow:    cfg.Adjudication.ProceedBelow,
		RejectAt:        cfg.Adjudication.RejectAt,
		ConfidenceFloor: cfg.Adjudication.ConfidenceFloor,
	}
	adjudicator := service.NewAdjudicator(store, queue, resolver, hub, metrics, breaker, thresholds, retry)

	supervisor := service.NewSupervisor(store, queue, resolver, supervision.DefaultCatalog(),
		seen, notify, hub, metrics, breaker, retry, cfg.Dedup.TTL)

	rule := scopechange.Rule{
		LocalDeltaMaxPct: cfg.ScopeCreep.LocalDeltaMaxPct,
		TolerancePct:     cfg.ScopeCreep.DefaultTolerancePct,
	}
	scopeCreep := service.NewScopeCreep(store, queue, resolver, notify, hub, metrics, breaker, rule, retry)

	// --- Subscribers ---

	cancelEstimates, err := adjudicator.StartEstimateSubscriber(ctx)
	if err != nil {
		return fmt.Errorf("estimate subscriber: %w", err)
	}
	defer cancelEstimates()

	cancelEvents, err := supervisor.StartEventSubscriber(ctx)
	if err != nil {
		return fmt.Errorf("event subscriber: %w", err)
	}
	defer cancelEvents()

	cancelLifecycle, err := supervisor.StartLifecycleSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("lifecycle subscribers: %w", err)
	}
	defer cancelLifecycle()

	cancelScope, err := scopeCreep.StartScopeChangeSubscriber(ctx)
	if err != nil {
		return fmt.Errorf("scope change subscriber: %w", err)
	}
	defer cancelScope()

	// --- HTTP ---

	handlers := arbhttp.NewHandlers(adjudicator, supervisor, scopeCreep, store, queue, hub)

	r := chi.NewRouter()
	r.Use(arbhttp.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(arbhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(arbhttp.SecurityHeaders)
	r.Use(arbhttp.Logger)
	r.Use(arbotel.HTTPMiddleware)

	arbhttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		supervisor.RunPeriodicChecks(gctx, cfg.Supervision.PeriodicCheck)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := queue.Drain(); err != nil {
			slog.Error("nats drain failed", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
