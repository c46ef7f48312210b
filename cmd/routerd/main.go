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

	"github.com/contentpipe/routerd/internal/adapter/agents"
	routerhttp "github.com/contentpipe/routerd/internal/adapter/http"
	routernats "github.com/contentpipe/routerd/internal/adapter/nats"
	oteladapter "github.com/contentpipe/routerd/internal/adapter/otel"
	"github.com/contentpipe/routerd/internal/adapter/postgres"
	"github.com/contentpipe/routerd/internal/adapter/ristretto"
	"github.com/contentpipe/routerd/internal/adapter/wordpress"
	"github.com/contentpipe/routerd/internal/adapter/ws"
	"github.com/contentpipe/routerd/internal/config"
	"github.com/contentpipe/routerd/internal/domain/site"
	"github.com/contentpipe/routerd/internal/logger"
	"github.com/contentpipe/routerd/internal/middleware"
	"github.com/contentpipe/routerd/internal/port/auditstore"
	"github.com/contentpipe/routerd/internal/selector"
	"github.com/contentpipe/routerd/internal/service"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

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
		"sites", len(cfg.Sites),
		"approval_threshold", cfg.Routing.ApprovalThreshold,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog, err := site.NewCatalog(cfg.Sites)
	if err != nil {
		return fmt.Errorf("site catalog: %w", err)
	}

	// --- Infrastructure ---

	shutdownTracer := oteladapter.InitTracer(cfg.Logging.Service)
	defer func() { _ = shutdownTracer(ctx) }()

	// PostgreSQL audit store is optional; an empty DSN disables it.
	var audit auditstore.Store = auditstore.Noop{}
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("postgres audit store ready")
		audit = postgres.NewStore(pool)
	}

	queue, err := routernats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Drain() }()

	dupCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer dupCache.Close()

	// --- Services ---

	hub := ws.NewHub()
	gate := service.NewGate(cfg.Gate, queue, audit)
	gate.Start(ctx)

	index := wordpress.NewIndex(&http.Client{Timeout: cfg.Index.Timeout}, cfg.Index.MaxSitemapURLs)
	dup := service.NewDupChecker(index, dupCache, cfg.Index)

	engine := service.NewEngine(
		catalog,
		selector.New(catalog),
		dup,
		gate,
		agents.NewClient(cfg.Agents),
		service.PolicyFromConfig(cfg.Routing),
		queue,
		audit,
	)

	// Relay audit bus events to connected dashboard clients.
	cancelBridge, err := service.StartEventBridge(ctx, queue, hub)
	if err != nil {
		return fmt.Errorf("event bridge: %w", err)
	}
	defer cancelBridge()

	rl := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := rl.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	// --- HTTP ---

	handlers := &routerhttp.Handlers{
		Engine:  engine,
		Gate:    gate,
		Catalog: catalog,
		Hub:     hub,
		Queue:   queue,
	}

	r := chi.NewRouter()
	r.Use(routerhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(routerhttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	// /route blocks through the validation wait, so the request timeout
	// must outlast the gate TTL.
	r.Use(chimw.Timeout(cfg.Gate.TTL + 30*time.Second))
	r.Use(oteladapter.HTTPMiddleware(cfg.Logging.Service))

	routerhttp.MountRoutes(r, handlers, rl)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Gate.TTL + time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	return srv.Shutdown(shutdownCtx)
}
