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

	"golang.org/x/sync/errgroup"

	cbhttp "github.com/Strob0t/codebridge/internal/adapter/http"
	cbmcp "github.com/Strob0t/codebridge/internal/adapter/mcp"
	cbnats "github.com/Strob0t/codebridge/internal/adapter/nats"
	"github.com/Strob0t/codebridge/internal/adapter/natskv"
	cbotel "github.com/Strob0t/codebridge/internal/adapter/otel"
	"github.com/Strob0t/codebridge/internal/adapter/ristretto"
	"github.com/Strob0t/codebridge/internal/adapter/tiered"
	"github.com/Strob0t/codebridge/internal/adapter/ws"
	"github.com/Strob0t/codebridge/internal/config"
	"github.com/Strob0t/codebridge/internal/logger"
	"github.com/Strob0t/codebridge/internal/port/analysis"
	"github.com/Strob0t/codebridge/internal/port/cache"
	"github.com/Strob0t/codebridge/internal/port/messagequeue"
	"github.com/Strob0t/codebridge/internal/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if len(os.Args) > 1 && os.Args[1] == "check" {
		code, err := runCheck(os.Args[2:], os.Stdout)
		if err != nil {
			fmt.Fprintln(os.Stderr, "codebridge check:", err)
			os.Exit(2)
		}
		os.Exit(code)
	}

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return err
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"path", cfgPath,
		"addr", cfg.Server.Addr(),
		"engine", cfg.Engine.Backend,
		"debounce", cfg.Session.DiagnosticsDebounce,
		"log_level", cfg.Logging.Level,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---

	shutdownOtel, err := cbotel.Setup(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := cbotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Services ---

	newEngine := service.NewEngineFactory(cfg.Engine, log)
	sessions := service.NewSessionService(cfg, newEngine, metrics, log)

	var queue messagequeue.Publisher
	var nq *cbnats.Queue
	if cfg.NATS.URL != "" {
		q, err := cbnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, diagnostics mirror disabled", "error", err)
		} else {
			defer func() { _ = q.Close() }()
			nq = q
			queue = q
			sessions.SetMirror(q)
		}
	}

	var local *ristretto.Cache
	if cfg.Cache.Enabled {
		local, err = ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		defer local.Close()

		var diagCache cache.Cache = local
		if cfg.Cache.Shared && nq != nil {
			shared, err := natskv.Open(ctx, nq.JetStream(), cfg.Cache.TTL)
			if err != nil {
				slog.Warn("shared cache unavailable, using local only", "error", err)
			} else {
				diagCache = tiered.New(local, shared, cfg.Cache.TTL, log)
				slog.Info("shared diagnostics cache enabled", "bucket", natskv.Bucket)
			}
		}
		sessions.SetCache(diagCache, cfg.Cache.TTL)
		slog.Info("diagnostics cache enabled", "max_mb", cfg.Cache.L1MaxSizeMB, "ttl", cfg.Cache.TTL)
	}

	hub := ws.NewHub(sessions, cfg.Session.MaxMessageBytes, cfg.Server.CORSOrigin)

	var mcpHandler http.Handler
	if cfg.MCP.Enabled {
		analyzer := service.NewAnalyzer(cfg, newEngine, metrics, log)
		mcpSrv := cbmcp.NewServer(cbmcp.ServerConfig{
			Name:    cfg.MCP.Name,
			Version: version,
			Backend: cfg.Engine.Backend,
			Engines: analysis.Available(),
		}, analyzer)
		mcpHandler = mcpSrv.Handler()
		slog.Info("mcp tools enabled", "path", "/mcp")
	}

	// --- HTTP ---

	routes := cbhttp.Routes{
		Handlers: &cbhttp.Handlers{
			Sessions:    sessions,
			Connections: hub,
			Cache:       local,
			Queue:       queue,
		},
		Websocket: hub.HandleWS,
		MCP:       mcpHandler,
	}
	if cfg.Otel.Enabled {
		routes.Wrap = cbotel.HTTPMiddleware(cfg.Otel.ServiceName)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           cbhttp.NewRouter(cfg.Server.CORSOrigin, routes),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shCtx)
		hub.CloseAll(shCtx)
		return err
	})
	return g.Wait()
}
