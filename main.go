package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"datagate/internal/config"
	mcpserver "datagate/internal/mcp"
	"datagate/internal/metrics"
	"datagate/internal/monitor"
	"datagate/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "datagate:", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registry := source.NewRegistry()
	if cfg.SourcesFile != "" {
		preloadSources(registry, cfg.SourcesFile)
	}

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)
	dispatcher := mcpserver.NewDispatcher(registry, recorder)
	srv := mcpserver.New(mcpserver.Deps{Dispatcher: dispatcher})

	if cfg.MonitorEnabled {
		mon := monitor.New(registry)
		if err := mon.Start(cfg.RevalidateCron); err != nil {
			log.Fatal().Err(err).Msg("cannot start source monitor")
		}
		defer mon.Stop()
	}

	if cfg.OpsAddr != "" {
		startOps(ctx, cfg.OpsAddr, registry)
	}

	switch cfg.Transport {
	case "sse":
		log.Info().Str("addr", cfg.SSEAddr).Msg("serving mcp over sse")
		err = srv.ServeSSE(ctx, cfg.SSEAddr, cfg.SSEBase)
	default:
		log.Info().Msg("serving mcp over stdio")
		err = srv.ServeStdio()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("mcp server error")
	}
}

// setupLogger routes all logs to stderr. Stdout belongs to the stdio
// transport and must stay clean.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// preloadSources registers the descriptors declared in the yaml file.
// A bad entry is skipped, not fatal: the server still starts with
// whatever did register.
func preloadSources(reg *source.Registry, path string) {
	f, err := config.LoadSourcesFile(path)
	if err != nil {
		log.Warn().Str("file", path).Err(err).Msg("sources file not loaded")
		return
	}
	loaded := 0
	for _, entry := range f.Sources {
		name, kind, cfg := entry.Descriptor()
		if _, err := reg.Register(name, kind, cfg); err != nil {
			log.Warn().Str("source", name).Err(err).Msg("skipping preloaded source")
			continue
		}
		loaded++
	}
	log.Info().Int("loaded", loaded).Int("declared", len(f.Sources)).Msg("sources preloaded")
}

// startOps serves health probes and prometheus metrics on a side
// listener, separate from the MCP transport.
func startOps(ctx context.Context, addr string, reg *source.Registry) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok sources=%d\n", reg.Len())
	})
	r.Handle("/metrics", promhttp.Handler())

	opsSrv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutCtx, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShut()
		_ = opsSrv.Shutdown(shutCtx)
	}()
	go func() {
		log.Info().Str("addr", addr).Msg("ops listener started")
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Msg("ops listener failed")
		}
	}()
}
