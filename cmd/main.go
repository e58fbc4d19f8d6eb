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

	"github.com/joho/godotenv"

	"github.com/supakawaiidesu/obsidian-rpc-v2/config"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/chain"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/dispatch"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/endpoint"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/handler"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/httpserver"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/metrics"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/recovery"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/rpccache"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/selector"
	"github.com/supakawaiidesu/obsidian-rpc-v2/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.Environment == config.EnvDev, cfg.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := endpoint.NewRegistry(cfg.RPCURLs)
	if registry.Len() == 0 {
		log.Warn("No upstream RPC URLs configured; only local methods will be served")
	}

	sel := selector.New(registry, cfg.MaxConcurrentRequests)

	dispatcher := dispatch.NewDispatcher(newUpstreamClient(), cfg.RequestTimeout, log)
	forwarder := dispatch.NewForwarder(sel, dispatcher, cfg.MaxRetryAttempts, log)

	var cache *rpccache.Cache
	if cfg.EnableCache && cfg.CacheTTL > 0 {
		cache = rpccache.New(cfg.CacheTTL)
	}

	collector := metrics.NewCollector(1024, log)
	collector.Start(ctx)

	scanner := recovery.New(registry, recovery.DefaultInterval, recovery.DefaultQuiescence, log)
	go scanner.Run(ctx)

	identity := chain.Identity{ID: cfg.ChainID}

	rpcHandler := handler.NewRPCHandler(log, forwarder, identity, cache, collector,
		cfg.CORSOrigins, cfg.MaxRequestSize)
	healthHandler := handler.NewHealthHandler(registry, sel, collector, cache,
		cfg.MaxConcurrentRequests, cfg.RequestTimeout, cfg.MaxRequestSize)

	mux := setupRouter(rpcHandler, healthHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv, err := httpserver.New(addr, mux)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("RPC proxy listening",
		slog.String("addr", addr),
		slog.Int("upstreams", registry.Len()),
		slog.String("chain_id", identity.Hex()),
		slog.Bool("cache", cache != nil))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting RPC proxy", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func newUpstreamClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 32,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
