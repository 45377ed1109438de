package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/region-cache/pkg/admin"
	"github.com/Sternrassler/region-cache/pkg/cache"
	"github.com/Sternrassler/region-cache/pkg/config"
	"github.com/Sternrassler/region-cache/pkg/httpcache"
	"github.com/Sternrassler/region-cache/pkg/logging"
	"github.com/Sternrassler/region-cache/pkg/metrics"
	"github.com/Sternrassler/region-cache/pkg/redisconn"
)

func main() {
	configPath := flag.String("config", getEnv("CACHE_CONFIG", ""), "path to the cache configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:   logging.LogLevel(cfg.Log.Level),
		Pretty:  cfg.Log.Pretty,
		Output:  os.Stderr,
		Service: "cache-proxy",
	})
	logger := logging.NewLogger("cache-proxy")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Cache proxy stopped")
		os.Exit(1)
	}
}

// run wires the proxy and serves until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	if cfg.Server.Origin == "" {
		return errors.New("server.origin is required")
	}
	origin, err := url.Parse(cfg.Server.Origin)
	if err != nil {
		return fmt.Errorf("parse origin: %w", err)
	}

	resolver, err := cfg.Resolver()
	if err != nil {
		return fmt.Errorf("build regions: %w", err)
	}

	engine, ready, err := openEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	facade, err := admin.New(engine, resolver, logger)
	if err != nil {
		return err
	}
	if err := admin.Initialize(facade); err != nil {
		return err
	}

	filter, err := httpcache.New(httpcache.Config{
		Engine:       engine,
		Resolver:     resolver,
		HardenedMode: cfg.HardenedMode,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newRouter(filter, newOriginProxy(origin), facade, cfg.Snapshot, ready),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("origin", cfg.Server.Origin).
			Str("storage", cfg.Storage).
			Int("regions", resolver.Len()).
			Bool("hardened_mode", cfg.HardenedMode).
			Msg("Starting cache proxy")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down cache proxy")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openEngine creates the configured storage engine and its readiness check.
func openEngine(ctx context.Context, cfg config.Config, logger zerolog.Logger) (cache.Engine, func(context.Context) error, error) {
	switch cfg.Storage {
	case config.StorageLevelDB:
		engine, err := cache.OpenLevelDB(cfg.LevelDB.Path, cfg.Redis.MaxEntriesDeletedInOneBatch, logger)
		if err != nil {
			return nil, nil, err
		}
		return engine, func(context.Context) error { return nil }, nil

	default:
		client, err := redisconn.Open(ctx, cfg.Redis, redisconn.DefaultRetryConfig(), logger)
		if err != nil {
			return nil, nil, err
		}
		engine, err := cache.NewRedisEngine(client, cfg.Redis.MaxEntriesDeletedInOneBatch, logger)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return engine, redisconn.Healthcheck(client), nil
	}
}

// newOriginProxy forwards to origin. The client's Accept-Encoding is dropped
// so the transport negotiates compression itself and hands the filter a
// decoded body.
func newOriginProxy(origin *url.URL) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(origin)
	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Header.Del("Accept-Encoding")
	}
	return proxy
}

// newRouter mounts the operational endpoints and sends everything else
// through the cache filter to the origin.
func newRouter(filter *httpcache.Filter, origin http.Handler, facade *admin.Facade, snapshot func() map[string]any, ready func(context.Context) error) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(ready))
	r.Handle("/metrics", metrics.Handler())
	r.Mount("/admin", admin.Routes(facade, snapshot))

	r.With(filter.Middleware).Handle("/*", origin)
	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := check(ctx); err != nil {
			http.Error(w, fmt.Sprintf("storage not ready: %v", err), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "READY")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
