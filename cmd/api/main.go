package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "reading_room/internal/adapters/http_server"
	"reading_room/internal/adapters/library"
	"reading_room/internal/adapters/observability"
	redisad "reading_room/internal/adapters/redis"
	"reading_room/internal/app"
	"reading_room/internal/domain"
	"reading_room/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// cache
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := cache.Ping(pingCtx); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
	}
	cancel()
	log.Info().Msg("redis connection ok")

	// remote services
	client, err := library.New(library.Options{
		BooksURL:   cfg.BooksURL,
		ReviewsURL: cfg.ReviewsURL,
		AdminURL:   cfg.AdminURL,
		RPS:        cfg.OutboundRPS,
		MaxRetries: cfg.OutboundRetry,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize library client")
	}

	// deps
	q := app.NewLibraryService(client, client, cache, cfg.CacheTTL)
	c := app.NewReaderCommands(client, client, cache)
	tokens := func(id string) domain.TokenStore {
		return redisad.NewTokenStore(cache.Client(), id, cfg.SessionIdleTTL)
	}
	sessions := server.NewSessions(tokens, client, client, cache)
	go sessions.RunSweeper(ctx, time.Minute, cfg.SessionIdleTTL)

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, C: c, S: sessions})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
