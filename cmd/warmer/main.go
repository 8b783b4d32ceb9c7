package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"reading_room/internal/adapters/library"
	"reading_room/internal/adapters/observability"
	redisad "reading_room/internal/adapters/redis"
	"reading_room/internal/app"
	"reading_room/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("books", cfg.BooksURL).
		Int("workers", cfg.Workers).
		Dur("ttl", cfg.CacheTTL).
		Msg("warmer starting")

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}

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

	w := app.NewCatalogWarmer(client, cache, cfg.CacheTTL)
	start := time.Now()
	ids, err := w.WarmList(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("catalog list fetch failed")
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var failed atomic.Int64

	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(bookID int64) {
			defer wg.Done()
			defer sem.Release(1)

			if err := w.WarmBook(ctx, bookID); err != nil {
				failed.Add(1)
				log.Warn().Int64("id", bookID).Err(err).Msg("warm failed")
				return
			}
			log.Debug().Int64("id", bookID).Msg("warm ok")
		}(id)
	}

	wg.Wait()
	log.Info().
		Int("books", len(ids)).
		Int64("failed", failed.Load()).
		Dur("took", time.Since(start)).
		Msg("warm completed")
}
