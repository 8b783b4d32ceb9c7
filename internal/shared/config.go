package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MetricsAddr    string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	BooksURL       string
	ReviewsURL     string
	AdminURL       string
	OutboundRPS    int
	OutboundRetry  int
	Workers        int
	CacheTTL       time.Duration
	SessionIdleTTL time.Duration
}

// Load reads the environment, after .env when one exists in the working directory.
func Load() Config {
	_ = godotenv.Load(".env")

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer setting")
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ""),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		BooksURL:       env("BOOKS_API_URL", "https://functions.poehali.dev/bd6a2732-86ce-4673-a032-4d305f7946ef"),
		ReviewsURL:     env("REVIEWS_API_URL", "https://functions.poehali.dev/8efe5b27-e629-4985-84eb-cccf3a97fc23"),
		AdminURL:       env("ADMIN_API_URL", "https://functions.poehali.dev/e193c4a8-fdcf-44c4-82e1-d838e9db80fc"),
		OutboundRPS:    atoi("OUTBOUND_RPS", 10),
		OutboundRetry:  atoi("OUTBOUND_RETRIES", 2),
		Workers:        atoi("WARM_WORKERS", 8),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		SessionIdleTTL: time.Duration(atoi("SESSION_IDLE_TTL_SECONDS", 7200)) * time.Second,
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
