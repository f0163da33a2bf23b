package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Port            string
	BackendURL      string
	UpstreamTimeout time.Duration

	// Optional collaborators; empty values disable the feature.
	ReceiptsDBDSN string
	RabbitURL     string
	RedisAddr     string

	ProductCacheTTL time.Duration
	SessionTTL      time.Duration

	CORSAllowOrigins []string
}

func Load() Config {
	return Config{
		Port:            getenv("PORT", "8084"),
		BackendURL:      getenv("BACKEND_URL", "http://backend:8080"),
		UpstreamTimeout: parseDuration(getenv("UPSTREAM_TIMEOUT", "10s"), 10*time.Second),

		ReceiptsDBDSN: os.Getenv("RECEIPTS_DB_DSN"),
		RabbitURL:     os.Getenv("RABBITMQ_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),

		ProductCacheTTL: parseDuration(getenv("PRODUCT_CACHE_TTL", "30s"), 30*time.Second),
		SessionTTL:      parseDuration(getenv("SESSION_TTL", "1h"), time.Hour),

		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
