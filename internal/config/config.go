package config

import (
	"os"
	"time"
)

// Config is built once at startup and handed to constructors. Core
// logic never reads the environment directly.
type Config struct {
	ServiceName   string
	Env           string
	HTTPAddr      string
	AllowedOrigin string

	StoreBackend string // "memory" or "redis"
	RedisAddr    string
	StockSeed    string // "itemID=qty,itemID=qty" applied at startup

	GatewayBaseURL string
	GatewayKeyID   string
	GatewaySecret  string
	WebhookSecret  string
	GatewayTimeout time.Duration

	Currency string

	RabbitURL      string
	RefundExchange string

	ShutdownGracePeriod time.Duration
}

func Load() Config {
	return Config{
		ServiceName:   getEnv("SERVICE_NAME", "checkout"),
		Env:           getEnv("ENV", "dev"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),

		StoreBackend: getEnv("STORE_BACKEND", "memory"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		StockSeed:    getEnv("STOCK_SEED", ""),

		GatewayBaseURL: getEnv("GATEWAY_BASE_URL", "https://api.gateway.test"),
		GatewayKeyID:   getEnv("GATEWAY_KEY_ID", ""),
		GatewaySecret:  getEnv("GATEWAY_KEY_SECRET", ""),
		WebhookSecret:  getEnv("GATEWAY_WEBHOOK_SECRET", ""),
		GatewayTimeout: parseDuration("GATEWAY_TIMEOUT", 10*time.Second),

		Currency: getEnv("CURRENCY", "INR"),

		RabbitURL:      getEnv("RABBIT_URL", ""),
		RefundExchange: getEnv("REFUND_EXCHANGE", "checkout.reconciliation"),

		ShutdownGracePeriod: parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return def
}
