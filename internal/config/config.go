// Package config provides runtime configuration for the service.
package config

import (
	"os"
	"strconv"
	"time"
)

// DefaultStockWatermark is the stock level below which the minimum-order
// threshold of a product is tightened to the remaining quantity.
const DefaultStockWatermark = 1000

// Config holds the knobs for the HTTP server, stores, and collaborators.
type Config struct {
	HTTPAddr    string
	ServiceName string
	Env         string

	MongoURI      string
	MongoDatabase string
	RedisAddr     string

	StripeSecretKey     string
	StripeWebhookSecret string
	PaymentCurrency     string

	MailAPIBase string
	MailAPIKey  string
	MailSender  string
	OpsEmail    string

	JWTSecret string

	StockWatermark int
	AllowOversell  bool

	ShutdownTimeout time.Duration
}

// Load collects configuration from the environment with defaults. An empty
// MONGO_URI selects the in-memory store; an empty REDIS_ADDR disables the
// status cache; an empty JWT_SECRET disables bearer authentication.
func Load() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		ServiceName: getenv("SERVICE_NAME", "orderflow"),
		Env:         getenv("ENV", "dev"),

		MongoURI:      getenv("MONGO_URI", ""),
		MongoDatabase: getenv("MONGO_DB", "wholesale"),
		RedisAddr:     getenv("REDIS_ADDR", ""),

		StripeSecretKey:     getenv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getenv("STRIPE_WEBHOOK_SECRET", ""),
		PaymentCurrency:     getenv("PAYMENT_CURRENCY", "usd"),

		MailAPIBase: getenv("MAIL_API_BASE", ""),
		MailAPIKey:  getenv("MAIL_API_KEY", ""),
		MailSender:  getenv("MAIL_SENDER", "orders@wholesale.example"),
		OpsEmail:    getenv("OPS_EMAIL", ""),

		JWTSecret: getenv("JWT_SECRET", ""),

		StockWatermark: atoienv("STOCK_WATERMARK", DefaultStockWatermark),
		AllowOversell:  getenv("OVERSELL_POLICY", "reject") == "allow",

		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 10),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvs(key string, defSec int) time.Duration {
	return time.Duration(atoienv(key, defSec)) * time.Second
}
