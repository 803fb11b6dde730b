package config

import (
	"os"
	"strconv"
	"time"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/shared/money"
)

type Config struct {
	Port        string
	DatabaseDSN string
	Env         string

	// Payment gateway (Razorpay-compatible REST API)
	GatewayBaseURL   string
	GatewayKeyID     string
	GatewayKeySecret string
	WebhookSecret    string
	GatewayTimeout   time.Duration

	Currency         string
	MaxWalletBalance money.Amount
}

// Load reads configuration from the environment with sensible defaults.
// Precedence: explicit env var > .env file (loaded by the caller) > default.
func Load() Config {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseDSN:      getEnv("DB_DSN", ""),
		Env:              getEnv("APP_ENV", "development"),
		GatewayBaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
		GatewayKeyID:     getEnv("RAZORPAY_KEY_ID", ""),
		GatewayKeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
		WebhookSecret:    getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
		GatewayTimeout:   getDuration("RAZORPAY_TIMEOUT", 10*time.Second),
		Currency:         getEnv("PAYMENT_CURRENCY", "INR"),
		MaxWalletBalance: money.FromRupees(getFloat("MAX_WALLET_BALANCE", 50000)),
	}
	// The verify-signature secret and the webhook secret are usually the same
	// key; allow overriding only the webhook one.
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = cfg.GatewayKeySecret
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
