package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresDSN       string
	RedisAddr         string
	KafkaBrokers      []string
	JWTSecret         string
	AppEnv            string
	MidtransBaseURL   string
	MidtransServerKey string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: []string{os.Getenv("KAFKA_BROKER")},
		JWTSecret:    os.Getenv("JWT_SECRET"),
		AppEnv:       os.Getenv("APP_ENV"),
	}

	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = "host=localhost user=postgres password=postgres dbname=photomarket sslmode=disable"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if len(cfg.KafkaBrokers) == 1 && cfg.KafkaBrokers[0] == "" {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "supersecret"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "local"
	}

	// Sandbox vs production is resolved once here, not per request.
	if cfg.AppEnv == "local" {
		cfg.MidtransBaseURL = os.Getenv("MIDTRANS_URL_SANDBOX")
		cfg.MidtransServerKey = os.Getenv("MIDTRANS_SERVER_KEY_SANDBOX")
		if cfg.MidtransBaseURL == "" {
			cfg.MidtransBaseURL = "https://api.sandbox.midtrans.com/v2/"
		}
	} else {
		cfg.MidtransBaseURL = os.Getenv("MIDTRANS_URL_PRODUCTION")
		cfg.MidtransServerKey = os.Getenv("MIDTRANS_SERVER_KEY_PRODUCTION")
		if cfg.MidtransBaseURL == "" {
			cfg.MidtransBaseURL = "https://api.midtrans.com/v2/"
		}
	}

	slog.Info("config loaded", "postgres_dsn", cfg.PostgresDSN, "redis_addr", cfg.RedisAddr, "kafka_brokers", cfg.KafkaBrokers, "app_env", cfg.AppEnv, "midtrans_url", cfg.MidtransBaseURL)
	return cfg
}
