package main

import (
	"log"
	"os"

	"log/slog"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/config"
	apphttp "github.com/ujjwal0117/CDAC-PROJECT/internal/http"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg := config.Load()
	if cfg.DatabaseDSN == "" {
		log.Fatal("DB_DSN environment variable is required")
	}
	if cfg.GatewayKeyID == "" || cfg.GatewayKeySecret == "" {
		log.Fatal("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
	}

	db, err := gorm.Open(mysql.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	r := apphttp.NewRouter(logger, db, cfg)
	_ = r.Run(":" + cfg.Port)
}
