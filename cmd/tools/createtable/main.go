package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/orders"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/payments"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/users"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/wallet"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&users.User{},
		&orders.Order{},
		&payments.Payment{},
		&payments.GatewayEvent{},
		&wallet.Wallet{},
		&wallet.WalletTransaction{},
	); err != nil {
		log.Fatalf("Failed to migrate tables: %v", err)
	}

	log.Println("Tables created successfully")
}
