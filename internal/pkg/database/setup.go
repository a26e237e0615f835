package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/frankariuki86-png/megapark-backend/app/models"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// Configured reports whether a relational backend is configured. When it is
// not, the process falls back to file-backed persistence.
func Configured() bool {
	return env.GetEnv("DB_NAME", "") != ""
}

// Connect opens the MySQL connection with retries and migrates the schema.
// The handle is owned by the process entry point and injected into the
// repository factory; nothing else holds connection state.
func Connect() (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	var db *gorm.DB
	var err error
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                      dsn,
			DefaultStringSize:        256,
			DisableDatetimePrecision: true,
			DontSupportRenameIndex:   true,
			DontSupportRenameColumn:  true,
		}), &gorm.Config{})
		if err == nil {
			if merr := db.AutoMigrate(
				&models.User{},
				&models.Booking{},
				&models.FoodOrder{},
				&models.HallQuote{},
				&models.PaymentWebhookEvent{},
				&models.MpesaTransaction{},
			); merr != nil {
				return nil, fmt.Errorf("auto-migrate: %w", merr)
			}
			return db, nil
		}

		log.Warnf("[Database] connect failed (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("connect to database: %w", err)
}
