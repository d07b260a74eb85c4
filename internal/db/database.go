package db

import (
	"log"
	"time"

	"bridgeguard/internal/config"
	"bridgeguard/internal/metrics"
	"bridgeguard/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB() {
	var err error

	if config.AppConfig == nil || config.AppConfig.Database.DSN == "" {
		log.Fatalf("Database DSN is required")
	}

	dsn := config.AppConfig.Database.DSN
	log.Printf("Connecting to database: %s", dsn)

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	log.Println("✅ Database connected successfully")
	metrics.DBConnectionStatus.Set(1)

	log.Println("🚀 Starting database schema migration with GORM AutoMigrate...")
	if err := DB.AutoMigrate(
		&models.SmartAccountRecord{},
		&models.RecoveryRequestRecord{},
		&models.ExecutionRecord{},
	); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Println("✅ Database schema migrated successfully")
}

// StartHealthCheck pings the database periodically and reports status
func StartHealthCheck(interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			sqlDB, err := DB.DB()
			if err != nil {
				metrics.DBConnectionStatus.Set(0)
				continue
			}
			if err := sqlDB.Ping(); err != nil {
				log.Printf("⚠️ Database ping failed: %v", err)
				metrics.DBConnectionStatus.Set(0)
				continue
			}
			metrics.DBConnectionStatus.Set(1)
		}
	}()
}
