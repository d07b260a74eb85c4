package main

import (
	"fmt"
	"log"

	"bridgeguard/internal/config"
	"bridgeguard/internal/db"

	_ "github.com/lib/pq"
)

func main() {
	fmt.Println("🔍 Verifying database connection and schema...")

	// Load config
	if err := config.LoadConfig(""); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database (runs AutoMigrate)
	db.InitDB()

	// Get database connection
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database connection: %v", err)
	}
	defer sqlDB.Close()

	// Get database name
	var dbName string
	if err := sqlDB.QueryRow("SELECT current_database()").Scan(&dbName); err != nil {
		log.Fatalf("Failed to get database name: %v", err)
	}
	fmt.Printf("📋 Connected to database: %s\n", dbName)

	// Verify the migrated tables exist
	tables := []string{"smart_account_records", "recovery_request_records", "execution_records"}
	for _, table := range tables {
		var exists bool
		err := sqlDB.QueryRow(`
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)
		`, table).Scan(&exists)
		if err != nil {
			log.Fatalf("Failed to query table %s: %v", table, err)
		}
		if exists {
			fmt.Printf("✅ Table exists: %s\n", table)
		} else {
			fmt.Printf("❌ Table missing: %s\n", table)
		}
	}

	fmt.Println("✅ Database verification complete")
}
