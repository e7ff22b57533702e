package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/ridwanfathin/assistant-health-sync/internal/database"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using environment variables.")
	}

	// Get database URL
	dbURL := os.Getenv("POSTGRES_DB_URL")
	if dbURL == "" {
		log.Fatalf("POSTGRES_DB_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Connect to database
	db, err := database.NewPostgresDB(ctx, dbURL, 30*time.Second)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db.GetPool())
	if err != nil {
		log.Fatalf("Failed to execute migrations: %v", err)
	}

	if len(applied) == 0 {
		fmt.Println("Database already up to date.")
		return
	}
	fmt.Printf("Applied migrations: %v\n", applied)
}
