package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"transporter-dashboard/internal/database"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	var result struct {
		StoredUsers int   `db:"stored_users"`
		LastUpdated int64 `db:"last_updated"`
	}
	query := `
		SELECT
			COUNT(*) AS stored_users,
			COALESCE(MAX(updated_at), 0) AS last_updated
		FROM ui_preferences
	`
	if err := db.Get(&result, query); err != nil {
		log.Fatalf("Failed to query summary: %v", err)
	}

	fmt.Println("\n============================================================")
	fmt.Println("MIGRATION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Users with stored preferences: %d\n", result.StoredUsers)
	fmt.Printf("Last preferences update:       %d\n", result.LastUpdated)
	fmt.Println("============================================================")
}
