package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/config"
	"github.com/trekops/booking-backend/internal/database"
)

func main() {
	var (
		dbURLFlag    string
		driverFlag   string
		includeTours bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.StringVar(&driverFlag, "driver", "pgx", "database driver: pgx or postgres")
	flag.BoolVar(&includeTours, "include-tours", false, "also truncate the tour catalog")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	// This avoids having to pass secrets on the command line.
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	// Build minimal database config without loading full app config
	dbCfg := config.DatabaseConfig{
		Driver:             driverFlag,
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(dbCfg, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	tables := []string{}
	for _, table := range database.Tables {
		if table == "tours" && !includeTours {
			continue
		}
		tables = append(tables, table)
	}

	fmt.Printf("Connected to database. Truncating %s...\n", strings.Join(tables, ", "))

	truncateSQL := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
	if _, err := db.Exec(truncateSQL); err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	fmt.Println("Booking data cleared successfully (tables truncated, identities reset).")

	// Verify by printing row counts for each table
	fmt.Println("Post-clear row counts:")
	for _, t := range database.Tables {
		var count int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}
