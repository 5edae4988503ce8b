package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/config"
	"github.com/trekops/booking-backend/internal/database"
	"github.com/trekops/booking-backend/internal/services"
	"github.com/trekops/booking-backend/pkg/validator"
)

func main() {
	fix := flag.Bool("fix", false, "repair drifted counters instead of only reporting them")
	flag.Parse()

	fmt.Println("=== Capacity Ledger Audit ===")
	fmt.Println()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.Driver == "memory" {
		log.Fatal("audit-ledger needs a Postgres database (DATABASE_DRIVER is memory)")
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	// Connect to database
	fmt.Println("Connecting to database...")
	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	store := database.NewPostgresStore(db, cfg.Database.TxMaxRetries, logger)
	defer store.Close()
	fmt.Println("✅ Database connected")
	fmt.Println()

	pricing := services.NewPricingService(validator.New())
	audit := services.NewAuditService(store, logger)
	departures := services.NewDepartureService(store, pricing, audit, cfg.Booking, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	drifts, err := departures.ReconcileLedger(ctx, *fix)
	if err != nil {
		log.Fatalf("Ledger audit failed: %v", err)
	}

	if len(drifts) == 0 {
		fmt.Println("✅ Every departure matches its live bookings")
		return
	}

	fmt.Printf("Found %d departure(s) with drift:\n", len(drifts))
	failed := false
	for _, d := range drifts {
		fmt.Printf("  %s (%s): reserved %d, expected %d; bookings %d, expected %d",
			d.DepartureID, d.Date, d.ReservedSlots, d.ExpectedReserved, d.BookingCount, d.ExpectedCount)
		switch {
		case d.Fixed:
			fmt.Print(" -> fixed")
		case d.FixError != "":
			fmt.Printf(" -> fix failed: %s", d.FixError)
			failed = true
		}
		fmt.Println()
	}

	if !*fix || failed {
		os.Exit(1)
	}
}
