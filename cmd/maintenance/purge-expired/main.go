package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/tripnest/booking-core/internal/database"
)

func main() {
	var (
		dbURLFlag string
		days      int
		dryRun    bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.IntVar(&days, "older-than-days", 30, "purge rows that expired or were resolved more than this many days ago")
	flag.BoolVar(&dryRun, "dry-run", false, "count matching rows without deleting them")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}
	if days < 1 {
		log.Fatal("-older-than-days must be at least 1")
	}

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	fmt.Printf("Connected to database. Purging rows older than %s\n", cutoff.Format(time.RFC3339))

	if dryRun {
		counts := map[string]string{
			"qr_payments": `SELECT COUNT(*) FROM qr_payments WHERE status IN ('expired', 'superseded') AND expires_at < $1`,
			"refunds":     `SELECT COUNT(*) FROM refunds WHERE status = 'rejected' AND resolved_at < $1`,
			"audit_logs":  `SELECT COUNT(*) FROM audit_logs WHERE created_at < $1`,
		}
		for table, query := range counts {
			var count int64
			if err := db.GetContext(ctx, &count, query, cutoff); err != nil {
				fmt.Printf("  %s: error: %v\n", table, err)
				continue
			}
			fmt.Printf("  %s: %d would be deleted\n", table, count)
		}
		return
	}

	qrRepo := database.NewQRPaymentRepository(db)
	refundRepo := database.NewRefundRepository(db)
	auditRepo := database.NewAuditLogRepository(db)

	steps := []struct {
		name string
		run  func(context.Context, time.Time) (int64, error)
	}{
		{"qr_payments", qrRepo.PurgeExpired},
		{"refunds", refundRepo.PurgeResolved},
		{"audit_logs", auditRepo.DeleteOlderThan},
	}

	for _, step := range steps {
		deleted, err := step.run(ctx, cutoff)
		if err != nil {
			log.Fatalf("failed to purge %s: %v", step.name, err)
		}
		fmt.Printf("  %s: %d deleted\n", step.name, deleted)
	}

	fmt.Println("Purge completed successfully.")
}
