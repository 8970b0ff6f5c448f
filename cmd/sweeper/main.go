// The sweeper retries provider deletes for accounts whose registration
// rollback failed. Run it on a schedule (cron or a systemd timer); each
// run makes one pass over the orphan table and exits.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"guardianlink/internal/config"
	"guardianlink/internal/database"
	"guardianlink/internal/identity"
	"guardianlink/internal/repository"
)

func main() {
	maxAttempts := flag.Int("max-attempts", 10, "give up on an orphan after this many delete attempts")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Open(cfg.DatabaseType, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	provider := identity.NewClient(cfg.IdentityBaseURL, cfg.IdentityAPIKey,
		cfg.IdentityServiceKey, cfg.IdentityJWTSecret)
	orphans := repository.NewOrphanRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deleted, failed, abandoned, err := sweep(ctx, provider, orphans, *maxAttempts)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}
	log.Printf("Sweep complete: deleted=%d failed=%d abandoned=%d", deleted, failed, abandoned)
}

// sweep tries to delete each orphaned provider account. Records past
// maxAttempts are dropped with a loud log line so an operator can
// handle them by hand.
func sweep(ctx context.Context, admin identity.Admin, orphans *repository.OrphanRepository, maxAttempts int) (deleted, failed, abandoned int, err error) {
	records, err := orphans.List()
	if err != nil {
		return 0, 0, 0, err
	}

	for _, o := range records {
		if o.Attempts >= maxAttempts {
			log.Printf("ABANDONING orphan account %s after %d attempts (reason: %s), delete it manually",
				o.AccountID, o.Attempts, o.Reason)
			if err := orphans.Delete(o.ID); err != nil {
				log.Printf("Failed to drop abandoned orphan record %d: %v", o.ID, err)
			}
			abandoned++
			continue
		}

		if err := admin.DeleteUser(ctx, o.AccountID); err != nil {
			log.Printf("Delete failed for orphan account %s (attempt %d): %v", o.AccountID, o.Attempts+1, err)
			if ierr := orphans.IncrementAttempts(o.ID); ierr != nil {
				log.Printf("Failed to bump attempts for orphan record %d: %v", o.ID, ierr)
			}
			failed++
			continue
		}

		if err := orphans.Delete(o.ID); err != nil {
			log.Printf("Account %s deleted but orphan record %d could not be removed: %v", o.AccountID, o.ID, err)
		}
		deleted++
	}

	return deleted, failed, abandoned, nil
}
