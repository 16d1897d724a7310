package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var (
	dbURL         = flag.String("db-url", getEnv("RELATO_POSTGRES_URL", "postgres://localhost/relato?sslmode=disable"), "PostgreSQL connection URL")
	schedule      = flag.String("schedule", getEnv("RELATO_NOTIFY_PURGE_SCHEDULE", "0 3 * * *"), "Cron schedule for the purge run")
	retentionDays = flag.Int("retention-days", 30, "Notifications older than this many days are deleted")
	auditDays     = flag.Int("audit-retention-days", 365, "Audit log entries older than this many days are deleted (0 keeps everything)")
	runOnce       = flag.Bool("run-once", false, "Run one purge and exit")
)

// The sweeper runs retention housekeeping that the API servers stay out of:
// purging read notifications and expired audit entries. It is safe to run
// alongside any number of API replicas.
func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("failed to ping database")
	}

	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		cutoff := time.Now().UTC().AddDate(0, 0, -*retentionDays)
		deleted, err := purgeNotifications(ctx, db, cutoff)
		if err != nil {
			log.WithError(err).Error("notification purge failed")
		} else if deleted > 0 {
			log.WithFields(logrus.Fields{"deleted": deleted, "cutoff": cutoff}).
				Info("purged old notifications")
		}

		if *auditDays > 0 {
			auditCutoff := time.Now().UTC().AddDate(0, 0, -*auditDays)
			deleted, err := purgeAuditLogs(ctx, db, auditCutoff)
			if err != nil {
				log.WithError(err).Error("audit log purge failed")
			} else if deleted > 0 {
				log.WithFields(logrus.Fields{"deleted": deleted, "cutoff": auditCutoff}).
					Info("purged old audit entries")
			}
		}
	}

	if *runOnce {
		sweep()
		return
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(*schedule, sweep); err != nil {
		log.WithError(err).Fatalf("invalid schedule %q", *schedule)
	}
	scheduler.Start()
	log.WithField("schedule", *schedule).Info("relato sweeper started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	<-scheduler.Stop().Done()
}

func purgeNotifications(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func purgeAuditLogs(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
