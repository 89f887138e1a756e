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

	"github.com/platinummonkey/quill/pkg/config"
	"github.com/platinummonkey/quill/pkg/invitations"
)

var (
	runOnce  = flag.Bool("run-once", false, "Reap expired invitations once and exit")
	schedule = flag.String("schedule", "", "Cron schedule overriding QUILL_INVITATION_REAP_SCHEDULE")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.Observability.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.Database.URL == "" {
		log.Fatal("QUILL_DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("Failed to ping database")
	}

	reaper := invitations.NewReaper(invitations.NewPostgresStore(db), nil)

	if *runOnce {
		j := newJanitor(reaper, nil, log)
		j.grace = cfg.Invitations.ReapGrace
		if err := j.reapOnce(context.Background()); err != nil {
			log.WithError(err).Fatal("Reap failed")
		}
		return
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log))))
	j := newJanitor(reaper, c, log)
	j.scheduleOverride = *schedule
	reapSchedule, reapGrace := j.settings(cfg)
	if err := j.apply(reapSchedule, reapGrace); err != nil {
		log.WithError(err).Fatal("Failed to schedule invitation reaping")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path := os.Getenv(config.ConfigFileEnv); path != "" {
		if err := watchConfig(ctx, path, log, j.reload); err != nil {
			log.WithError(err).Warn("Config file watching disabled")
		}
	}

	c.Start()
	log.WithFields(logrus.Fields{
		"schedule": reapSchedule,
		"grace":    reapGrace.String(),
	}).Info("Quill janitor started")

	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	// Wait for a running reap to finish
	<-c.Stop().Done()
	log.Info("Janitor stopped")
}
