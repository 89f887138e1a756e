package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/quill/pkg/config"
)

// reapTimeout bounds a single reap run
const reapTimeout = 5 * time.Minute

// reaper deletes long-expired invitations
type reaper interface {
	Reap(ctx context.Context, grace time.Duration) (int64, error)
}

// janitor runs the reaper on a cron schedule that can change at runtime
type janitor struct {
	reaper reaper
	cron   *cron.Cron
	log    *logrus.Logger

	// scheduleOverride comes from -schedule and wins over every config load
	scheduleOverride string
	load             func() (*config.Config, error)

	mu       sync.Mutex
	entry    cron.EntryID
	schedule string
	grace    time.Duration
}

func newJanitor(r reaper, c *cron.Cron, log *logrus.Logger) *janitor {
	return &janitor{reaper: r, cron: c, log: log, load: config.Load}
}

// settings returns the reap schedule and grace for cfg, honouring the
// command line override
func (j *janitor) settings(cfg *config.Config) (string, time.Duration) {
	schedule := cfg.Invitations.ReapSchedule
	if j.scheduleOverride != "" {
		schedule = j.scheduleOverride
	}
	return schedule, cfg.Invitations.ReapGrace
}

// apply installs schedule and grace, replacing the current job when the
// schedule changed
func (j *janitor) apply(schedule string, grace time.Duration) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.grace = grace
	if schedule == j.schedule && j.entry != 0 {
		return nil
	}

	entry, err := j.cron.AddFunc(schedule, j.runScheduled)
	if err != nil {
		return fmt.Errorf("invalid reap schedule %q: %w", schedule, err)
	}
	if j.entry != 0 {
		j.cron.Remove(j.entry)
	}
	j.entry = entry
	j.schedule = schedule
	return nil
}

// reload re-reads configuration and applies the reap settings
func (j *janitor) reload() {
	cfg, err := j.load()
	if err != nil {
		j.log.WithError(err).Warn("Ignoring invalid configuration change")
		return
	}
	schedule, grace := j.settings(cfg)
	if err := j.apply(schedule, grace); err != nil {
		j.log.WithError(err).Warn("Ignoring invalid configuration change")
		return
	}
	j.log.WithFields(logrus.Fields{
		"schedule": schedule,
		"grace":    grace.String(),
	}).Info("Reap settings reloaded")
}

func (j *janitor) runScheduled() {
	if err := j.reapOnce(context.Background()); err != nil {
		j.log.WithError(err).Error("Invitation reaping failed")
	}
}

func (j *janitor) reapOnce(ctx context.Context) error {
	j.mu.Lock()
	grace := j.grace
	j.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, reapTimeout)
	defer cancel()

	start := time.Now()
	n, err := j.reaper.Reap(ctx, grace)
	if err != nil {
		return err
	}
	j.log.WithFields(logrus.Fields{
		"deleted":     n,
		"grace":       grace.String(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Expired invitations reaped")
	return nil
}
