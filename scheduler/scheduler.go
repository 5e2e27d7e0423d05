package scheduler

import (
	"context"
	"time"

	"lottobook/application"
	"lottobook/config"
	"lottobook/domain"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// jobTimeout bounds a single scheduled run.
const jobTimeout = 5 * time.Minute

// Scheduler drives the recurring jobs: the weekly quota reset and the
// sweep that settles ingested draw results.
type Scheduler struct {
	cron *cron.Cron
	app  *application.App
}

// New creates a scheduler bound to the application facade. Jobs run on
// UTC wall time regardless of host timezone.
func New(app *application.App) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		app:  app,
	}
}

// Start registers the jobs from config and begins the cron loop.
func (s *Scheduler) Start(cfg *config.Config) error {
	if _, err := s.cron.AddFunc(cfg.QuotaResetCron, s.runQuotaReset); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(cfg.SettlementSweepCron, s.runSettlementSweep); err != nil {
		return err
	}
	s.cron.Start()
	log.WithFields(log.Fields{
		"quotaReset":      cfg.QuotaResetCron,
		"settlementSweep": cfg.SettlementSweepCron,
	}).Info("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("scheduler stopped")
}

func (s *Scheduler) runQuotaReset() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	entry, err := s.app.ResetQuotas(ctx)
	if err != nil {
		// Another instance holding the reset lock is expected, not an error
		if domain.IsConflict(err) {
			log.Info("quota reset already running elsewhere, skipping")
			return
		}
		log.WithError(err).Error("weekly quota reset failed")
		return
	}
	log.WithFields(log.Fields{
		"affectedAccounts": entry.AffectedAccounts,
		"totalReset":       entry.TotalReset,
	}).Info("weekly quota reset completed")
}

func (s *Scheduler) runSettlementSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.app.ProcessPendingResults(ctx); err != nil {
		log.WithError(err).Error("settlement sweep finished with failures")
	}
}
