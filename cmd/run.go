package cmd

import (
	"context"
	"fmt"
	"time"

	"lottobook/application"
	"lottobook/config"
	"lottobook/database"
	"lottobook/domain/entities"
	"lottobook/domain/interfaces"
	"lottobook/events"
	"lottobook/repository"
	"lottobook/scheduler"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the service
func Run(ctx context.Context) error {
	// Load configuration
	cfg := config.Get()
	configureLogging(cfg)

	log.Info("Starting lottobook...")

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()
	registerEventLogging(eventBus)

	// Initialize unit of work factory and the application facade
	uowFactory := repository.NewUnitOfWorkFactory(db)
	app := application.NewApp(uowFactory, eventBus)

	// Start the scheduled jobs
	sched := scheduler.New(app)
	if err := sched.Start(cfg); err != nil {
		db.Close()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Wait for context cancellation
	log.Infof("Service is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Info("Shutting down...")
	sched.Stop()

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Info("Shutdown completed")
	}

	return nil
}

// Bootstrap creates the first top-level admin account. It is only useful
// against an empty hierarchy; an existing username is a conflict.
func Bootstrap(ctx context.Context, username string, quotaLimit int64) error {
	cfg := config.Get()
	configureLogging(cfg)

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	app := application.NewApp(repository.NewUnitOfWorkFactory(db), events.NewBus())

	account, err := app.CreateAccount(ctx, interfaces.CreateAccountInput{
		Username:             username,
		Role:                 entities.RoleAdmin,
		QuotaLimit:           quotaLimit,
		CanCreateSubAccounts: true,
	})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"accountID": account.ID,
		"username":  account.Username,
	}).Info("bootstrap account created")
	return nil
}

func configureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// registerEventLogging subscribes a log line per domain event so the
// journal shows activity even with no downstream consumers attached.
func registerEventLogging(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBetPlaced, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.BetPlacedEvent); ok {
			log.WithFields(log.Fields{
				"betID":   e.BetID,
				"receipt": e.Receipt,
				"total":   e.TotalAmount,
			}).Info("bet placed")
		}
	})
	bus.Subscribe(events.EventTypeResultSettled, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.ResultSettledEvent); ok {
			log.WithFields(log.Fields{
				"resultID":  e.ResultID,
				"legsWon":   e.LegsWon,
				"totalPaid": e.TotalPaid,
			}).Info("draw result settled")
		}
	})
	bus.Subscribe(events.EventTypeQuotasReset, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.QuotasResetEvent); ok {
			log.WithField("affectedAccounts", e.AffectedAccounts).Info("quotas reset")
		}
	})
}
