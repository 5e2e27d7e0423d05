package application

import (
	"context"
	"fmt"
	"time"

	"lottobook/domain"
	"lottobook/domain/entities"
	"lottobook/domain/interfaces"
	"lottobook/domain/services"
	"lottobook/events"

	log "github.com/sirupsen/logrus"
)

// App is the transactional facade over the domain services. Every operation
// runs inside one unit of work: the services see repositories bound to the
// transaction, and events publish only after commit.
type App struct {
	uowFactory UnitOfWorkFactory
	eventBus   *events.Bus
}

// NewApp creates the application facade.
func NewApp(uowFactory UnitOfWorkFactory, eventBus *events.Bus) *App {
	return &App{
		uowFactory: uowFactory,
		eventBus:   eventBus,
	}
}

// EventBus exposes the bus for handler subscriptions.
func (a *App) EventBus() *events.Bus {
	return a.eventBus
}

// serviceSet wires the domain services to one transaction's repositories.
type serviceSet struct {
	hierarchy  interfaces.HierarchyService
	quota      interfaces.QuotaService
	bets       interfaces.BetService
	settlement interfaces.SettlementService
}

func (a *App) withUow(ctx context.Context, fn func(uow UnitOfWork, svc *serviceSet) error) error {
	publisher := events.NewTransactionalBus(a.eventBus)
	uow := a.uowFactory.CreateWithPublisher(publisher)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if rbErr := uow.Rollback(); rbErr != nil {
				log.WithError(rbErr).Error("rollback failed during panic recovery")
			}
			panic(r)
		}
	}()

	quota := services.NewQuotaService(
		uow.AccountRepository(),
		uow.QuotaResetLogRepository(),
		uow.AuditLogRepository(),
		publisher,
	)
	svc := &serviceSet{
		hierarchy: services.NewHierarchyService(
			uow.AccountRepository(),
			uow.AuditLogRepository(),
		),
		quota: quota,
		bets: services.NewBetService(
			uow.BetRepository(),
			uow.AccountRepository(),
			uow.ProviderRepository(),
			uow.AuditLogRepository(),
			quota,
			publisher,
		),
		settlement: services.NewSettlementService(
			uow.DrawResultRepository(),
			uow.BetRepository(),
			uow.ProviderRepository(),
			uow.AuditLogRepository(),
			publisher,
		),
	}

	if err := fn(uow, svc); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			log.WithError(rbErr).Error("rollback failed")
		}
		return err
	}
	return uow.Commit()
}

// CreateAccount adds an account to the hierarchy.
func (a *App) CreateAccount(ctx context.Context, input interfaces.CreateAccountInput) (*entities.Account, error) {
	var account *entities.Account
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		account, err = svc.hierarchy.CreateAccount(ctx, input)
		return err
	})
	return account, err
}

// GetAncestors returns an account's upline, nearest parent first.
func (a *App) GetAncestors(ctx context.Context, accountID int64) ([]*entities.Account, error) {
	var ancestors []*entities.Account
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		ancestors, err = svc.hierarchy.GetAncestors(ctx, accountID)
		return err
	})
	return ancestors, err
}

// GetChildren returns an account's direct children.
func (a *App) GetChildren(ctx context.Context, accountID int64) ([]*entities.Account, error) {
	var children []*entities.Account
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		children, err = svc.hierarchy.GetChildren(ctx, accountID)
		return err
	})
	return children, err
}

// GetDescendants returns an account's whole subtree with relative depths.
func (a *App) GetDescendants(ctx context.Context, accountID int64) ([]*entities.AccountNode, error) {
	var nodes []*entities.AccountNode
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		nodes, err = svc.hierarchy.GetDescendants(ctx, accountID)
		return err
	})
	return nodes, err
}

// ReparentAccount moves an account and its subtree under a new parent.
func (a *App) ReparentAccount(ctx context.Context, accountID, newParentID, actorID int64) error {
	return a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		return svc.hierarchy.Reparent(ctx, accountID, newParentID, actorID)
	})
}

// SetAccountActive toggles an account's soft-delete flag.
func (a *App) SetAccountActive(ctx context.Context, accountID int64, active bool, actorID int64) error {
	return a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		return svc.hierarchy.SetActive(ctx, accountID, active, actorID)
	})
}

// GetQuota returns an account's weekly limit and used amount.
func (a *App) GetQuota(ctx context.Context, accountID, requesterID int64) (limit, used int64, err error) {
	err = a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		limit, used, err = svc.quota.GetQuota(ctx, accountID, requesterID)
		return err
	})
	return limit, used, err
}

// UpdateQuotaLimit sets an account's weekly limit.
func (a *App) UpdateQuotaLimit(ctx context.Context, accountID, newLimit, actorID int64) error {
	return a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		return svc.quota.UpdateLimit(ctx, accountID, newLimit, actorID)
	})
}

// ResetQuotas zeroes every account's used quota and logs the run. A
// failed run still leaves a log entry: the rollback discards anything the
// failing transaction wrote, so the failure entry is recorded through a
// fresh transaction afterwards.
func (a *App) ResetQuotas(ctx context.Context) (*entities.QuotaResetLog, error) {
	started := time.Now().UTC()
	var entry *entities.QuotaResetLog
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		entry, err = svc.quota.ResetAll(ctx)
		return err
	})
	if err == nil {
		return entry, nil
	}

	// A conflict means another reset holds the advisory lock; that run
	// logs its own outcome.
	if !domain.IsConflict(err) {
		if logErr := a.recordResetFailure(ctx, started, err); logErr != nil {
			log.WithError(logErr).Error("failed to record quota reset failure entry")
		}
	}
	return nil, err
}

func (a *App) recordResetFailure(ctx context.Context, started time.Time, resetErr error) error {
	uow := a.uowFactory.CreateWithPublisher(events.NewTransactionalBus(a.eventBus))
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	entry := &entities.QuotaResetLog{
		StartedAt:   started,
		FinishedAt:  time.Now().UTC(),
		Success:     false,
		ErrorDetail: resetErr.Error(),
	}
	if err := uow.QuotaResetLogRepository().Record(ctx, entry); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			log.WithError(rbErr).Error("rollback failed")
		}
		return err
	}
	return uow.Commit()
}

// ResetHistory returns the most recent quota reset log entries.
func (a *App) ResetHistory(ctx context.Context, limit int) ([]*entities.QuotaResetLog, error) {
	var entries []*entities.QuotaResetLog
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		entries, err = uow.QuotaResetLogRepository().List(ctx, limit)
		return err
	})
	return entries, err
}

// PlaceBet validates, reserves quota and persists a composite bet.
func (a *App) PlaceBet(ctx context.Context, input interfaces.PlaceBetInput) (*entities.Bet, error) {
	var bet *entities.Bet
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		bet, err = svc.bets.Place(ctx, input)
		return err
	})
	return bet, err
}

// CancelBet cancels a pending bet and refunds its quota.
func (a *App) CancelBet(ctx context.Context, betID, requesterID int64) error {
	return a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		return svc.bets.Cancel(ctx, betID, requesterID)
	})
}

// GetBet returns a bet visible to the requester.
func (a *App) GetBet(ctx context.Context, betID, requesterID int64) (*entities.Bet, error) {
	var bet *entities.Bet
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		bet, err = svc.bets.GetByID(ctx, betID, requesterID)
		return err
	})
	return bet, err
}

// GetBetByReceipt returns a bet by receipt code, visible to the requester.
func (a *App) GetBetByReceipt(ctx context.Context, receipt string, requesterID int64) (*entities.Bet, error) {
	var bet *entities.Bet
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		bet, err = svc.bets.GetByReceipt(ctx, receipt, requesterID)
		return err
	})
	return bet, err
}

// ListBets returns the requester's visible bets matching the filter.
func (a *App) ListBets(ctx context.Context, filter entities.BetFilter, requesterID int64) ([]*entities.Bet, error) {
	var bets []*entities.Bet
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		bets, err = svc.bets.List(ctx, filter, requesterID)
		return err
	})
	return bets, err
}

// IngestResult records a provider's draw outcome.
func (a *App) IngestResult(ctx context.Context, input interfaces.IngestResultInput) (*entities.DrawResult, error) {
	var result *entities.DrawResult
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		result, err = svc.settlement.IngestResult(ctx, input)
		return err
	})
	return result, err
}

// ProcessResult settles every open leg against one ingested result.
func (a *App) ProcessResult(ctx context.Context, resultID int64) (*interfaces.SettlementSummary, error) {
	var summary *interfaces.SettlementSummary
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		summary, err = svc.settlement.Process(ctx, resultID)
		return err
	})
	return summary, err
}

// ProcessPendingResults settles all ingested results awaiting processing,
// each in its own transaction so one failure does not hold the rest back.
func (a *App) ProcessPendingResults(ctx context.Context) error {
	var pending []*entities.DrawResult
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		pending, err = svc.settlement.ListPendingResults(ctx)
		return err
	})
	if err != nil {
		return err
	}

	var failures int
	for _, result := range pending {
		if _, err := a.ProcessResult(ctx, result.ID); err != nil {
			failures++
			log.WithError(err).WithField("resultID", result.ID).Error("failed to process draw result")
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d pending results failed to process", failures, len(pending))
	}
	return nil
}

// CreateProvider registers a new game provider.
func (a *App) CreateProvider(ctx context.Context, provider *entities.Provider) error {
	return a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		return uow.ProviderRepository().Create(ctx, provider)
	})
}

// ListProviders returns the provider directory.
func (a *App) ListProviders(ctx context.Context, activeOnly bool) ([]*entities.Provider, error) {
	var providers []*entities.Provider
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		providers, err = uow.ProviderRepository().List(ctx, activeOnly)
		return err
	})
	return providers, err
}

// AuditTrail returns the most recent audit entries for an acting account.
func (a *App) AuditTrail(ctx context.Context, actorID int64, limit int) ([]*entities.AuditLog, error) {
	var entries []*entities.AuditLog
	err := a.withUow(ctx, func(uow UnitOfWork, svc *serviceSet) error {
		var err error
		entries, err = uow.AuditLogRepository().ListByActor(ctx, actorID, limit)
		return err
	})
	return entries, err
}
