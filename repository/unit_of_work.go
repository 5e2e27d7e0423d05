package repository

import (
	"context"
	"fmt"

	"lottobook/application"
	"lottobook/database"
	"lottobook/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the application.UnitOfWork interface
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher application.TransactionalEventPublisher

	accountRepo       interfaces.AccountRepository
	providerRepo      interfaces.ProviderRepository
	betRepo           interfaces.BetRepository
	drawResultRepo    interfaces.DrawResultRepository
	quotaResetLogRepo interfaces.QuotaResetLogRepository
	auditLogRepo      interfaces.AuditLogRepository
}

type unitOfWorkFactory struct {
	db *database.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) application.UnitOfWorkFactory {
	return &unitOfWorkFactory{db: db}
}

// CreateWithPublisher creates a new UnitOfWork whose events flush on commit
func (f *unitOfWorkFactory) CreateWithPublisher(publisher application.TransactionalEventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: publisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.accountRepo = newAccountRepository(tx)
	u.providerRepo = newProviderRepository(tx)
	u.betRepo = newBetRepository(tx)
	u.drawResultRepo = newDrawResultRepository(tx)
	u.quotaResetLogRepo = newQuotaResetLogRepository(tx)
	u.auditLogRepo = newAuditLogRepository(tx)

	return nil
}

// Commit commits the transaction and flushes pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.tx = nil

	if u.transactionalPublisher != nil {
		if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
			return fmt.Errorf("failed to flush events after commit: %w", err)
		}
	}
	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

func (u *unitOfWork) mustBeStarted() {
	if u.tx == nil {
		panic("unit of work not started: call Begin first")
	}
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	u.mustBeStarted()
	return u.accountRepo
}

// ProviderRepository returns the provider repository for this unit of work
func (u *unitOfWork) ProviderRepository() interfaces.ProviderRepository {
	u.mustBeStarted()
	return u.providerRepo
}

// BetRepository returns the bet repository for this unit of work
func (u *unitOfWork) BetRepository() interfaces.BetRepository {
	u.mustBeStarted()
	return u.betRepo
}

// DrawResultRepository returns the draw result repository for this unit of work
func (u *unitOfWork) DrawResultRepository() interfaces.DrawResultRepository {
	u.mustBeStarted()
	return u.drawResultRepo
}

// QuotaResetLogRepository returns the reset log repository for this unit of work
func (u *unitOfWork) QuotaResetLogRepository() interfaces.QuotaResetLogRepository {
	u.mustBeStarted()
	return u.quotaResetLogRepo
}

// AuditLogRepository returns the audit log repository for this unit of work
func (u *unitOfWork) AuditLogRepository() interfaces.AuditLogRepository {
	u.mustBeStarted()
	return u.auditLogRepo
}
