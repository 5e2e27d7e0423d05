package application

import (
	"context"

	"lottobook/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AccountRepository() interfaces.AccountRepository
	ProviderRepository() interfaces.ProviderRepository
	BetRepository() interfaces.BetRepository
	DrawResultRepository() interfaces.DrawResultRepository
	QuotaResetLogRepository() interfaces.QuotaResetLogRepository
	AuditLogRepository() interfaces.AuditLogRepository
}

// TransactionalEventPublisher collects events during a unit of work and
// releases them only after the transaction commits.
type TransactionalEventPublisher interface {
	interfaces.EventPublisher

	// Flush emits the collected events after a successful commit
	Flush(ctx context.Context) error

	// Discard drops the collected events after a rollback
	Discard()
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// CreateWithPublisher creates a new UnitOfWork whose events flush on commit
	CreateWithPublisher(publisher TransactionalEventPublisher) UnitOfWork
}
