package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"lottobook/domain/entities"
	"lottobook/events"
	"lottobook/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_CommitPersistsAndFlushesEvents(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	var mu sync.Mutex
	var received []events.Event
	done := make(chan struct{})
	bus.Subscribe(events.EventTypeBetPlaced, func(ctx context.Context, event events.Event) {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		close(done)
	})

	factory := NewUnitOfWorkFactory(testDB.DB)
	publisher := events.NewTransactionalBus(bus)
	uow := factory.CreateWithPublisher(publisher)
	require.NoError(t, uow.Begin(ctx))

	account := testutil.CreateTestAccount("committer")
	require.NoError(t, uow.AccountRepository().Create(ctx, account))
	publisher.Publish(events.BetPlacedEvent{BetID: 1, AccountID: account.ID})

	// Nothing reaches the bus before commit
	mu.Lock()
	assert.Empty(t, received)
	mu.Unlock()

	require.NoError(t, uow.Commit())

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event was not flushed after commit")
	}

	found, err := NewAccountRepository(testDB.DB).GetByUsername(ctx, "committer")
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestUnitOfWork_RollbackDiscards(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	var mu sync.Mutex
	var received []events.Event
	bus.Subscribe(events.EventTypeBetPlaced, func(ctx context.Context, event events.Event) {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
	})

	factory := NewUnitOfWorkFactory(testDB.DB)
	publisher := events.NewTransactionalBus(bus)
	uow := factory.CreateWithPublisher(publisher)
	require.NoError(t, uow.Begin(ctx))

	account := testutil.CreateTestAccount("rolled_back")
	require.NoError(t, uow.AccountRepository().Create(ctx, account))
	publisher.Publish(events.BetPlacedEvent{BetID: 1, AccountID: account.ID})

	require.NoError(t, uow.Rollback())

	found, err := NewAccountRepository(testDB.DB).GetByUsername(ctx, "rolled_back")
	require.NoError(t, err)
	assert.Nil(t, found)

	// Give any stray goroutine a moment, then confirm silence
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Empty(t, received)
	mu.Unlock()
}

func TestUnitOfWork_TransactionIsolation(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	factory := NewUnitOfWorkFactory(testDB.DB)
	uow := factory.CreateWithPublisher(events.NewTransactionalBus(events.NewBus()))
	require.NoError(t, uow.Begin(ctx))
	defer func() { _ = uow.Rollback() }()

	account := testutil.CreateTestAccount("invisible")
	require.NoError(t, uow.AccountRepository().Create(ctx, account))

	// Visible inside the transaction
	inside, err := uow.AccountRepository().GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, inside)

	// Invisible outside until commit
	outside, err := NewAccountRepository(testDB.DB).GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Nil(t, outside)
}

func TestUnitOfWork_AuditAndResetLogs(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	factory := NewUnitOfWorkFactory(testDB.DB)
	uow := factory.CreateWithPublisher(events.NewTransactionalBus(events.NewBus()))
	require.NoError(t, uow.Begin(ctx))

	account := testutil.CreateTestAccount("auditor")
	require.NoError(t, uow.AccountRepository().Create(ctx, account))

	entry := entities.NewAuditLog(&account.ID, entities.AuditActionQuotaUpdate, map[string]any{
		"newLimit": int64(500),
	})
	require.NoError(t, uow.AuditLogRepository().Record(ctx, entry))

	resetEntry := &entities.QuotaResetLog{
		StartedAt:        time.Now().UTC(),
		FinishedAt:       time.Now().UTC(),
		AffectedAccounts: 3,
		TotalReset:       750,
		Success:          true,
	}
	require.NoError(t, uow.QuotaResetLogRepository().Record(ctx, resetEntry))
	require.NoError(t, uow.Commit())

	audits, err := NewAuditLogRepository(testDB.DB).ListByActor(ctx, account.ID, 10)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, entities.AuditActionQuotaUpdate, audits[0].Action)
	assert.Equal(t, entry.EventID, audits[0].EventID)

	resets, err := NewQuotaResetLogRepository(testDB.DB).List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, resets, 1)
	assert.Equal(t, 3, resets[0].AffectedAccounts)
	assert.True(t, resets[0].Success)
}
