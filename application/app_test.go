package application

import (
	"context"
	"errors"
	"testing"

	"lottobook/domain"
	"lottobook/domain/entities"
	"lottobook/domain/interfaces"
	"lottobook/domain/testhelpers"
	"lottobook/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeUnitOfWork hands out testify mocks as repositories and tracks the
// transaction lifecycle calls it receives.
type fakeUnitOfWork struct {
	accounts  *testhelpers.MockAccountRepository
	providers *testhelpers.MockProviderRepository
	bets      *testhelpers.MockBetRepository
	results   *testhelpers.MockDrawResultRepository
	resetLogs *testhelpers.MockQuotaResetLogRepository
	audits    *testhelpers.MockAuditLogRepository

	began      bool
	committed  bool
	rolledBack bool
}

func newFakeUnitOfWork() *fakeUnitOfWork {
	return &fakeUnitOfWork{
		accounts:  &testhelpers.MockAccountRepository{},
		providers: &testhelpers.MockProviderRepository{},
		bets:      &testhelpers.MockBetRepository{},
		results:   &testhelpers.MockDrawResultRepository{},
		resetLogs: &testhelpers.MockQuotaResetLogRepository{},
		audits:    &testhelpers.MockAuditLogRepository{},
	}
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error {
	u.began = true
	return nil
}

func (u *fakeUnitOfWork) Commit() error {
	u.committed = true
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	u.rolledBack = true
	return nil
}

func (u *fakeUnitOfWork) AccountRepository() interfaces.AccountRepository {
	return u.accounts
}

func (u *fakeUnitOfWork) ProviderRepository() interfaces.ProviderRepository {
	return u.providers
}

func (u *fakeUnitOfWork) BetRepository() interfaces.BetRepository {
	return u.bets
}

func (u *fakeUnitOfWork) DrawResultRepository() interfaces.DrawResultRepository {
	return u.results
}

func (u *fakeUnitOfWork) QuotaResetLogRepository() interfaces.QuotaResetLogRepository {
	return u.resetLogs
}

func (u *fakeUnitOfWork) AuditLogRepository() interfaces.AuditLogRepository {
	return u.audits
}

// fakeUnitOfWorkFactory serves prepared units in order.
type fakeUnitOfWorkFactory struct {
	pending []*fakeUnitOfWork
	created []*fakeUnitOfWork
}

func (f *fakeUnitOfWorkFactory) CreateWithPublisher(publisher TransactionalEventPublisher) UnitOfWork {
	if len(f.pending) == 0 {
		panic("no unit of work prepared for this call")
	}
	uow := f.pending[0]
	f.pending = f.pending[1:]
	f.created = append(f.created, uow)
	return uow
}

func TestApp_ResetQuotas_FailureEntrySurvivesRollback(t *testing.T) {
	first := newFakeUnitOfWork()
	second := newFakeUnitOfWork()
	factory := &fakeUnitOfWorkFactory{pending: []*fakeUnitOfWork{first, second}}
	app := NewApp(factory, events.NewBus())

	resetErr := errors.New("connection reset by peer")
	first.accounts.On("ResetAllQuotas", mock.Anything).Return(0, int64(0), resetErr)
	first.resetLogs.On("Record", mock.Anything, mock.Anything).Return(nil)

	// The failure entry must land on a transaction that commits, not on
	// the one that rolled back.
	second.resetLogs.On("Record", mock.Anything, mock.MatchedBy(func(entry *entities.QuotaResetLog) bool {
		return !entry.Success && entry.ErrorDetail != "" && entry.AffectedAccounts == 0
	})).Return(nil)

	entry, err := app.ResetQuotas(context.Background())
	require.Error(t, err)
	assert.Nil(t, entry)

	assert.True(t, first.rolledBack)
	assert.False(t, first.committed)
	require.Len(t, factory.created, 2)
	assert.True(t, second.committed)
	assert.False(t, second.rolledBack)
	second.resetLogs.AssertExpectations(t)
}

func TestApp_ResetQuotas_ConflictSkipsFailureEntry(t *testing.T) {
	uow := newFakeUnitOfWork()
	factory := &fakeUnitOfWorkFactory{pending: []*fakeUnitOfWork{uow}}
	app := NewApp(factory, events.NewBus())

	conflict := domain.Conflictf("quota reset already in progress")
	uow.accounts.On("ResetAllQuotas", mock.Anything).Return(0, int64(0), conflict)
	uow.resetLogs.On("Record", mock.Anything, mock.Anything).Return(nil)

	_, err := app.ResetQuotas(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	// The holder of the lock logs its own outcome; no extra entry here.
	assert.Len(t, factory.created, 1)
	assert.True(t, uow.rolledBack)
}

func TestApp_ResetQuotas_SuccessCommits(t *testing.T) {
	uow := newFakeUnitOfWork()
	factory := &fakeUnitOfWorkFactory{pending: []*fakeUnitOfWork{uow}}
	app := NewApp(factory, events.NewBus())

	uow.accounts.On("ResetAllQuotas", mock.Anything).Return(3, int64(1500), nil)
	uow.resetLogs.On("Record", mock.Anything, mock.MatchedBy(func(entry *entities.QuotaResetLog) bool {
		return entry.Success && entry.AffectedAccounts == 3 && entry.TotalReset == 1500
	})).Return(nil)
	uow.audits.On("Record", mock.Anything, mock.Anything).Return(nil)

	entry, err := app.ResetQuotas(context.Background())
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Success)

	assert.True(t, uow.committed)
	assert.False(t, uow.rolledBack)
	assert.Len(t, factory.created, 1)
}
