package testhelpers

import (
	"context"
	"time"

	"lottobook/domain/entities"
	"lottobook/events"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*entities.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *entities.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) Update(ctx context.Context, account *entities.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByIDs(ctx context.Context, ids []int64) ([]*entities.Account, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetChildren(ctx context.Context, id int64) ([]*entities.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetDescendants(ctx context.Context, id int64) ([]*entities.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) CountActiveChildren(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int), args.Error(1)
}

func (m *MockAccountRepository) ReserveQuota(ctx context.Context, id int64, amount int64) (bool, error) {
	args := m.Called(ctx, id, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) RefundQuota(ctx context.Context, id int64, amount int64) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockAccountRepository) ResetAllQuotas(ctx context.Context) (int, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int), args.Get(1).(int64), args.Error(2)
}

func (m *MockAccountRepository) Reparent(ctx context.Context, accountID, newParentID int64, oldPath, newPath []int64) error {
	args := m.Called(ctx, accountID, newParentID, oldPath, newPath)
	return args.Error(0)
}

// MockProviderRepository is a mock implementation of ProviderRepository
type MockProviderRepository struct {
	mock.Mock
}

func (m *MockProviderRepository) GetByID(ctx context.Context, id int64) (*entities.Provider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Provider), args.Error(1)
}

func (m *MockProviderRepository) GetByCode(ctx context.Context, code string) (*entities.Provider, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Provider), args.Error(1)
}

func (m *MockProviderRepository) List(ctx context.Context, activeOnly bool) ([]*entities.Provider, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Provider), args.Error(1)
}

func (m *MockProviderRepository) Create(ctx context.Context, provider *entities.Provider) error {
	args := m.Called(ctx, provider)
	return args.Error(0)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *entities.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetByID(ctx context.Context, id int64, scope entities.AccessScope) (*entities.Bet, error) {
	args := m.Called(ctx, id, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) GetByReceipt(ctx context.Context, receipt string, scope entities.AccessScope) (*entities.Bet, error) {
	args := m.Called(ctx, receipt, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) List(ctx context.Context, filter entities.BetFilter, scope entities.AccessScope) ([]*entities.Bet, error) {
	args := m.Called(ctx, filter, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) CountForAccountSince(ctx context.Context, accountID int64, since time.Time) (int64, error) {
	args := m.Called(ctx, accountID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBetRepository) GetPendingByDraw(ctx context.Context, providerID int64, gameType entities.GameType, drawDate time.Time) ([]*entities.Bet, error) {
	args := m.Called(ctx, providerID, gameType, drawDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) UpdateLeg(ctx context.Context, leg *entities.BetLeg) (bool, error) {
	args := m.Called(ctx, leg)
	return args.Bool(0), args.Error(1)
}

func (m *MockBetRepository) UpdateAggregates(ctx context.Context, bet *entities.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) CancelBet(ctx context.Context, betID int64) (bool, error) {
	args := m.Called(ctx, betID)
	return args.Bool(0), args.Error(1)
}

// MockDrawResultRepository is a mock implementation of DrawResultRepository
type MockDrawResultRepository struct {
	mock.Mock
}

func (m *MockDrawResultRepository) Create(ctx context.Context, result *entities.DrawResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockDrawResultRepository) GetByID(ctx context.Context, id int64) (*entities.DrawResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DrawResult), args.Error(1)
}

func (m *MockDrawResultRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.DrawResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DrawResult), args.Error(1)
}

func (m *MockDrawResultRepository) GetByDraw(ctx context.Context, providerID int64, gameType entities.GameType, drawDate time.Time) (*entities.DrawResult, error) {
	args := m.Called(ctx, providerID, gameType, drawDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DrawResult), args.Error(1)
}

func (m *MockDrawResultRepository) ListPending(ctx context.Context) ([]*entities.DrawResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.DrawResult), args.Error(1)
}

func (m *MockDrawResultRepository) MarkFinal(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

// MockQuotaResetLogRepository is a mock implementation of QuotaResetLogRepository
type MockQuotaResetLogRepository struct {
	mock.Mock
}

func (m *MockQuotaResetLogRepository) Record(ctx context.Context, entry *entities.QuotaResetLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockQuotaResetLogRepository) List(ctx context.Context, limit int) ([]*entities.QuotaResetLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.QuotaResetLog), args.Error(1)
}

// MockAuditLogRepository is a mock implementation of AuditLogRepository
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Record(ctx context.Context, entry *entities.AuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLogRepository) ListByActor(ctx context.Context, actorID int64, limit int) ([]*entities.AuditLog, error) {
	args := m.Called(ctx, actorID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AuditLog), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockQuotaService is a mock implementation of QuotaService
type MockQuotaService struct {
	mock.Mock
}

func (m *MockQuotaService) Reserve(ctx context.Context, accountID, amount int64) error {
	args := m.Called(ctx, accountID, amount)
	return args.Error(0)
}

func (m *MockQuotaService) Refund(ctx context.Context, accountID, amount int64) error {
	args := m.Called(ctx, accountID, amount)
	return args.Error(0)
}

func (m *MockQuotaService) ResetAll(ctx context.Context) (*entities.QuotaResetLog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.QuotaResetLog), args.Error(1)
}

func (m *MockQuotaService) GetQuota(ctx context.Context, accountID, requesterID int64) (int64, int64, error) {
	args := m.Called(ctx, accountID, requesterID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuotaService) UpdateLimit(ctx context.Context, accountID, newLimit, actorID int64) error {
	args := m.Called(ctx, accountID, newLimit, actorID)
	return args.Error(0)
}
