package services

import (
	"context"
	"testing"
	"time"

	"lottobook/domain"
	"lottobook/domain/entities"
	"lottobook/domain/interfaces"
	"lottobook/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type betServiceMocks struct {
	accountRepo    *testhelpers.MockAccountRepository
	providerRepo   *testhelpers.MockProviderRepository
	betRepo        *testhelpers.MockBetRepository
	auditRepo      *testhelpers.MockAuditLogRepository
	quota          *testhelpers.MockQuotaService
	eventPublisher *testhelpers.MockEventPublisher
}

func newBetServiceWithClock(at time.Time) (*betService, *betServiceMocks) {
	m := &betServiceMocks{
		accountRepo:    new(testhelpers.MockAccountRepository),
		providerRepo:   new(testhelpers.MockProviderRepository),
		betRepo:        new(testhelpers.MockBetRepository),
		auditRepo:      new(testhelpers.MockAuditLogRepository),
		quota:          new(testhelpers.MockQuotaService),
		eventPublisher: new(testhelpers.MockEventPublisher),
	}
	service := &betService{
		betRepo:        m.betRepo,
		accountRepo:    m.accountRepo,
		providerRepo:   m.providerRepo,
		auditRepo:      m.auditRepo,
		quota:          m.quota,
		eventPublisher: m.eventPublisher,
		now:            newFixedClock(at),
	}
	return service, m
}

// Friday morning; the following Saturday is a draw day for testProvider.
var betNow = time.Date(2025, 6, 13, 10, 0, 0, 0, time.UTC)
var betDrawDate = time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)

func placingProvider(id int64, code string) *entities.Provider {
	return &entities.Provider{
		ID:           id,
		Code:         code,
		Active:       true,
		GameTypes:    []entities.GameType{entities.GameType3D, entities.GameType4D},
		WagerShapes:  []entities.WagerShape{entities.WagerShapeBig, entities.WagerShapeSmall, entities.WagerShapeIBox},
		DrawDays:     []time.Weekday{time.Wednesday, time.Saturday},
		CutoffHour:   19,
		CutoffMinute: 0,
	}
}

func TestBetService_Place_TwoLegs(t *testing.T) {
	ctx := context.Background()
	service, m := newBetServiceWithClock(betNow)

	player := &entities.Account{ID: 9, Role: entities.RolePlayer, Active: true, QuotaLimit: 500}
	m.accountRepo.On("GetByID", ctx, int64(9)).Return(player, nil)
	m.providerRepo.On("GetByID", ctx, int64(1)).Return(placingProvider(1, "MAG"), nil)
	m.providerRepo.On("GetByID", ctx, int64(2)).Return(placingProvider(2, "DMC"), nil)
	m.quota.On("Reserve", ctx, int64(9), int64(250)).Return(nil)

	startOfDay := time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC)
	m.betRepo.On("CountForAccountSince", ctx, int64(9), startOfDay).Return(int64(1), nil)
	m.betRepo.On("GetByReceipt", ctx, "20250613-A9-0002", entities.SystemScope()).Return(nil, nil)

	m.betRepo.On("Create", ctx, mock.MatchedBy(func(b *entities.Bet) bool {
		return b.AccountID == 9 &&
			b.TotalAmount == 250 &&
			b.Receipt == "20250613-A9-0002" &&
			b.Status == entities.BetStatusPending &&
			len(b.Legs) == 2 &&
			b.Legs[0].Amount == 100 &&
			b.Legs[1].Amount == 150 &&
			b.DrawDate.Equal(betDrawDate)
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*entities.Bet).ID = 77
	})
	m.auditRepo.On("Record", ctx, mock.MatchedBy(func(a *entities.AuditLog) bool {
		return a.Action == entities.AuditActionBetPlace
	})).Return(nil)
	m.eventPublisher.On("Publish", mock.AnythingOfType("events.BetPlacedEvent")).Return()

	bet, err := service.Place(ctx, interfaces.PlaceBetInput{
		AccountID: 9,
		GameType:  entities.GameType4D,
		Shape:     entities.WagerShapeBig,
		Numbers:   "1234",
		DrawDate:  betDrawDate,
		Legs: []interfaces.PlaceBetLegInput{
			{ProviderID: 1, Amount: 100},
			{ProviderID: 2, Amount: 150},
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(77), bet.ID)
	assert.Equal(t, int64(250), bet.TotalAmount)
	assert.True(t, bet.HasPendingLegs())

	m.quota.AssertExpectations(t)
	m.betRepo.AssertExpectations(t)
	m.eventPublisher.AssertExpectations(t)
}

func TestBetService_Place_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	service, m := newBetServiceWithClock(betNow)

	player := &entities.Account{ID: 9, Role: entities.RolePlayer, Active: true, QuotaLimit: 500}
	m.accountRepo.On("GetByID", ctx, int64(9)).Return(player, nil)
	m.providerRepo.On("GetByID", ctx, int64(1)).Return(placingProvider(1, "MAG"), nil)
	m.quota.On("Reserve", ctx, int64(9), int64(400)).
		Return(domain.CapacityExceededf("quota exceeded"))

	_, err := service.Place(ctx, interfaces.PlaceBetInput{
		AccountID: 9,
		GameType:  entities.GameType4D,
		Shape:     entities.WagerShapeBig,
		Numbers:   "1234",
		DrawDate:  betDrawDate,
		Legs:      []interfaces.PlaceBetLegInput{{ProviderID: 1, Amount: 400}},
	})

	assert.True(t, domain.IsCapacityExceeded(err))
	m.betRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBetService_Place_ValidationFailures(t *testing.T) {
	ctx := context.Background()

	base := interfaces.PlaceBetInput{
		AccountID: 9,
		GameType:  entities.GameType4D,
		Shape:     entities.WagerShapeBig,
		Numbers:   "1234",
		DrawDate:  betDrawDate,
		Legs:      []interfaces.PlaceBetLegInput{{ProviderID: 1, Amount: 100}},
	}

	tests := []struct {
		name   string
		mutate func(*interfaces.PlaceBetInput)
	}{
		{"no legs", func(in *interfaces.PlaceBetInput) { in.Legs = nil }},
		{"wrong digit length", func(in *interfaces.PlaceBetInput) { in.Numbers = "123" }},
		{"non-digit numbers", func(in *interfaces.PlaceBetInput) { in.Numbers = "12a4" }},
		{"unknown game type", func(in *interfaces.PlaceBetInput) { in.GameType = "5D" }},
		{"unknown shape", func(in *interfaces.PlaceBetInput) { in.Shape = "BOX" }},
		{"zero leg amount", func(in *interfaces.PlaceBetInput) { in.Legs[0].Amount = 0 }},
		{"duplicate provider legs", func(in *interfaces.PlaceBetInput) {
			in.Legs = []interfaces.PlaceBetLegInput{{ProviderID: 1, Amount: 100}, {ProviderID: 1, Amount: 50}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := newBetServiceWithClock(betNow)
			player := &entities.Account{ID: 9, Role: entities.RolePlayer, Active: true, QuotaLimit: 500}
			m.accountRepo.On("GetByID", ctx, int64(9)).Return(player, nil).Maybe()
			m.providerRepo.On("GetByID", ctx, int64(1)).Return(placingProvider(1, "MAG"), nil).Maybe()

			input := base
			input.Legs = append([]interfaces.PlaceBetLegInput(nil), base.Legs...)
			tt.mutate(&input)

			_, err := service.Place(ctx, input)

			assert.True(t, domain.IsValidation(err), "expected validation error, got %v", err)
			m.quota.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestBetService_Place_SalesClosed(t *testing.T) {
	ctx := context.Background()
	// Saturday at the cutoff instant.
	service, m := newBetServiceWithClock(time.Date(2025, 6, 14, 19, 0, 0, 0, time.UTC))

	player := &entities.Account{ID: 9, Role: entities.RolePlayer, Active: true, QuotaLimit: 500}
	m.accountRepo.On("GetByID", ctx, int64(9)).Return(player, nil)
	m.providerRepo.On("GetByID", ctx, int64(1)).Return(placingProvider(1, "MAG"), nil)

	_, err := service.Place(ctx, interfaces.PlaceBetInput{
		AccountID: 9,
		GameType:  entities.GameType4D,
		Shape:     entities.WagerShapeBig,
		Numbers:   "1234",
		DrawDate:  betDrawDate,
		Legs:      []interfaces.PlaceBetLegInput{{ProviderID: 1, Amount: 100}},
	})

	assert.True(t, domain.IsValidation(err))
}

func TestBetService_Place_InactiveAccount(t *testing.T) {
	ctx := context.Background()
	service, m := newBetServiceWithClock(betNow)

	player := &entities.Account{ID: 9, Role: entities.RolePlayer, Active: false}
	m.accountRepo.On("GetByID", ctx, int64(9)).Return(player, nil)

	_, err := service.Place(ctx, interfaces.PlaceBetInput{
		AccountID: 9,
		GameType:  entities.GameType4D,
		Shape:     entities.WagerShapeBig,
		Numbers:   "1234",
		DrawDate:  betDrawDate,
		Legs:      []interfaces.PlaceBetLegInput{{ProviderID: 1, Amount: 100}},
	})

	assert.True(t, domain.IsValidation(err))
}

func TestBetService_Cancel_RefundsQuota(t *testing.T) {
	ctx := context.Background()
	service, m := newBetServiceWithClock(betNow)

	player := &entities.Account{ID: 9, Role: entities.RolePlayer, Active: true}
	bet := &entities.Bet{
		ID:          77,
		AccountID:   9,
		TotalAmount: 250,
		DrawDate:    betDrawDate,
		Status:      entities.BetStatusPending,
	}

	m.accountRepo.On("GetByID", ctx, int64(9)).Return(player, nil)
	m.betRepo.On("GetByID", ctx, int64(77), entities.ScopeForAccount(player)).Return(bet, nil)
	m.betRepo.On("CancelBet", ctx, int64(77)).Return(true, nil)
	m.quota.On("Refund", ctx, int64(9), int64(250)).Return(nil)
	m.auditRepo.On("Record", ctx, mock.MatchedBy(func(a *entities.AuditLog) bool {
		return a.Action == entities.AuditActionBetCancel
	})).Return(nil)
	m.eventPublisher.On("Publish", mock.AnythingOfType("events.BetCancelledEvent")).Return()

	err := service.Cancel(ctx, 77, 9)

	assert.NoError(t, err)
	m.quota.AssertExpectations(t)
	m.betRepo.AssertExpectations(t)
}

func TestBetService_Cancel_AlreadySettled(t *testing.T) {
	ctx := context.Background()
	service, m := newBetServiceWithClock(betNow)

	player := &entities.Account{ID: 9, Role: entities.RolePlayer, Active: true}
	bet := &entities.Bet{ID: 77, AccountID: 9, DrawDate: betDrawDate, Status: entities.BetStatusWon}

	m.accountRepo.On("GetByID", ctx, int64(9)).Return(player, nil)
	m.betRepo.On("GetByID", ctx, int64(77), entities.ScopeForAccount(player)).Return(bet, nil)

	err := service.Cancel(ctx, 77, 9)

	assert.True(t, domain.IsAlreadyFinalized(err))
	m.quota.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything)
}

func TestBetService_Cancel_OnDrawDate(t *testing.T) {
	ctx := context.Background()
	// Midnight on the draw date; cancellation window has closed.
	service, m := newBetServiceWithClock(betDrawDate)

	player := &entities.Account{ID: 9, Role: entities.RolePlayer, Active: true}
	bet := &entities.Bet{ID: 77, AccountID: 9, DrawDate: betDrawDate, Status: entities.BetStatusPending}

	m.accountRepo.On("GetByID", ctx, int64(9)).Return(player, nil)
	m.betRepo.On("GetByID", ctx, int64(77), entities.ScopeForAccount(player)).Return(bet, nil)

	err := service.Cancel(ctx, 77, 9)

	assert.True(t, domain.IsValidation(err))
}

func TestBetService_Cancel_LostRace(t *testing.T) {
	ctx := context.Background()
	service, m := newBetServiceWithClock(betNow)

	player := &entities.Account{ID: 9, Role: entities.RolePlayer, Active: true}
	bet := &entities.Bet{ID: 77, AccountID: 9, TotalAmount: 250, DrawDate: betDrawDate, Status: entities.BetStatusPending}

	m.accountRepo.On("GetByID", ctx, int64(9)).Return(player, nil)
	m.betRepo.On("GetByID", ctx, int64(77), entities.ScopeForAccount(player)).Return(bet, nil)
	m.betRepo.On("CancelBet", ctx, int64(77)).Return(false, nil)

	err := service.Cancel(ctx, 77, 9)

	assert.True(t, domain.IsAlreadyFinalized(err))
	m.quota.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything)
}

func TestBetService_Cancel_OutOfScopeLooksMissing(t *testing.T) {
	ctx := context.Background()
	service, m := newBetServiceWithClock(betNow)

	stranger := &entities.Account{ID: 10, Role: entities.RolePlayer, Active: true}
	m.accountRepo.On("GetByID", ctx, int64(10)).Return(stranger, nil)
	m.betRepo.On("GetByID", ctx, int64(77), entities.ScopeForAccount(stranger)).Return(nil, nil)

	err := service.Cancel(ctx, 77, 10)

	assert.True(t, domain.IsNotFound(err))
}

func TestBetService_GetByReceipt(t *testing.T) {
	ctx := context.Background()
	service, m := newBetServiceWithClock(betNow)

	player := &entities.Account{ID: 9, Role: entities.RolePlayer, Active: true}
	bet := &entities.Bet{ID: 77, AccountID: 9, Receipt: "20250613-A9-0002"}

	m.accountRepo.On("GetByID", ctx, int64(9)).Return(player, nil)
	m.betRepo.On("GetByReceipt", ctx, "20250613-A9-0002", entities.ScopeForAccount(player)).Return(bet, nil)

	found, err := service.GetByReceipt(ctx, "20250613-A9-0002", 9)

	assert.NoError(t, err)
	assert.Equal(t, int64(77), found.ID)
}

func TestBetService_List_LimitDefaultsAndCaps(t *testing.T) {
	ctx := context.Background()
	service, m := newBetServiceWithClock(betNow)

	admin := &entities.Account{ID: 1, Role: entities.RoleAdmin, Active: true}
	m.accountRepo.On("GetByID", ctx, int64(1)).Return(admin, nil)

	m.betRepo.On("List", ctx, mock.MatchedBy(func(f entities.BetFilter) bool {
		return f.Limit == defaultListLimit
	}), entities.SystemScope()).Return([]*entities.Bet{}, nil).Once()
	_, err := service.List(ctx, entities.BetFilter{}, 1)
	assert.NoError(t, err)

	m.betRepo.On("List", ctx, mock.MatchedBy(func(f entities.BetFilter) bool {
		return f.Limit == maxListLimit
	}), entities.SystemScope()).Return([]*entities.Bet{}, nil).Once()
	_, err = service.List(ctx, entities.BetFilter{Limit: 10000}, 1)
	assert.NoError(t, err)

	m.betRepo.AssertExpectations(t)
}
