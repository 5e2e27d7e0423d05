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

type settlementServiceMocks struct {
	resultRepo     *testhelpers.MockDrawResultRepository
	betRepo        *testhelpers.MockBetRepository
	providerRepo   *testhelpers.MockProviderRepository
	auditRepo      *testhelpers.MockAuditLogRepository
	eventPublisher *testhelpers.MockEventPublisher
}

func newSettlementServiceWithClock(at time.Time) (*settlementService, *settlementServiceMocks) {
	m := &settlementServiceMocks{
		resultRepo:     new(testhelpers.MockDrawResultRepository),
		betRepo:        new(testhelpers.MockBetRepository),
		providerRepo:   new(testhelpers.MockProviderRepository),
		auditRepo:      new(testhelpers.MockAuditLogRepository),
		eventPublisher: new(testhelpers.MockEventPublisher),
	}
	service := &settlementService{
		resultRepo:     m.resultRepo,
		betRepo:        m.betRepo,
		providerRepo:   m.providerRepo,
		auditRepo:      m.auditRepo,
		eventPublisher: m.eventPublisher,
		now:            newFixedClock(at),
	}
	return service, m
}

var settleNow = time.Date(2025, 6, 14, 21, 0, 0, 0, time.UTC)

func pendingResult(id int64) *entities.DrawResult {
	r := testResult()
	r.ID = id
	r.DrawDate = betDrawDate
	r.Status = entities.ResultStatusPending
	return r
}

func TestSettlementService_IngestResult(t *testing.T) {
	ctx := context.Background()
	service, m := newSettlementServiceWithClock(settleNow)

	m.providerRepo.On("GetByID", ctx, int64(1)).Return(placingProvider(1, "MAG"), nil)
	m.resultRepo.On("Create", ctx, mock.MatchedBy(func(r *entities.DrawResult) bool {
		return r.ProviderID == 1 &&
			r.GameType == entities.GameType4D &&
			r.Status == entities.ResultStatusPending &&
			r.FirstPrize == "1234" &&
			r.DrawDate.Equal(betDrawDate)
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*entities.DrawResult).ID = 3
	})
	m.auditRepo.On("Record", ctx, mock.MatchedBy(func(a *entities.AuditLog) bool {
		return a.Action == entities.AuditActionResultIngest && a.ActorID == nil
	})).Return(nil)

	src := testResult()
	result, err := service.IngestResult(ctx, interfaces.IngestResultInput{
		ProviderID:   1,
		GameType:     entities.GameType4D,
		DrawDate:     betDrawDate,
		FirstPrize:   src.FirstPrize,
		SecondPrize:  src.SecondPrize,
		ThirdPrize:   src.ThirdPrize,
		Starters:     src.Starters,
		Consolations: src.Consolations,
		Source:       entities.ResultSourceManual,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(3), result.ID)
	m.resultRepo.AssertExpectations(t)
}

func TestSettlementService_IngestResult_BadPools(t *testing.T) {
	ctx := context.Background()

	src := testResult()
	base := interfaces.IngestResultInput{
		ProviderID:   1,
		GameType:     entities.GameType4D,
		DrawDate:     betDrawDate,
		FirstPrize:   src.FirstPrize,
		SecondPrize:  src.SecondPrize,
		ThirdPrize:   src.ThirdPrize,
		Starters:     src.Starters,
		Consolations: src.Consolations,
		Source:       entities.ResultSourceSync,
	}

	tests := []struct {
		name   string
		mutate func(*interfaces.IngestResultInput)
	}{
		{"short starter pool", func(in *interfaces.IngestResultInput) { in.Starters = in.Starters[:9] }},
		{"wrong digit length in pool", func(in *interfaces.IngestResultInput) {
			in.Consolations = append([]string(nil), in.Consolations...)
			in.Consolations[0] = "123"
		}},
		{"wrong prize length", func(in *interfaces.IngestResultInput) { in.FirstPrize = "12345" }},
		{"unknown source", func(in *interfaces.IngestResultInput) { in.Source = "feed" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := newSettlementServiceWithClock(settleNow)
			m.providerRepo.On("GetByID", ctx, int64(1)).Return(placingProvider(1, "MAG"), nil).Maybe()

			input := base
			tt.mutate(&input)

			_, err := service.IngestResult(ctx, input)

			assert.True(t, domain.IsValidation(err), "expected validation error, got %v", err)
			m.resultRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestSettlementService_Process_SettlesMatchingLegs(t *testing.T) {
	ctx := context.Background()
	service, m := newSettlementServiceWithClock(settleNow)

	result := pendingResult(3)
	m.resultRepo.On("GetByIDForUpdate", ctx, int64(3)).Return(result, nil)

	// A winning first-prize bet and a losing one, each with a second leg on
	// another provider that must stay pending.
	winner := &entities.Bet{
		ID: 77, AccountID: 9,
		GameType: entities.GameType4D, Shape: entities.WagerShapeBig,
		Numbers: "1234", Status: entities.BetStatusPending, DrawDate: betDrawDate,
		Legs: []*entities.BetLeg{
			{ID: 1, BetID: 77, ProviderID: 1, Amount: 100, Status: entities.BetStatusPending},
			{ID: 2, BetID: 77, ProviderID: 2, Amount: 50, Status: entities.BetStatusPending},
		},
	}
	loser := &entities.Bet{
		ID: 78, AccountID: 9,
		GameType: entities.GameType4D, Shape: entities.WagerShapeBig,
		Numbers: "0000", Status: entities.BetStatusPending, DrawDate: betDrawDate,
		Legs: []*entities.BetLeg{
			{ID: 3, BetID: 78, ProviderID: 1, Amount: 200, Status: entities.BetStatusPending},
		},
	}

	m.betRepo.On("GetPendingByDraw", ctx, int64(1), entities.GameType4D, betDrawDate).
		Return([]*entities.Bet{winner, loser}, nil)
	m.betRepo.On("UpdateLeg", ctx, mock.MatchedBy(func(l *entities.BetLeg) bool {
		return l.ID == 1 && l.Status == entities.BetStatusWon && l.WinAmount == 250000 && l.ResultID != nil && *l.ResultID == 3
	})).Return(true, nil)
	m.betRepo.On("UpdateLeg", ctx, mock.MatchedBy(func(l *entities.BetLeg) bool {
		return l.ID == 3 && l.Status == entities.BetStatusLost && l.WinAmount == 0
	})).Return(true, nil)
	m.betRepo.On("UpdateAggregates", ctx, mock.MatchedBy(func(b *entities.Bet) bool {
		return b.ID == 77 && b.Status == entities.BetStatusPending
	})).Return(nil)
	m.betRepo.On("UpdateAggregates", ctx, mock.MatchedBy(func(b *entities.Bet) bool {
		return b.ID == 78 && b.Status == entities.BetStatusLost
	})).Return(nil)

	m.resultRepo.On("MarkFinal", ctx, int64(3), settleNow).Return(true, nil)
	m.auditRepo.On("Record", ctx, mock.MatchedBy(func(a *entities.AuditLog) bool {
		return a.Action == entities.AuditActionResultProcess
	})).Return(nil)
	m.eventPublisher.On("Publish", mock.AnythingOfType("events.ResultSettledEvent")).Return()

	summary, err := service.Process(ctx, 3)

	assert.NoError(t, err)
	assert.False(t, summary.AlreadyFinal)
	assert.Equal(t, 2, summary.LegsProcessed)
	assert.Equal(t, 1, summary.LegsWon)
	assert.Equal(t, 1, summary.LegsLost)
	assert.Equal(t, int64(250000), summary.TotalPaid)

	// The other provider's leg was left untouched.
	assert.Equal(t, entities.BetStatusPending, winner.Legs[1].Status)

	m.betRepo.AssertExpectations(t)
	m.resultRepo.AssertExpectations(t)
	m.eventPublisher.AssertExpectations(t)
}

func TestSettlementService_IngestResult_FutureDrawRejected(t *testing.T) {
	ctx := context.Background()
	service, m := newSettlementServiceWithClock(settleNow)

	m.providerRepo.On("GetByID", ctx, int64(1)).Return(placingProvider(1, "MAG"), nil)

	src := testResult()
	_, err := service.IngestResult(ctx, interfaces.IngestResultInput{
		ProviderID:   1,
		GameType:     entities.GameType4D,
		DrawDate:     betDrawDate.AddDate(0, 0, 7),
		FirstPrize:   src.FirstPrize,
		SecondPrize:  src.SecondPrize,
		ThirdPrize:   src.ThirdPrize,
		Starters:     src.Starters,
		Consolations: src.Consolations,
		Source:       entities.ResultSourceManual,
	})

	assert.True(t, domain.IsValidation(err))
	m.resultRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSettlementService_Process_SkipsConcurrentlyCancelledLeg(t *testing.T) {
	ctx := context.Background()
	service, m := newSettlementServiceWithClock(settleNow)

	result := pendingResult(3)
	m.resultRepo.On("GetByIDForUpdate", ctx, int64(3)).Return(result, nil)

	// Read as pending, but a cancellation commits before the leg write
	// lands; the guarded update reports no transition.
	cancelled := &entities.Bet{
		ID: 80, AccountID: 9,
		GameType: entities.GameType4D, Shape: entities.WagerShapeBig,
		Numbers: "1234", Status: entities.BetStatusPending, DrawDate: betDrawDate,
		Legs: []*entities.BetLeg{
			{ID: 5, BetID: 80, ProviderID: 1, Amount: 100, Status: entities.BetStatusPending},
		},
	}

	m.betRepo.On("GetPendingByDraw", ctx, int64(1), entities.GameType4D, betDrawDate).
		Return([]*entities.Bet{cancelled}, nil)
	m.betRepo.On("UpdateLeg", ctx, mock.MatchedBy(func(l *entities.BetLeg) bool {
		return l.ID == 5
	})).Return(false, nil)
	m.betRepo.On("UpdateAggregates", ctx, mock.Anything).Return(nil)
	m.resultRepo.On("MarkFinal", ctx, int64(3), settleNow).Return(true, nil)
	m.auditRepo.On("Record", ctx, mock.Anything).Return(nil)
	m.eventPublisher.On("Publish", mock.Anything).Return()

	summary, err := service.Process(ctx, 3)

	assert.NoError(t, err)
	assert.Equal(t, 0, summary.LegsProcessed)
	assert.Equal(t, 0, summary.LegsWon)
	assert.Equal(t, 0, summary.LegsLost)
	assert.Equal(t, int64(0), summary.TotalPaid)
	assert.Equal(t, entities.BetStatusCancelled, cancelled.Legs[0].Status)
	assert.Nil(t, cancelled.Legs[0].ResultID)
}

func TestSettlementService_Process_SmallShapeIgnoresPools(t *testing.T) {
	ctx := context.Background()
	service, m := newSettlementServiceWithClock(settleNow)

	result := pendingResult(3)
	m.resultRepo.On("GetByIDForUpdate", ctx, int64(3)).Return(result, nil)

	// 1111 is a starter; SMALL does not pay pool tiers.
	smallBet := &entities.Bet{
		ID: 79, AccountID: 9,
		GameType: entities.GameType4D, Shape: entities.WagerShapeSmall,
		Numbers: "1111", Status: entities.BetStatusPending, DrawDate: betDrawDate,
		Legs: []*entities.BetLeg{
			{ID: 4, BetID: 79, ProviderID: 1, Amount: 100, Status: entities.BetStatusPending},
		},
	}

	m.betRepo.On("GetPendingByDraw", ctx, int64(1), entities.GameType4D, betDrawDate).
		Return([]*entities.Bet{smallBet}, nil)
	m.betRepo.On("UpdateLeg", ctx, mock.MatchedBy(func(l *entities.BetLeg) bool {
		return l.ID == 4 && l.Status == entities.BetStatusLost
	})).Return(true, nil)
	m.betRepo.On("UpdateAggregates", ctx, mock.Anything).Return(nil)
	m.resultRepo.On("MarkFinal", ctx, int64(3), settleNow).Return(true, nil)
	m.auditRepo.On("Record", ctx, mock.Anything).Return(nil)
	m.eventPublisher.On("Publish", mock.Anything).Return()

	summary, err := service.Process(ctx, 3)

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.LegsLost)
	assert.Equal(t, int64(0), summary.TotalPaid)
}

func TestSettlementService_Process_FinalResultIsNoOp(t *testing.T) {
	ctx := context.Background()
	service, m := newSettlementServiceWithClock(settleNow)

	result := pendingResult(3)
	result.Finalize(settleNow.Add(-time.Hour))
	m.resultRepo.On("GetByIDForUpdate", ctx, int64(3)).Return(result, nil)

	summary, err := service.Process(ctx, 3)

	assert.NoError(t, err)
	assert.True(t, summary.AlreadyFinal)
	assert.Equal(t, 0, summary.LegsProcessed)
	m.betRepo.AssertNotCalled(t, "GetPendingByDraw", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.betRepo.AssertNotCalled(t, "UpdateLeg", mock.Anything, mock.Anything)
}

func TestSettlementService_Process_UnknownResult(t *testing.T) {
	ctx := context.Background()
	service, m := newSettlementServiceWithClock(settleNow)

	m.resultRepo.On("GetByIDForUpdate", ctx, int64(404)).Return(nil, nil)

	_, err := service.Process(ctx, 404)

	assert.True(t, domain.IsNotFound(err))
}

func TestSettlementService_ListPendingResults(t *testing.T) {
	ctx := context.Background()
	service, m := newSettlementServiceWithClock(settleNow)

	m.resultRepo.On("ListPending", ctx).Return([]*entities.DrawResult{pendingResult(3)}, nil)

	results, err := service.ListPendingResults(ctx)

	assert.NoError(t, err)
	assert.Len(t, results, 1)
}
