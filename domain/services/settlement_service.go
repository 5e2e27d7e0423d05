package services

import (
	"context"
	"fmt"
	"time"

	"lottobook/domain"
	"lottobook/domain/entities"
	"lottobook/domain/interfaces"
	"lottobook/events"

	log "github.com/sirupsen/logrus"
)

// settlementService ingests draw results and settles open legs exactly once.
type settlementService struct {
	resultRepo     interfaces.DrawResultRepository
	betRepo        interfaces.BetRepository
	providerRepo   interfaces.ProviderRepository
	auditRepo      interfaces.AuditLogRepository
	eventPublisher interfaces.EventPublisher
	now            func() time.Time
}

// NewSettlementService creates a new settlement service.
func NewSettlementService(
	resultRepo interfaces.DrawResultRepository,
	betRepo interfaces.BetRepository,
	providerRepo interfaces.ProviderRepository,
	auditRepo interfaces.AuditLogRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.SettlementService {
	return &settlementService{
		resultRepo:     resultRepo,
		betRepo:        betRepo,
		providerRepo:   providerRepo,
		auditRepo:      auditRepo,
		eventPublisher: eventPublisher,
		now:            time.Now,
	}
}

// IngestResult records one provider's draw outcome. The (provider, game
// type, draw date) tuple is unique; a second ingest for the same draw is a
// conflict regardless of payload.
func (s *settlementService) IngestResult(ctx context.Context, input interfaces.IngestResultInput) (*entities.DrawResult, error) {
	if err := validate.Struct(input); err != nil {
		return nil, domain.WrapValidation(err, "invalid result input")
	}
	if !input.GameType.Valid() {
		return nil, domain.Validationf("unknown game type %q", input.GameType)
	}
	if input.Source != entities.ResultSourceManual && input.Source != entities.ResultSourceSync {
		return nil, domain.Validationf("unknown result source %q", input.Source)
	}

	provider, err := s.providerRepo.GetByID(ctx, input.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load provider: %w", err)
	}
	if provider == nil {
		return nil, domain.Validationf("unknown provider %d", input.ProviderID)
	}
	if !provider.SupportsGame(input.GameType) {
		return nil, domain.Validationf("provider %s does not run %s draws", provider.Code, input.GameType)
	}

	// A result can only exist for a draw that has taken place. Accepting
	// future dates would let settlement race bets that are still open for
	// cancellation.
	drawDate := normalizeDrawDate(input.DrawDate)
	if drawDate.After(normalizeDrawDate(s.now().UTC())) {
		return nil, domain.Validationf("draw date %s has not occurred yet", drawDate.Format("2006-01-02"))
	}

	for _, prize := range []string{input.FirstPrize, input.SecondPrize, input.ThirdPrize} {
		if err := validateNumbers(prize, input.GameType); err != nil {
			return nil, err
		}
	}
	if err := validatePool("starter", input.Starters, input.GameType); err != nil {
		return nil, err
	}
	if err := validatePool("consolation", input.Consolations, input.GameType); err != nil {
		return nil, err
	}

	result := &entities.DrawResult{
		ProviderID:   input.ProviderID,
		GameType:     input.GameType,
		DrawDate:     drawDate,
		FirstPrize:   input.FirstPrize,
		SecondPrize:  input.SecondPrize,
		ThirdPrize:   input.ThirdPrize,
		Starters:     input.Starters,
		Consolations: input.Consolations,
		Status:       entities.ResultStatusPending,
		Source:       input.Source,
	}
	if err := s.resultRepo.Create(ctx, result); err != nil {
		return nil, err
	}

	audit := entities.NewAuditLog(nil, entities.AuditActionResultIngest, map[string]any{
		"result_id":   result.ID,
		"provider_id": result.ProviderID,
		"game_type":   string(result.GameType),
		"draw_date":   result.DrawDate.Format("2006-01-02"),
		"source":      string(result.Source),
	})
	if err := s.auditRepo.Record(ctx, audit); err != nil {
		return nil, fmt.Errorf("failed to record ingest audit entry: %w", err)
	}

	log.WithFields(log.Fields{
		"resultID":   result.ID,
		"providerID": result.ProviderID,
		"gameType":   result.GameType,
		"drawDate":   result.DrawDate.Format("2006-01-02"),
	}).Info("draw result ingested")

	return result, nil
}

// Process settles every open leg matching the result and marks the result
// final. The result row is locked for the duration of the transaction, so
// concurrent processors serialize and the loser sees a final result and
// returns without touching any leg.
func (s *settlementService) Process(ctx context.Context, resultID int64) (*interfaces.SettlementSummary, error) {
	result, err := s.resultRepo.GetByIDForUpdate(ctx, resultID)
	if err != nil {
		return nil, fmt.Errorf("failed to load result: %w", err)
	}
	if result == nil {
		return nil, domain.NotFoundf("draw result %d not found", resultID)
	}
	if result.IsFinal() {
		return &interfaces.SettlementSummary{ResultID: resultID, AlreadyFinal: true}, nil
	}

	bets, err := s.betRepo.GetPendingByDraw(ctx, result.ProviderID, result.GameType, result.DrawDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load open bets: %w", err)
	}

	summary := &interfaces.SettlementSummary{ResultID: resultID}
	for _, bet := range bets {
		for _, leg := range bet.Legs {
			if leg.Status != entities.BetStatusPending || leg.ProviderID != result.ProviderID {
				continue
			}
			tier := DeterminePrizeTier(bet.Numbers, bet.Shape, result)
			win := WinAmount(tier, bet.Shape, bet.Numbers, leg.Amount)

			leg.ResultID = &resultID
			if win > 0 {
				leg.Status = entities.BetStatusWon
				leg.WinAmount = win
			} else {
				leg.Status = entities.BetStatusLost
				leg.WinAmount = 0
			}

			applied, err := s.betRepo.UpdateLeg(ctx, leg)
			if err != nil {
				return nil, fmt.Errorf("failed to update leg %d: %w", leg.ID, err)
			}
			if !applied {
				// The bet was cancelled between the pending read and
				// this write; the refund already happened, so the leg
				// must not count as settled.
				leg.Status = entities.BetStatusCancelled
				leg.WinAmount = 0
				leg.ResultID = nil
				continue
			}

			if win > 0 {
				summary.LegsWon++
				summary.TotalPaid += win
			} else {
				summary.LegsLost++
			}
			summary.LegsProcessed++
		}

		bet.RecomputeFromLegs()
		if err := s.betRepo.UpdateAggregates(ctx, bet); err != nil {
			return nil, fmt.Errorf("failed to update bet %d: %w", bet.ID, err)
		}
	}

	finalizedAt := s.now().UTC()
	transitioned, err := s.resultRepo.MarkFinal(ctx, resultID, finalizedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize result: %w", err)
	}
	if !transitioned {
		return nil, domain.Conflictf("draw result %d was finalized concurrently", resultID)
	}
	result.Finalize(finalizedAt)

	audit := entities.NewAuditLog(nil, entities.AuditActionResultProcess, map[string]any{
		"result_id":      resultID,
		"legs_processed": summary.LegsProcessed,
		"legs_won":       summary.LegsWon,
		"legs_lost":      summary.LegsLost,
		"total_paid":     summary.TotalPaid,
	})
	if err := s.auditRepo.Record(ctx, audit); err != nil {
		return nil, fmt.Errorf("failed to record settlement audit entry: %w", err)
	}

	s.eventPublisher.Publish(events.ResultSettledEvent{
		ResultID:      resultID,
		ProviderID:    result.ProviderID,
		LegsProcessed: summary.LegsProcessed,
		LegsWon:       summary.LegsWon,
		TotalPaid:     summary.TotalPaid,
	})

	log.WithFields(log.Fields{
		"resultID":      resultID,
		"legsProcessed": summary.LegsProcessed,
		"legsWon":       summary.LegsWon,
		"totalPaid":     summary.TotalPaid,
	}).Info("draw result settled")

	return summary, nil
}

// ListPendingResults returns results awaiting processing.
func (s *settlementService) ListPendingResults(ctx context.Context) ([]*entities.DrawResult, error) {
	results, err := s.resultRepo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending results: %w", err)
	}
	return results, nil
}

// validatePool checks a prize pool's size and digit lengths.
func validatePool(name string, pool []string, gameType entities.GameType) error {
	if len(pool) != entities.PoolSize {
		return domain.Validationf("%s pool must have %d numbers, got %d", name, entities.PoolSize, len(pool))
	}
	for _, prize := range pool {
		if err := validateNumbers(prize, gameType); err != nil {
			return err
		}
	}
	return nil
}
