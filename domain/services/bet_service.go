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

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// betService implements the composite-bet lifecycle.
type betService struct {
	betRepo        interfaces.BetRepository
	accountRepo    interfaces.AccountRepository
	providerRepo   interfaces.ProviderRepository
	auditRepo      interfaces.AuditLogRepository
	quota          interfaces.QuotaService
	eventPublisher interfaces.EventPublisher
	now            func() time.Time
}

// NewBetService creates a new bet service.
func NewBetService(
	betRepo interfaces.BetRepository,
	accountRepo interfaces.AccountRepository,
	providerRepo interfaces.ProviderRepository,
	auditRepo interfaces.AuditLogRepository,
	quota interfaces.QuotaService,
	eventPublisher interfaces.EventPublisher,
) interfaces.BetService {
	return &betService{
		betRepo:        betRepo,
		accountRepo:    accountRepo,
		providerRepo:   providerRepo,
		auditRepo:      auditRepo,
		quota:          quota,
		eventPublisher: eventPublisher,
		now:            time.Now,
	}
}

// Place validates every requested leg, reserves quota for the total, issues
// a receipt and persists the bet with all legs pending. The caller runs the
// whole operation in one unit of work, so the reservation and the insert
// commit or roll back together.
func (s *betService) Place(ctx context.Context, input interfaces.PlaceBetInput) (*entities.Bet, error) {
	if err := validate.Struct(input); err != nil {
		return nil, domain.WrapValidation(err, "invalid bet input")
	}
	if !input.GameType.Valid() {
		return nil, domain.Validationf("unknown game type %q", input.GameType)
	}
	if !input.Shape.Valid() {
		return nil, domain.Validationf("unknown wager shape %q", input.Shape)
	}
	if err := validateNumbers(input.Numbers, input.GameType); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, domain.NotFoundf("account %d not found", input.AccountID)
	}
	if !account.Active {
		return nil, domain.Validationf("account %d is inactive", input.AccountID)
	}

	drawDate := normalizeDrawDate(input.DrawDate)
	now := s.now().UTC()

	seen := make(map[int64]bool, len(input.Legs))
	legs := make([]*entities.BetLeg, 0, len(input.Legs))
	var total int64
	for _, legInput := range input.Legs {
		if seen[legInput.ProviderID] {
			return nil, domain.Validationf("duplicate leg for provider %d", legInput.ProviderID)
		}
		seen[legInput.ProviderID] = true

		provider, err := s.providerRepo.GetByID(ctx, legInput.ProviderID)
		if err != nil {
			return nil, fmt.Errorf("failed to load provider: %w", err)
		}
		if provider == nil {
			return nil, domain.Validationf("unknown provider %d", legInput.ProviderID)
		}
		if !provider.Active {
			return nil, domain.Validationf("provider %s is inactive", provider.Code)
		}
		if !provider.SupportsGame(input.GameType) {
			return nil, domain.Validationf("provider %s does not run %s draws", provider.Code, input.GameType)
		}
		if !provider.SupportsShape(input.Shape) {
			return nil, domain.Validationf("provider %s does not accept %s wagers", provider.Code, input.Shape)
		}
		if !provider.AcceptsDraw(drawDate, now) {
			return nil, domain.Validationf("provider %s sales for %s are closed",
				provider.Code, drawDate.Format("2006-01-02"))
		}

		legs = append(legs, &entities.BetLeg{
			ProviderID: legInput.ProviderID,
			Amount:     legInput.Amount,
			Status:     entities.BetStatusPending,
		})
		total += legInput.Amount
	}

	if err := s.quota.Reserve(ctx, input.AccountID, total); err != nil {
		return nil, err
	}

	receipt, err := s.generateReceipt(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}

	bet := &entities.Bet{
		AccountID:   input.AccountID,
		GameType:    input.GameType,
		Shape:       input.Shape,
		Numbers:     input.Numbers,
		TotalAmount: total,
		DrawDate:    drawDate,
		Receipt:     receipt,
		Status:      entities.BetStatusPending,
		Legs:        legs,
	}
	if err := s.betRepo.Create(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}

	audit := entities.NewAuditLog(&input.AccountID, entities.AuditActionBetPlace, map[string]any{
		"bet_id":       bet.ID,
		"receipt":      receipt,
		"total_amount": total,
		"leg_count":    len(legs),
		"draw_date":    drawDate.Format("2006-01-02"),
	})
	if err := s.auditRepo.Record(ctx, audit); err != nil {
		return nil, fmt.Errorf("failed to record placement audit entry: %w", err)
	}

	s.eventPublisher.Publish(events.BetPlacedEvent{
		BetID:       bet.ID,
		AccountID:   bet.AccountID,
		Receipt:     receipt,
		TotalAmount: total,
		LegCount:    len(legs),
		DrawDate:    drawDate,
	})

	log.WithFields(log.Fields{
		"betID":     bet.ID,
		"accountID": bet.AccountID,
		"receipt":   receipt,
		"total":     total,
	}).Info("bet placed")

	return bet, nil
}

// Cancel cancels a pending bet before its draw date and refunds the
// reserved quota. Bets outside the requester's scope look like they do not
// exist.
func (s *betService) Cancel(ctx context.Context, betID, requesterID int64) error {
	requester, err := s.accountRepo.GetByID(ctx, requesterID)
	if err != nil {
		return fmt.Errorf("failed to load requester: %w", err)
	}
	if requester == nil {
		return domain.NotFoundf("account %d not found", requesterID)
	}

	bet, err := s.betRepo.GetByID(ctx, betID, entities.ScopeForAccount(requester))
	if err != nil {
		return fmt.Errorf("failed to load bet: %w", err)
	}
	if bet == nil {
		return domain.NotFoundf("bet %d not found", betID)
	}

	if bet.Status != entities.BetStatusPending {
		return domain.AlreadyFinalizedf("bet %d is %s and cannot be cancelled", betID, bet.Status)
	}
	if !s.now().UTC().Before(bet.DrawDate) {
		return domain.Validationf("bet %d cannot be cancelled on or after its draw date", betID)
	}

	transitioned, err := s.betRepo.CancelBet(ctx, betID)
	if err != nil {
		return fmt.Errorf("failed to cancel bet: %w", err)
	}
	if !transitioned {
		// A concurrent settle or cancel got there first.
		return domain.AlreadyFinalizedf("bet %d is no longer pending", betID)
	}

	if err := s.quota.Refund(ctx, bet.AccountID, bet.TotalAmount); err != nil {
		return err
	}

	audit := entities.NewAuditLog(&requesterID, entities.AuditActionBetCancel, map[string]any{
		"bet_id":          betID,
		"refunded_amount": bet.TotalAmount,
	})
	if err := s.auditRepo.Record(ctx, audit); err != nil {
		return fmt.Errorf("failed to record cancellation audit entry: %w", err)
	}

	s.eventPublisher.Publish(events.BetCancelledEvent{
		BetID:          betID,
		AccountID:      bet.AccountID,
		RefundedAmount: bet.TotalAmount,
	})
	return nil
}

// GetByID returns a bet visible to the requester.
func (s *betService) GetByID(ctx context.Context, betID, requesterID int64) (*entities.Bet, error) {
	scope, err := s.scopeFor(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	bet, err := s.betRepo.GetByID(ctx, betID, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load bet: %w", err)
	}
	if bet == nil {
		return nil, domain.NotFoundf("bet %d not found", betID)
	}
	return bet, nil
}

// GetByReceipt returns a bet by receipt code, visible to the requester.
func (s *betService) GetByReceipt(ctx context.Context, receipt string, requesterID int64) (*entities.Bet, error) {
	scope, err := s.scopeFor(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	bet, err := s.betRepo.GetByReceipt(ctx, receipt, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load bet: %w", err)
	}
	if bet == nil {
		return nil, domain.NotFoundf("receipt %q not found", receipt)
	}
	return bet, nil
}

// List returns the requester's visible bets matching the filter.
func (s *betService) List(ctx context.Context, filter entities.BetFilter, requesterID int64) ([]*entities.Bet, error) {
	scope, err := s.scopeFor(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	bets, err := s.betRepo.List(ctx, filter, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	return bets, nil
}

func (s *betService) scopeFor(ctx context.Context, requesterID int64) (entities.AccessScope, error) {
	requester, err := s.accountRepo.GetByID(ctx, requesterID)
	if err != nil {
		return entities.AccessScope{}, fmt.Errorf("failed to load requester: %w", err)
	}
	if requester == nil {
		return entities.AccessScope{}, domain.NotFoundf("account %d not found", requesterID)
	}
	return entities.ScopeForAccount(requester), nil
}

// validateNumbers checks the digit-length rule for the game type.
func validateNumbers(numbers string, gameType entities.GameType) error {
	if len(numbers) != gameType.DigitLen() {
		return domain.Validationf("%s numbers must have %d digits, got %q", gameType, gameType.DigitLen(), numbers)
	}
	for _, c := range numbers {
		if c < '0' || c > '9' {
			return domain.Validationf("numbers must be digits, got %q", numbers)
		}
	}
	return nil
}

// normalizeDrawDate truncates a draw date to midnight UTC.
func normalizeDrawDate(t time.Time) time.Time {
	d := t.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
