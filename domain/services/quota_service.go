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

// quotaService implements the weekly spending quota ledger.
type quotaService struct {
	accountRepo    interfaces.AccountRepository
	resetLogRepo   interfaces.QuotaResetLogRepository
	auditRepo      interfaces.AuditLogRepository
	eventPublisher interfaces.EventPublisher
	now            func() time.Time
}

// NewQuotaService creates a new quota service.
func NewQuotaService(
	accountRepo interfaces.AccountRepository,
	resetLogRepo interfaces.QuotaResetLogRepository,
	auditRepo interfaces.AuditLogRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.QuotaService {
	return &quotaService{
		accountRepo:    accountRepo,
		resetLogRepo:   resetLogRepo,
		auditRepo:      auditRepo,
		eventPublisher: eventPublisher,
		now:            time.Now,
	}
}

// Reserve consumes quota headroom. The repository performs the
// read-check-write as one conditional update, so two concurrent
// reservations against the same account are serialized by the row: the
// second sees the first's effect or fails cleanly.
func (s *quotaService) Reserve(ctx context.Context, accountID, amount int64) error {
	if amount <= 0 {
		return domain.Validationf("reservation amount must be positive, got %d", amount)
	}

	applied, err := s.accountRepo.ReserveQuota(ctx, accountID, amount)
	if err != nil {
		return fmt.Errorf("failed to reserve quota: %w", err)
	}
	if applied {
		return nil
	}

	// The conditional update did not apply; re-read to classify why.
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account after rejected reservation: %w", err)
	}
	if account == nil {
		return domain.NotFoundf("account %d not found", accountID)
	}
	if !account.Active {
		return domain.Validationf("account %d is inactive", accountID)
	}
	return domain.CapacityExceededf("quota exceeded for account %d: used %d + %d > limit %d",
		accountID, account.QuotaUsed, amount, account.QuotaLimit)
}

// Refund releases previously reserved quota, floored at zero.
func (s *quotaService) Refund(ctx context.Context, accountID, amount int64) error {
	if amount <= 0 {
		return domain.Validationf("refund amount must be positive, got %d", amount)
	}
	if err := s.accountRepo.RefundQuota(ctx, accountID, amount); err != nil {
		return fmt.Errorf("failed to refund quota: %w", err)
	}
	return nil
}

// ResetAll zeroes every used quota in one bulk statement and appends a
// reset log entry. On failure the quotas are untouched and a failed entry
// records the error; partial resets cannot happen.
func (s *quotaService) ResetAll(ctx context.Context) (*entities.QuotaResetLog, error) {
	started := s.now().UTC()
	affected, total, resetErr := s.accountRepo.ResetAllQuotas(ctx)

	entry := &entities.QuotaResetLog{
		StartedAt:        started,
		FinishedAt:       s.now().UTC(),
		AffectedAccounts: affected,
		TotalReset:       total,
		Success:          resetErr == nil,
	}
	if resetErr != nil {
		entry.ErrorDetail = resetErr.Error()
	}

	if err := s.resetLogRepo.Record(ctx, entry); err != nil {
		log.WithError(err).Error("failed to record quota reset log entry")
		if resetErr == nil {
			return nil, fmt.Errorf("quota reset succeeded but logging failed: %w", err)
		}
	}

	if resetErr != nil {
		return entry, fmt.Errorf("quota reset failed: %w", resetErr)
	}

	audit := entities.NewAuditLog(nil, entities.AuditActionQuotaReset, map[string]any{
		"affected_accounts": affected,
		"total_reset":       total,
	})
	if err := s.auditRepo.Record(ctx, audit); err != nil {
		return nil, fmt.Errorf("failed to record reset audit entry: %w", err)
	}

	s.eventPublisher.Publish(events.QuotasResetEvent{
		AffectedAccounts: affected,
		TotalReset:       total,
	})

	log.WithFields(log.Fields{
		"affectedAccounts": affected,
		"totalReset":       total,
	}).Info("weekly quota reset completed")

	return entry, nil
}

// GetQuota returns an account's limit and used amount, restricted by the
// requester's access scope.
func (s *quotaService) GetQuota(ctx context.Context, accountID, requesterID int64) (int64, int64, error) {
	requester, err := s.accountRepo.GetByID(ctx, requesterID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load requester: %w", err)
	}
	if requester == nil {
		return 0, 0, domain.NotFoundf("account %d not found", requesterID)
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return 0, 0, domain.NotFoundf("account %d not found", accountID)
	}

	if !entities.ScopeForAccount(requester).AllowsAccount(account) {
		return 0, 0, domain.Forbiddenf("account %d may not read quota of account %d", requesterID, accountID)
	}
	return account.QuotaLimit, account.QuotaUsed, nil
}

// UpdateLimit sets a new weekly limit. The acting account must be one of
// the top roles or an ancestor of the target, and a non-root account's
// limit stays capped at its parent's.
func (s *quotaService) UpdateLimit(ctx context.Context, accountID, newLimit, actorID int64) error {
	if newLimit < 0 {
		return domain.Validationf("quota limit must not be negative, got %d", newLimit)
	}

	actor, err := s.accountRepo.GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to load acting account: %w", err)
	}
	if actor == nil {
		return domain.NotFoundf("account %d not found", actorID)
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return domain.NotFoundf("account %d not found", accountID)
	}

	if !actor.Role.IsTopLevel() && !account.HasAncestor(actorID) {
		return domain.Forbiddenf("account %d may not update quota of account %d", actorID, accountID)
	}

	if account.ParentID != nil {
		parent, err := s.accountRepo.GetByID(ctx, *account.ParentID)
		if err != nil {
			return fmt.Errorf("failed to load parent account: %w", err)
		}
		if parent != nil && newLimit > parent.QuotaLimit {
			return domain.Validationf("quota limit %d exceeds parent limit %d", newLimit, parent.QuotaLimit)
		}
	}

	previous := account.QuotaLimit
	account.QuotaLimit = newLimit
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return fmt.Errorf("failed to update quota limit: %w", err)
	}

	audit := entities.NewAuditLog(&actorID, entities.AuditActionQuotaUpdate, map[string]any{
		"account_id":     accountID,
		"previous_limit": previous,
		"new_limit":      newLimit,
	})
	if err := s.auditRepo.Record(ctx, audit); err != nil {
		return fmt.Errorf("failed to record quota update audit entry: %w", err)
	}
	return nil
}
