package services

import (
	"context"
	"fmt"
	"time"

	"lottobook/domain"
	"lottobook/domain/entities"

	log "github.com/sirupsen/logrus"
)

const (
	receiptDateFormat = "20060102"
	// receiptMaxAttempts bounds the sequence-derivation retry loop before
	// falling back to a time-derived number.
	receiptMaxAttempts = 5
)

// formatReceipt renders the receipt code: date stamp, owning account,
// per-account-per-day sequence.
func formatReceipt(day time.Time, accountID, seq int64) string {
	return fmt.Sprintf("%s-A%d-%04d", day.Format(receiptDateFormat), accountID, seq)
}

// generateReceipt issues a receipt code for a placement. The sequence is
// derived from the count of the account's bets created today, so two
// concurrent placements can race to the same number; the loop re-derives
// the count and re-checks uniqueness a bounded number of times, then falls
// back to a sequence taken from the current instant. Best-effort by
// design: the domain needs distinct receipts, not a strict allocator.
func (s *betService) generateReceipt(ctx context.Context, accountID int64) (string, error) {
	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for attempt := 0; attempt < receiptMaxAttempts; attempt++ {
		count, err := s.betRepo.CountForAccountSince(ctx, accountID, startOfDay)
		if err != nil {
			return "", fmt.Errorf("failed to count today's bets: %w", err)
		}

		receipt := formatReceipt(now, accountID, count+1)
		existing, err := s.betRepo.GetByReceipt(ctx, receipt, entities.SystemScope())
		if err != nil {
			return "", fmt.Errorf("failed to check receipt uniqueness: %w", err)
		}
		if existing == nil {
			return receipt, nil
		}

		log.WithFields(log.Fields{
			"accountID": accountID,
			"receipt":   receipt,
			"attempt":   attempt + 1,
		}).Debug("receipt collision, retrying")
	}

	// Sequence derived from the current instant, effectively unique.
	fallback := formatReceipt(now, accountID, s.now().UnixNano()%1_0000_0000)
	existing, err := s.betRepo.GetByReceipt(ctx, fallback, entities.SystemScope())
	if err != nil {
		return "", fmt.Errorf("failed to check fallback receipt: %w", err)
	}
	if existing != nil {
		return "", domain.Conflictf("receipt generation exhausted for account %d", accountID)
	}
	return fallback, nil
}
