package repository

import (
	"context"
	"fmt"

	"lottobook/database"
	"lottobook/domain/entities"
)

// QuotaResetLogRepository implements the QuotaResetLogRepository interface
type QuotaResetLogRepository struct {
	q Queryable
}

// NewQuotaResetLogRepository creates a new quota reset log repository
func NewQuotaResetLogRepository(db *database.DB) *QuotaResetLogRepository {
	return &QuotaResetLogRepository{q: db.Pool}
}

func newQuotaResetLogRepository(q Queryable) *QuotaResetLogRepository {
	return &QuotaResetLogRepository{q: q}
}

// Record appends a reset log entry
func (r *QuotaResetLogRepository) Record(ctx context.Context, entry *entities.QuotaResetLog) error {
	query := `
		INSERT INTO quota_reset_logs (started_at, finished_at, affected_accounts,
			total_reset, success, error_detail)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		entry.StartedAt,
		entry.FinishedAt,
		entry.AffectedAccounts,
		entry.TotalReset,
		entry.Success,
		entry.ErrorDetail,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to record quota reset log entry: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first
func (r *QuotaResetLogRepository) List(ctx context.Context, limit int) ([]*entities.QuotaResetLog, error) {
	query := `
		SELECT id, started_at, finished_at, affected_accounts, total_reset,
			success, error_detail
		FROM quota_reset_logs
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list quota reset log entries: %w", err)
	}
	defer rows.Close()

	var entries []*entities.QuotaResetLog
	for rows.Next() {
		var entry entities.QuotaResetLog
		err := rows.Scan(
			&entry.ID,
			&entry.StartedAt,
			&entry.FinishedAt,
			&entry.AffectedAccounts,
			&entry.TotalReset,
			&entry.Success,
			&entry.ErrorDetail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quota reset log entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quota reset log entries: %w", err)
	}
	return entries, nil
}
