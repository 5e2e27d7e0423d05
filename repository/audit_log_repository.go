package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"lottobook/database"
	"lottobook/domain/entities"
)

// AuditLogRepository implements the AuditLogRepository interface
type AuditLogRepository struct {
	q Queryable
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{q: db.Pool}
}

func newAuditLogRepository(q Queryable) *AuditLogRepository {
	return &AuditLogRepository{q: q}
}

// Record appends an audit entry
func (r *AuditLogRepository) Record(ctx context.Context, entry *entities.AuditLog) error {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("failed to marshal audit detail: %w", err)
	}

	query := `
		INSERT INTO audit_logs (event_id, actor_id, action, detail)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err = r.q.QueryRow(ctx, query,
		entry.EventID,
		entry.ActorID,
		entry.Action,
		detail,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// ListByActor returns the most recent entries for an acting account
func (r *AuditLogRepository) ListByActor(ctx context.Context, actorID int64, limit int) ([]*entities.AuditLog, error) {
	query := `
		SELECT id, event_id, actor_id, action, detail, created_at
		FROM audit_logs
		WHERE actor_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries for actor %d: %w", actorID, err)
	}
	defer rows.Close()

	var entries []*entities.AuditLog
	for rows.Next() {
		var entry entities.AuditLog
		var detail []byte
		err := rows.Scan(
			&entry.ID,
			&entry.EventID,
			&entry.ActorID,
			&entry.Action,
			&detail,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &entry.Detail); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit detail: %w", err)
			}
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return entries, nil
}
