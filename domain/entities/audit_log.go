package entities

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded by the core. Keyed by acting account and action
// type; ActorID is nil for system-initiated operations.
const (
	AuditActionBetPlace        = "bet.place"
	AuditActionBetCancel       = "bet.cancel"
	AuditActionAccountCreate   = "account.create"
	AuditActionAccountReparent = "account.reparent"
	AuditActionQuotaUpdate     = "quota.update"
	AuditActionQuotaReset      = "quota.reset"
	AuditActionResultIngest    = "result.ingest"
	AuditActionResultProcess   = "result.process"
)

// AuditLog is one append-only audit entry.
type AuditLog struct {
	ID        int64          `db:"id"`
	EventID   uuid.UUID      `db:"event_id"`
	ActorID   *int64         `db:"actor_id"`
	Action    string         `db:"action"`
	Detail    map[string]any `db:"detail"`
	CreatedAt time.Time      `db:"created_at"`
}

// NewAuditLog builds an entry with a fresh event id.
func NewAuditLog(actorID *int64, action string, detail map[string]any) *AuditLog {
	return &AuditLog{
		EventID: uuid.New(),
		ActorID: actorID,
		Action:  action,
		Detail:  detail,
	}
}
