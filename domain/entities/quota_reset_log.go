package entities

import (
	"time"
)

// QuotaResetLog is one append-only record of a periodic quota reset
// attempt. Failed attempts are recorded too; rows are never mutated.
type QuotaResetLog struct {
	ID               int64     `db:"id"`
	StartedAt        time.Time `db:"started_at"`
	FinishedAt       time.Time `db:"finished_at"`
	AffectedAccounts int       `db:"affected_accounts"`
	TotalReset       int64     `db:"total_reset"`
	Success          bool      `db:"success"`
	ErrorDetail      string    `db:"error_detail"`
}
