package interfaces

import (
	"context"
	"time"

	"lottobook/domain/entities"
	"lottobook/events"
)

// AccountRepository defines data access for the account tree and the
// per-account weekly quota columns. The quota operations are single
// conditional statements so concurrent writers are serialized by the
// database row, never by a read-then-write round trip.
type AccountRepository interface {
	// GetByID retrieves an account, or nil if it does not exist
	GetByID(ctx context.Context, id int64) (*entities.Account, error)

	// GetByIDForUpdate retrieves an account with a row lock for update
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Account, error)

	// GetByUsername retrieves an account by its unique username
	GetByUsername(ctx context.Context, username string) (*entities.Account, error)

	// Create inserts a new account and fills in its generated id
	Create(ctx context.Context, account *entities.Account) error

	// Update persists mutable account fields (active flag, quota limit,
	// commission rate, sub-account flag)
	Update(ctx context.Context, account *entities.Account) error

	// GetByIDs retrieves the accounts for the given ids, in input order
	GetByIDs(ctx context.Context, ids []int64) ([]*entities.Account, error)

	// GetChildren returns the direct children of an account
	GetChildren(ctx context.Context, id int64) ([]*entities.Account, error)

	// GetDescendants returns every account whose ancestor path contains id
	GetDescendants(ctx context.Context, id int64) ([]*entities.Account, error)

	// CountActiveChildren returns the number of active direct children
	CountActiveChildren(ctx context.Context, id int64) (int, error)

	// ReserveQuota atomically increments quota_used when the account is
	// active and the new total stays within quota_limit; reports whether
	// the reservation was applied
	ReserveQuota(ctx context.Context, id int64, amount int64) (bool, error)

	// RefundQuota decrements quota_used, floored at zero
	RefundQuota(ctx context.Context, id int64, amount int64) error

	// ResetAllQuotas zeroes quota_used for every account with quota_used > 0
	// in one statement, returning the affected count and the total amount
	// reset. Only one reset may run at a time; the repository takes an
	// advisory transaction lock and reports a conflict when it is held.
	ResetAllQuotas(ctx context.Context) (affected int, total int64, err error)

	// Reparent moves an account under a new parent and rewrites the
	// ancestor paths of the whole moved subtree in the same transaction
	Reparent(ctx context.Context, accountID, newParentID int64, oldPath, newPath []int64) error
}

// ProviderRepository is the provider directory consulted during leg
// validation.
type ProviderRepository interface {
	// GetByID retrieves a provider, or nil if it does not exist
	GetByID(ctx context.Context, id int64) (*entities.Provider, error)

	// GetByCode retrieves a provider by its short code
	GetByCode(ctx context.Context, code string) (*entities.Provider, error)

	// List returns providers, optionally restricted to active ones
	List(ctx context.Context, activeOnly bool) ([]*entities.Provider, error)

	// Create inserts a new provider
	Create(ctx context.Context, provider *entities.Provider) error
}

// BetRepository defines data access for composite bets and their legs.
// Every read takes the caller's access scope and applies it in SQL.
type BetRepository interface {
	// Create inserts a bet together with all of its legs
	Create(ctx context.Context, bet *entities.Bet) error

	// GetByID retrieves a bet with legs, or nil when missing or outside scope
	GetByID(ctx context.Context, id int64, scope entities.AccessScope) (*entities.Bet, error)

	// GetByReceipt retrieves a bet by its receipt code, scope-filtered
	GetByReceipt(ctx context.Context, receipt string, scope entities.AccessScope) (*entities.Bet, error)

	// List returns bets matching the filter, scope-filtered and paginated
	List(ctx context.Context, filter entities.BetFilter, scope entities.AccessScope) ([]*entities.Bet, error)

	// CountForAccountSince counts an account's bets created at or after the
	// given instant; the receipt sequence is derived from this
	CountForAccountSince(ctx context.Context, accountID int64, since time.Time) (int64, error)

	// GetPendingByDraw returns bets that still have a pending leg for the
	// given provider, game type and draw date, legs loaded
	GetPendingByDraw(ctx context.Context, providerID int64, gameType entities.GameType, drawDate time.Time) ([]*entities.Bet, error)

	// UpdateLeg persists a leg's status, win amount and settling result id;
	// the write applies only while the leg is still pending, and the
	// return reports whether it did
	UpdateLeg(ctx context.Context, leg *entities.BetLeg) (bool, error)

	// UpdateAggregates persists the bet's recomputed status and win amount;
	// a bet that was cancelled concurrently is left untouched
	UpdateAggregates(ctx context.Context, bet *entities.Bet) error

	// CancelBet marks a pending bet and all of its pending legs cancelled;
	// reports whether the bet row transitioned
	CancelBet(ctx context.Context, betID int64) (bool, error)
}

// DrawResultRepository defines data access for ingested draw results.
type DrawResultRepository interface {
	// Create inserts a new result; duplicate (provider, game, date) is a
	// conflict
	Create(ctx context.Context, result *entities.DrawResult) error

	// GetByID retrieves a result, or nil if it does not exist
	GetByID(ctx context.Context, id int64) (*entities.DrawResult, error)

	// GetByIDForUpdate retrieves a result with a row lock for update
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.DrawResult, error)

	// GetByDraw retrieves the result for (provider, game type, draw date)
	GetByDraw(ctx context.Context, providerID int64, gameType entities.GameType, drawDate time.Time) (*entities.DrawResult, error)

	// ListPending returns results that have not been processed yet
	ListPending(ctx context.Context) ([]*entities.DrawResult, error)

	// MarkFinal transitions a result pending->final exactly once; reports
	// whether this call performed the transition
	MarkFinal(ctx context.Context, id int64, at time.Time) (bool, error)
}

// QuotaResetLogRepository records periodic reset attempts, append-only.
type QuotaResetLogRepository interface {
	// Record appends a reset log entry
	Record(ctx context.Context, entry *entities.QuotaResetLog) error

	// List returns the most recent entries, newest first
	List(ctx context.Context, limit int) ([]*entities.QuotaResetLog, error)
}

// AuditLogRepository records ledger actions, append-only.
type AuditLogRepository interface {
	// Record appends an audit entry
	Record(ctx context.Context, entry *entities.AuditLog) error

	// ListByActor returns the most recent entries for an acting account
	ListByActor(ctx context.Context, actorID int64, limit int) ([]*entities.AuditLog, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}
