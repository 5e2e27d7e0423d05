package interfaces

import (
	"context"
	"time"

	"lottobook/domain/entities"
)

// CreateAccountInput carries everything needed to add a node to the tree.
// ActorID is nil only for the bootstrap path creating top-level accounts.
type CreateAccountInput struct {
	Username             string        `validate:"required,min=3,max=32"`
	Role                 entities.Role `validate:"required"`
	ParentID             *int64
	QuotaLimit           int64         `validate:"gte=0"`
	CommissionRate       float64       `validate:"gte=0,lte=1"`
	CanCreateSubAccounts bool
	ActorID              *int64
}

// HierarchyService maintains the account tree and answers upline and
// downline queries.
type HierarchyService interface {
	// CreateAccount adds an account under its parent, enforcing role
	// ordering, quota and commission caps, and the depth bound
	CreateAccount(ctx context.Context, input CreateAccountInput) (*entities.Account, error)

	// GetAncestors returns the chain from nearest parent to root
	GetAncestors(ctx context.Context, accountID int64) ([]*entities.Account, error)

	// GetChildren returns direct children only
	GetChildren(ctx context.Context, accountID int64) ([]*entities.Account, error)

	// GetDescendants returns the full subtree with per-node depth
	GetDescendants(ctx context.Context, accountID int64) ([]*entities.AccountNode, error)

	// Reparent moves an account and its subtree under a new parent
	Reparent(ctx context.Context, accountID, newParentID int64, actorID int64) error

	// SetActive toggles the soft-delete flag; deactivation is refused
	// while the account has active direct children
	SetActive(ctx context.Context, accountID int64, active bool, actorID int64) error
}

// QuotaService owns the weekly spending quota ledger.
type QuotaService interface {
	// Reserve atomically consumes quota headroom inside the caller's
	// transaction
	Reserve(ctx context.Context, accountID, amount int64) error

	// Refund releases previously reserved quota, floored at zero
	Refund(ctx context.Context, accountID, amount int64) error

	// ResetAll zeroes every used quota in one bulk operation and appends a
	// reset log entry; a failure leaves quotas untouched and logs the error
	ResetAll(ctx context.Context) (*entities.QuotaResetLog, error)

	// GetQuota returns an account's limit and used amount, scope-checked
	GetQuota(ctx context.Context, accountID, requesterID int64) (limit, used int64, err error)

	// UpdateLimit sets a new weekly limit, acting account permitting
	UpdateLimit(ctx context.Context, accountID, newLimit, actorID int64) error
}

// PlaceBetLegInput names one provider slice of a composite bet.
type PlaceBetLegInput struct {
	ProviderID int64 `validate:"required,gt=0"`
	Amount     int64 `validate:"required,gt=0"`
}

// PlaceBetInput is a composite bet placement request.
type PlaceBetInput struct {
	AccountID int64               `validate:"required,gt=0"`
	GameType  entities.GameType   `validate:"required"`
	Shape     entities.WagerShape `validate:"required"`
	Numbers   string              `validate:"required,numeric"`
	DrawDate  time.Time           `validate:"required"`
	Legs      []PlaceBetLegInput  `validate:"required,min=1,dive"`
}

// BetService owns the composite-bet lifecycle and receipt issuance.
type BetService interface {
	// Place validates every leg, reserves quota, generates a receipt and
	// persists the bet with all legs pending, in one transaction
	Place(ctx context.Context, input PlaceBetInput) (*entities.Bet, error)

	// Cancel cancels a pending bet before its draw date and refunds the
	// reserved quota
	Cancel(ctx context.Context, betID, requesterID int64) error

	// GetByID returns a bet visible to the requester
	GetByID(ctx context.Context, betID, requesterID int64) (*entities.Bet, error)

	// GetByReceipt returns a bet by receipt code, visible to the requester
	GetByReceipt(ctx context.Context, receipt string, requesterID int64) (*entities.Bet, error)

	// List returns the requester's visible bets matching the filter
	List(ctx context.Context, filter entities.BetFilter, requesterID int64) ([]*entities.Bet, error)
}

// IngestResultInput is raw draw data from the results feed or manual entry.
type IngestResultInput struct {
	ProviderID   int64                 `validate:"required,gt=0"`
	GameType     entities.GameType     `validate:"required"`
	DrawDate     time.Time             `validate:"required"`
	FirstPrize   string                `validate:"required,numeric"`
	SecondPrize  string                `validate:"required,numeric"`
	ThirdPrize   string                `validate:"required,numeric"`
	Starters     []string              `validate:"required"`
	Consolations []string              `validate:"required"`
	Source       entities.ResultSource `validate:"required"`
}

// SettlementSummary reports one processing run.
type SettlementSummary struct {
	ResultID      int64
	AlreadyFinal  bool
	LegsProcessed int
	LegsWon       int
	LegsLost      int
	TotalPaid     int64
}

// SettlementService consumes ingested draw results and settles open legs
// exactly once.
type SettlementService interface {
	// IngestResult records a new draw result; duplicates for the same
	// (provider, game type, draw date) are a conflict
	IngestResult(ctx context.Context, input IngestResultInput) (*entities.DrawResult, error)

	// Process settles every open leg matching the result and marks the
	// result final; reprocessing a final result is a no-op
	Process(ctx context.Context, resultID int64) (*SettlementSummary, error)

	// ListPendingResults returns results awaiting processing
	ListPendingResults(ctx context.Context) ([]*entities.DrawResult, error)
}
