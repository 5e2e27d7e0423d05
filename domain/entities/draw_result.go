package entities

import (
	"time"
)

// ResultStatus is the processing state of an ingested draw result.
type ResultStatus string

const (
	ResultStatusPending ResultStatus = "pending"
	ResultStatusFinal   ResultStatus = "final"
)

// ResultSource records how a result entered the system.
type ResultSource string

const (
	ResultSourceManual ResultSource = "manual"
	ResultSourceSync   ResultSource = "sync"
)

// PoolSize is the fixed size of the starter and consolation pools.
const PoolSize = 10

// DrawResult is one provider's outcome for a game and draw date, unique per
// (provider, game type, draw date). Prize fields are immutable once final.
type DrawResult struct {
	ID           int64        `db:"id"`
	ProviderID   int64        `db:"provider_id"`
	GameType     GameType     `db:"game_type"`
	DrawDate     time.Time    `db:"draw_date"`
	FirstPrize   string       `db:"first_prize"`
	SecondPrize  string       `db:"second_prize"`
	ThirdPrize   string       `db:"third_prize"`
	Starters     []string     `db:"starters"`
	Consolations []string     `db:"consolations"`
	Status       ResultStatus `db:"status"`
	Source       ResultSource `db:"source"`
	CreatedAt    time.Time    `db:"created_at"`
	FinalizedAt  *time.Time   `db:"finalized_at"`
}

// IsFinal reports whether the result has already been processed.
func (r *DrawResult) IsFinal() bool {
	return r.Status == ResultStatusFinal
}

// Finalize marks the result processed. The pending->final transition
// happens exactly once; the repository enforces that with a conditional
// update.
func (r *DrawResult) Finalize(at time.Time) {
	r.Status = ResultStatusFinal
	r.FinalizedAt = &at
}

// RankedPrizes returns the three ranked prize numbers in order.
func (r *DrawResult) RankedPrizes() [3]string {
	return [3]string{r.FirstPrize, r.SecondPrize, r.ThirdPrize}
}
