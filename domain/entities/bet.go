package entities

import (
	"time"
)

// BetStatus is the lifecycle state shared by bets and their legs.
type BetStatus string

const (
	BetStatusPending   BetStatus = "pending"
	BetStatusWon       BetStatus = "won"
	BetStatusLost      BetStatus = "lost"
	BetStatusCancelled BetStatus = "cancelled"
)

// Bet is one composite wager: a single number played across one or more
// providers for one draw date. TotalAmount always equals the sum of leg
// amounts; Status and WinAmount are aggregates recomputed from the legs.
type Bet struct {
	ID          int64      `db:"id"`
	AccountID   int64      `db:"account_id"`
	GameType    GameType   `db:"game_type"`
	Shape       WagerShape `db:"wager_shape"`
	Numbers     string     `db:"numbers"`
	TotalAmount int64      `db:"total_amount"`
	DrawDate    time.Time  `db:"draw_date"`
	Receipt     string     `db:"receipt"`
	Status      BetStatus  `db:"status"`
	WinAmount   int64      `db:"win_amount"`
	CreatedAt   time.Time  `db:"created_at"`

	Legs []*BetLeg
}

// BetLeg is the provider-specific slice of a composite bet.
type BetLeg struct {
	ID         int64     `db:"id"`
	BetID      int64     `db:"bet_id"`
	ProviderID int64     `db:"provider_id"`
	Amount     int64     `db:"amount"`
	Status     BetStatus `db:"status"`
	WinAmount  int64     `db:"win_amount"`
	ResultID   *int64    `db:"result_id"`
}

// IsPending reports whether the bet can still be cancelled or settled.
func (b *Bet) IsPending() bool {
	return b.Status == BetStatusPending
}

// LegTotal sums the leg amounts.
func (b *Bet) LegTotal() int64 {
	var total int64
	for _, leg := range b.Legs {
		total += leg.Amount
	}
	return total
}

// HasPendingLegs reports whether any leg is still awaiting settlement.
func (b *Bet) HasPendingLegs() bool {
	for _, leg := range b.Legs {
		if leg.Status == BetStatusPending {
			return true
		}
	}
	return false
}

// RecomputeFromLegs derives the aggregate status and win amount from the
// legs: pending while any leg is pending, won when at least one leg won,
// otherwise lost. A cancelled bet stays cancelled.
func (b *Bet) RecomputeFromLegs() {
	if b.Status == BetStatusCancelled {
		return
	}
	var won bool
	var winTotal int64
	for _, leg := range b.Legs {
		switch leg.Status {
		case BetStatusPending:
			b.Status = BetStatusPending
			return
		case BetStatusWon:
			won = true
			winTotal += leg.WinAmount
		}
	}
	if won {
		b.Status = BetStatusWon
		b.WinAmount = winTotal
	} else {
		b.Status = BetStatusLost
		b.WinAmount = 0
	}
}

// Cancel marks the bet and every leg cancelled. Only meaningful while the
// bet is pending; callers enforce that.
func (b *Bet) Cancel() {
	b.Status = BetStatusCancelled
	for _, leg := range b.Legs {
		leg.Status = BetStatusCancelled
	}
}

// BetFilter narrows bet listings. Zero values mean "no constraint".
type BetFilter struct {
	AccountID    int64
	Status       BetStatus
	GameType     GameType
	DrawDateFrom time.Time
	DrawDateTo   time.Time
	Limit        int
	Offset       int
}
