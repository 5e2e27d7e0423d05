package entities

// CommissionRecord is one ancestor's cut of a settled bet's net stake.
// Records are produced by a pure computation after settlement and never
// feed back into quotas or bets.
type CommissionRecord struct {
	BetID     int64   `db:"bet_id"`
	AccountID int64   `db:"account_id"`
	Rate      float64 `db:"rate"`
	Amount    int64   `db:"amount"`
}
