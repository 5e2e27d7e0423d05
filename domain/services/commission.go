package services

import (
	"math"

	"lottobook/domain/entities"
)

// rateEpsilon absorbs float64 noise in rate differences so a delta that is
// exactly representable in basis points floors to the intended amount.
const rateEpsilon = 1e-9

// ComputeCommissions cascades a percentage of a settled bet's net stake up
// the hierarchy. It is a pure function: ancestors are ordered nearest
// parent first, and each ancestor earns the positive difference between its
// commission rate and the highest rate seen below it, applied to the net
// stake (total wagered minus win amount, floored at zero). It produces one
// record per earning ancestor and never touches quotas or bets.
func ComputeCommissions(bet *entities.Bet, owner *entities.Account, ancestors []*entities.Account) []*entities.CommissionRecord {
	if bet.Status != entities.BetStatusWon && bet.Status != entities.BetStatusLost {
		return nil
	}

	netStake := bet.TotalAmount - bet.WinAmount
	if netStake <= 0 {
		return nil
	}

	records := make([]*entities.CommissionRecord, 0, len(ancestors))
	prevRate := owner.CommissionRate
	for _, ancestor := range ancestors {
		delta := ancestor.CommissionRate - prevRate
		if delta > 0 {
			amount := int64(math.Floor(delta*float64(netStake) + rateEpsilon))
			if amount > 0 {
				records = append(records, &entities.CommissionRecord{
					BetID:     bet.ID,
					AccountID: ancestor.ID,
					Rate:      delta,
					Amount:    amount,
				})
			}
			prevRate = ancestor.CommissionRate
		}
	}
	return records
}
