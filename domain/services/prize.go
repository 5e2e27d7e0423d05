package services

import (
	"lottobook/domain/entities"
)

// PrizeTier identifies which prize a bet's numbers matched.
type PrizeTier int

const (
	TierNone PrizeTier = iota
	TierFirst
	TierSecond
	TierThird
	TierStarter
	TierConsolation
)

func (t PrizeTier) String() string {
	switch t {
	case TierFirst:
		return "first"
	case TierSecond:
		return "second"
	case TierThird:
		return "third"
	case TierStarter:
		return "starter"
	case TierConsolation:
		return "consolation"
	}
	return "none"
}

// Payout multipliers per unit wagered. IBOX pays from the BIG table divided
// by the count of distinct permutations of the numbers.
var bigMultipliers = map[PrizeTier]int64{
	TierFirst:       2500,
	TierSecond:      1000,
	TierThird:       500,
	TierStarter:     180,
	TierConsolation: 60,
}

var smallMultipliers = map[PrizeTier]int64{
	TierFirst:  3500,
	TierSecond: 2000,
	TierThird:  1000,
}

// DeterminePrizeTier compares a bet's numbers against a draw result.
// Ranked tiers are checked in order, then the starter and consolation pools
// for shapes that qualify. The IBOX shape matches any digit permutation of
// the numbers against every tier.
func DeterminePrizeTier(numbers string, shape entities.WagerShape, result *entities.DrawResult) PrizeTier {
	match := func(prize string) bool { return numbers == prize }
	if shape == entities.WagerShapeIBox {
		match = func(prize string) bool { return samePermutation(numbers, prize) }
	}

	ranked := result.RankedPrizes()
	for i, prize := range ranked {
		if match(prize) {
			return PrizeTier(int(TierFirst) + i)
		}
	}

	if !shape.QualifiesForPools() {
		return TierNone
	}
	for _, prize := range result.Starters {
		if match(prize) {
			return TierStarter
		}
	}
	for _, prize := range result.Consolations {
		if match(prize) {
			return TierConsolation
		}
	}
	return TierNone
}

// WinAmount computes the payout for a leg: the tier multiplier for the
// wager shape times the wagered amount. Unmatched tiers pay zero.
func WinAmount(tier PrizeTier, shape entities.WagerShape, numbers string, amount int64) int64 {
	if tier == TierNone {
		return 0
	}
	switch shape {
	case entities.WagerShapeBig:
		return bigMultipliers[tier] * amount
	case entities.WagerShapeSmall:
		return smallMultipliers[tier] * amount
	case entities.WagerShapeIBox:
		perms := permutationCount(numbers)
		if perms == 0 {
			return 0
		}
		return (bigMultipliers[tier] / perms) * amount
	}
	return 0
}

// samePermutation reports whether two digit strings contain the same
// multiset of digits.
func samePermutation(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var counts [10]int
	for _, c := range a {
		if c < '0' || c > '9' {
			return false
		}
		counts[c-'0']++
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
		counts[c-'0']--
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}

// permutationCount returns the number of distinct digit orderings of the
// numbers: n! divided by the factorial of each repeated digit's count.
func permutationCount(numbers string) int64 {
	var counts [10]int
	for _, c := range numbers {
		if c < '0' || c > '9' {
			return 0
		}
		counts[c-'0']++
	}
	result := factorial(len(numbers))
	for _, n := range counts {
		if n > 1 {
			result /= factorial(n)
		}
	}
	return result
}

func factorial(n int) int64 {
	var f int64 = 1
	for i := 2; i <= n; i++ {
		f *= int64(i)
	}
	return f
}
