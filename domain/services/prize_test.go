package services

import (
	"testing"

	"lottobook/domain/entities"

	"github.com/stretchr/testify/assert"
)

func testResult() *entities.DrawResult {
	return &entities.DrawResult{
		ProviderID:  1,
		GameType:    entities.GameType4D,
		FirstPrize:  "1234",
		SecondPrize: "5678",
		ThirdPrize:  "9012",
		Starters: []string{
			"1111", "2222", "3333", "4444", "5555",
			"6666", "7777", "8888", "9999", "0001",
		},
		Consolations: []string{
			"0002", "0003", "0004", "0005", "0006",
			"0007", "0008", "0009", "0010", "0011",
		},
	}
}

func TestDeterminePrizeTier_RankedMatches(t *testing.T) {
	result := testResult()

	assert.Equal(t, TierFirst, DeterminePrizeTier("1234", entities.WagerShapeBig, result))
	assert.Equal(t, TierSecond, DeterminePrizeTier("5678", entities.WagerShapeBig, result))
	assert.Equal(t, TierThird, DeterminePrizeTier("9012", entities.WagerShapeSmall, result))
	assert.Equal(t, TierNone, DeterminePrizeTier("0000", entities.WagerShapeBig, result))
}

func TestDeterminePrizeTier_PoolsOnlyForQualifyingShapes(t *testing.T) {
	result := testResult()

	assert.Equal(t, TierStarter, DeterminePrizeTier("1111", entities.WagerShapeBig, result))
	assert.Equal(t, TierConsolation, DeterminePrizeTier("0002", entities.WagerShapeBig, result))

	assert.Equal(t, TierNone, DeterminePrizeTier("1111", entities.WagerShapeSmall, result))
	assert.Equal(t, TierNone, DeterminePrizeTier("0002", entities.WagerShapeSmall, result))
}

func TestDeterminePrizeTier_IBoxMatchesPermutations(t *testing.T) {
	result := testResult()

	assert.Equal(t, TierFirst, DeterminePrizeTier("4321", entities.WagerShapeIBox, result))
	assert.Equal(t, TierFirst, DeterminePrizeTier("2143", entities.WagerShapeIBox, result))
	assert.Equal(t, TierSecond, DeterminePrizeTier("8765", entities.WagerShapeIBox, result))
	assert.Equal(t, TierNone, DeterminePrizeTier("1235", entities.WagerShapeIBox, result))
}

func TestDeterminePrizeTier_RankedTakesPrecedenceOverPools(t *testing.T) {
	result := testResult()
	result.Starters[0] = "1234"

	assert.Equal(t, TierFirst, DeterminePrizeTier("1234", entities.WagerShapeBig, result))
}

func TestWinAmount_BigMultipliers(t *testing.T) {
	assert.Equal(t, int64(250000), WinAmount(TierFirst, entities.WagerShapeBig, "1234", 100))
	assert.Equal(t, int64(100000), WinAmount(TierSecond, entities.WagerShapeBig, "1234", 100))
	assert.Equal(t, int64(50000), WinAmount(TierThird, entities.WagerShapeBig, "1234", 100))
	assert.Equal(t, int64(18000), WinAmount(TierStarter, entities.WagerShapeBig, "1234", 100))
	assert.Equal(t, int64(6000), WinAmount(TierConsolation, entities.WagerShapeBig, "1234", 100))
}

func TestWinAmount_SmallMultipliers(t *testing.T) {
	assert.Equal(t, int64(350000), WinAmount(TierFirst, entities.WagerShapeSmall, "1234", 100))
	assert.Equal(t, int64(200000), WinAmount(TierSecond, entities.WagerShapeSmall, "1234", 100))
	assert.Equal(t, int64(100000), WinAmount(TierThird, entities.WagerShapeSmall, "1234", 100))
	// Small never pays pool tiers.
	assert.Equal(t, int64(0), WinAmount(TierStarter, entities.WagerShapeSmall, "1234", 100))
}

func TestWinAmount_IBoxDividesByPermutations(t *testing.T) {
	// 1234 has 24 distinct orderings: 2500 / 24 = 104 per unit.
	assert.Equal(t, int64(10400), WinAmount(TierFirst, entities.WagerShapeIBox, "1234", 100))
	// 1123 has 12: 2500 / 12 = 208.
	assert.Equal(t, int64(20800), WinAmount(TierFirst, entities.WagerShapeIBox, "1123", 100))
	// 1122 has 6: 2500 / 6 = 416.
	assert.Equal(t, int64(41600), WinAmount(TierFirst, entities.WagerShapeIBox, "1122", 100))
	// 1112 has 4: 2500 / 4 = 625.
	assert.Equal(t, int64(62500), WinAmount(TierFirst, entities.WagerShapeIBox, "1112", 100))
}

func TestWinAmount_NoTierPaysNothing(t *testing.T) {
	assert.Equal(t, int64(0), WinAmount(TierNone, entities.WagerShapeBig, "1234", 100))
}

func TestPermutationCount(t *testing.T) {
	assert.Equal(t, int64(24), permutationCount("1234"))
	assert.Equal(t, int64(12), permutationCount("1123"))
	assert.Equal(t, int64(6), permutationCount("1122"))
	assert.Equal(t, int64(4), permutationCount("1112"))
	assert.Equal(t, int64(1), permutationCount("1111"))
	assert.Equal(t, int64(6), permutationCount("123"))
	assert.Equal(t, int64(0), permutationCount("12a4"))
}

func TestSamePermutation(t *testing.T) {
	assert.True(t, samePermutation("1234", "4321"))
	assert.True(t, samePermutation("1122", "2211"))
	assert.False(t, samePermutation("1234", "1235"))
	assert.False(t, samePermutation("123", "1234"))
	assert.False(t, samePermutation("1123", "1223"))
}
