package testutil

import (
	"fmt"
	"time"

	"lottobook/domain/entities"
)

// CreateTestAccount creates a top-level admin account with default values
func CreateTestAccount(username string) *entities.Account {
	return &entities.Account{
		Username:             username,
		Role:                 entities.RoleAdmin,
		AncestorPath:         []int64{},
		QuotaLimit:           1_000_000,
		CanCreateSubAccounts: true,
		CommissionRate:       0.30,
		Active:               true,
	}
}

// CreateTestChildAccount creates an account one tier below the given parent
func CreateTestChildAccount(username string, role entities.Role, parent *entities.Account) *entities.Account {
	return &entities.Account{
		Username:             username,
		Role:                 role,
		ParentID:             &parent.ID,
		AncestorPath:         parent.ChildPath(),
		QuotaLimit:           parent.QuotaLimit / 2,
		CanCreateSubAccounts: role != entities.RolePlayer,
		CommissionRate:       parent.CommissionRate / 2,
		Active:               true,
	}
}

// CreateTestProvider creates an active provider drawing Wed/Sat/Sun with a
// 19:00 cutoff, supporting both games and all wager shapes
func CreateTestProvider(code, name string) *entities.Provider {
	return &entities.Provider{
		Code:   code,
		Name:   name,
		Active: true,
		GameTypes: []entities.GameType{
			entities.GameType3D,
			entities.GameType4D,
		},
		WagerShapes: []entities.WagerShape{
			entities.WagerShapeBig,
			entities.WagerShapeSmall,
			entities.WagerShapeIBox,
		},
		DrawDays: []time.Weekday{
			time.Wednesday,
			time.Saturday,
			time.Sunday,
		},
		CutoffHour:   19,
		CutoffMinute: 0,
	}
}

// CreateTestBet creates a pending 4D BIG bet with a single leg
func CreateTestBet(accountID, providerID int64, receipt string, drawDate time.Time) *entities.Bet {
	return &entities.Bet{
		AccountID:   accountID,
		GameType:    entities.GameType4D,
		Shape:       entities.WagerShapeBig,
		Numbers:     "1234",
		TotalAmount: 100,
		DrawDate:    drawDate,
		Receipt:     receipt,
		Status:      entities.BetStatusPending,
		Legs: []*entities.BetLeg{
			{
				ProviderID: providerID,
				Amount:     100,
				Status:     entities.BetStatusPending,
			},
		},
	}
}

// CreateTestBetWithLegs creates a pending bet splitting the stake across providers
func CreateTestBetWithLegs(accountID int64, receipt string, drawDate time.Time, legs map[int64]int64) *entities.Bet {
	bet := &entities.Bet{
		AccountID: accountID,
		GameType:  entities.GameType4D,
		Shape:     entities.WagerShapeBig,
		Numbers:   "1234",
		DrawDate:  drawDate,
		Receipt:   receipt,
		Status:    entities.BetStatusPending,
	}
	for providerID, amount := range legs {
		bet.Legs = append(bet.Legs, &entities.BetLeg{
			ProviderID: providerID,
			Amount:     amount,
			Status:     entities.BetStatusPending,
		})
		bet.TotalAmount += amount
	}
	return bet
}

// CreateTestDrawResult creates a pending 4D result with full prize pools
func CreateTestDrawResult(providerID int64, drawDate time.Time) *entities.DrawResult {
	starters := make([]string, entities.PoolSize)
	consolations := make([]string, entities.PoolSize)
	for i := range starters {
		starters[i] = fmt.Sprintf("%04d", 1000+i)
		consolations[i] = fmt.Sprintf("%04d", 2000+i)
	}
	return &entities.DrawResult{
		ProviderID:   providerID,
		GameType:     entities.GameType4D,
		DrawDate:     drawDate,
		FirstPrize:   "1234",
		SecondPrize:  "5678",
		ThirdPrize:   "9012",
		Starters:     starters,
		Consolations: consolations,
		Status:       entities.ResultStatusPending,
		Source:       entities.ResultSourceManual,
	}
}
