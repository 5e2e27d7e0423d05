package entities

import (
	"time"
)

// GameType is a fixed digit-length game code.
type GameType string

const (
	GameType3D GameType = "3D"
	GameType4D GameType = "4D"
)

// DigitLen returns the required number length for the game, or 0 for an
// unknown game type.
func (g GameType) DigitLen() int {
	switch g {
	case GameType3D:
		return 3
	case GameType4D:
		return 4
	}
	return 0
}

func (g GameType) Valid() bool {
	return g.DigitLen() > 0
}

// WagerShape selects which prize tiers a bet qualifies to win against.
type WagerShape string

const (
	// WagerShapeBig qualifies for ranked prizes plus the starter and
	// consolation pools.
	WagerShapeBig WagerShape = "BIG"
	// WagerShapeSmall qualifies for ranked prizes only, at higher multipliers.
	WagerShapeSmall WagerShape = "SMALL"
	// WagerShapeIBox matches any digit permutation of the numbers against
	// every tier, with the multiplier divided by the permutation count.
	WagerShapeIBox WagerShape = "IBOX"
)

func (s WagerShape) Valid() bool {
	switch s {
	case WagerShapeBig, WagerShapeSmall, WagerShapeIBox:
		return true
	}
	return false
}

// QualifiesForPools reports whether the shape wins against the starter and
// consolation pools in addition to the ranked tiers.
func (s WagerShape) QualifiesForPools() bool {
	return s == WagerShapeBig || s == WagerShapeIBox
}

// Provider is one external game operator a bet leg can be placed with.
// DrawDays and the cutoff time-of-day define its schedule: the cutoff for a
// draw date is the configured time on that date.
type Provider struct {
	ID           int64          `db:"id"`
	Code         string         `db:"code"`
	Name         string         `db:"name"`
	Active       bool           `db:"active"`
	GameTypes    []GameType     `db:"game_types"`
	WagerShapes  []WagerShape   `db:"wager_shapes"`
	DrawDays     []time.Weekday `db:"draw_days"`
	CutoffHour   int            `db:"cutoff_hour"`
	CutoffMinute int            `db:"cutoff_minute"`
	CreatedAt    time.Time      `db:"created_at"`
}

// SupportsGame reports whether the provider runs draws for the game type.
func (p *Provider) SupportsGame(g GameType) bool {
	for _, gt := range p.GameTypes {
		if gt == g {
			return true
		}
	}
	return false
}

// SupportsShape reports whether the provider accepts the wager shape.
func (p *Provider) SupportsShape(s WagerShape) bool {
	for _, ws := range p.WagerShapes {
		if ws == s {
			return true
		}
	}
	return false
}

// IsDrawDay reports whether the provider holds a draw on the given weekday.
func (p *Provider) IsDrawDay(d time.Weekday) bool {
	for _, day := range p.DrawDays {
		if day == d {
			return true
		}
	}
	return false
}

// CutoffFor returns the sales cutoff instant for a draw date: the provider's
// configured draw time on that date, in UTC.
func (p *Provider) CutoffFor(drawDate time.Time) time.Time {
	d := drawDate.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), p.CutoffHour, p.CutoffMinute, 0, 0, time.UTC)
}

// AcceptsDraw reports whether a leg for the given draw date can still be
// sold at instant now: the date must be one of the provider's draw days and
// now must be before the cutoff on that date.
func (p *Provider) AcceptsDraw(drawDate, now time.Time) bool {
	if !p.IsDrawDay(drawDate.UTC().Weekday()) {
		return false
	}
	return now.Before(p.CutoffFor(drawDate))
}

// NextDrawDate returns the nearest draw date at or after now whose cutoff
// has not yet passed.
func (p *Provider) NextDrawDate(now time.Time) (time.Time, bool) {
	if len(p.DrawDays) == 0 {
		return time.Time{}, false
	}
	day := now.UTC().Truncate(24 * time.Hour)
	for i := 0; i < 8; i++ {
		candidate := day.AddDate(0, 0, i)
		if p.IsDrawDay(candidate.Weekday()) && now.Before(p.CutoffFor(candidate)) {
			return candidate, true
		}
	}
	return time.Time{}, false
}
