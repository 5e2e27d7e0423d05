package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lottobook/database"
	"lottobook/domain"
	"lottobook/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const betColumns = `
	b.id, b.account_id, b.game_type, b.wager_shape, b.numbers, b.total_amount,
	b.draw_date, b.receipt, b.status, b.win_amount, b.created_at`

// BetRepository implements the BetRepository interface
type BetRepository struct {
	q Queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

func newBetRepository(q Queryable) *BetRepository {
	return &BetRepository{q: q}
}

// Create inserts a bet together with all of its legs. A receipt collision
// surfaces as a conflict so the caller can regenerate.
func (r *BetRepository) Create(ctx context.Context, bet *entities.Bet) error {
	query := `
		INSERT INTO bets (account_id, game_type, wager_shape, numbers,
			total_amount, draw_date, receipt, status, win_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		bet.AccountID,
		bet.GameType,
		bet.Shape,
		bet.Numbers,
		bet.TotalAmount,
		bet.DrawDate,
		bet.Receipt,
		bet.Status,
		bet.WinAmount,
	).Scan(&bet.ID, &bet.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Conflictf("receipt %q already exists", bet.Receipt)
		}
		return fmt.Errorf("failed to create bet: %w", err)
	}

	for _, leg := range bet.Legs {
		leg.BetID = bet.ID
		err := r.q.QueryRow(ctx, `
			INSERT INTO bet_legs (bet_id, provider_id, amount, status, win_amount)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, leg.BetID, leg.ProviderID, leg.Amount, leg.Status, leg.WinAmount).Scan(&leg.ID)
		if err != nil {
			return fmt.Errorf("failed to create leg for bet %d: %w", bet.ID, err)
		}
	}
	return nil
}

func (r *BetRepository) getBy(ctx context.Context, scope entities.AccessScope, condition string, args []any) (*entities.Bet, error) {
	scopeSQL, args := scopeCondition(scope, "a", args)
	query := fmt.Sprintf(`
		SELECT %s FROM bets b
		JOIN accounts a ON a.id = b.account_id
		WHERE %s AND %s`, betColumns, condition, scopeSQL)

	var bet entities.Bet
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&bet.ID,
		&bet.AccountID,
		&bet.GameType,
		&bet.Shape,
		&bet.Numbers,
		&bet.TotalAmount,
		&bet.DrawDate,
		&bet.Receipt,
		&bet.Status,
		&bet.WinAmount,
		&bet.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}

	if err := r.loadLegs(ctx, []*entities.Bet{&bet}); err != nil {
		return nil, err
	}
	return &bet, nil
}

// GetByID retrieves a bet with legs; missing and out-of-scope are both nil
func (r *BetRepository) GetByID(ctx context.Context, id int64, scope entities.AccessScope) (*entities.Bet, error) {
	return r.getBy(ctx, scope, "b.id = $1", []any{id})
}

// GetByReceipt retrieves a bet by its receipt code, scope-filtered
func (r *BetRepository) GetByReceipt(ctx context.Context, receipt string, scope entities.AccessScope) (*entities.Bet, error) {
	return r.getBy(ctx, scope, "b.receipt = $1", []any{receipt})
}

// List returns bets matching the filter, scope-filtered and paginated,
// newest first
func (r *BetRepository) List(ctx context.Context, filter entities.BetFilter, scope entities.AccessScope) ([]*entities.Bet, error) {
	var args []any
	conditions := ""
	add := func(condition string, value any) {
		args = append(args, value)
		conditions += fmt.Sprintf(" AND "+condition, len(args))
	}

	if filter.AccountID != 0 {
		add("b.account_id = $%d", filter.AccountID)
	}
	if filter.Status != "" {
		add("b.status = $%d", filter.Status)
	}
	if filter.GameType != "" {
		add("b.game_type = $%d", filter.GameType)
	}
	if !filter.DrawDateFrom.IsZero() {
		add("b.draw_date >= $%d", filter.DrawDateFrom)
	}
	if !filter.DrawDateTo.IsZero() {
		add("b.draw_date <= $%d", filter.DrawDateTo)
	}

	scopeSQL, args := scopeCondition(scope, "a", args)

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s FROM bets b
		JOIN accounts a ON a.id = b.account_id
		WHERE %s%s
		ORDER BY b.created_at DESC, b.id DESC
		LIMIT $%d OFFSET $%d`,
		betColumns, scopeSQL, conditions, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	defer rows.Close()

	bets, err := collectBets(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadLegs(ctx, bets); err != nil {
		return nil, err
	}
	return bets, nil
}

// CountForAccountSince counts an account's bets created at or after the
// given instant
func (r *BetRepository) CountForAccountSince(ctx context.Context, accountID int64, since time.Time) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM bets WHERE account_id = $1 AND created_at >= $2`,
		accountID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bets for account %d: %w", accountID, err)
	}
	return count, nil
}

// GetPendingByDraw returns bets that still have a pending leg for the given
// provider, game type and draw date, legs loaded
func (r *BetRepository) GetPendingByDraw(ctx context.Context, providerID int64, gameType entities.GameType, drawDate time.Time) ([]*entities.Bet, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s FROM bets b
		JOIN bet_legs l ON l.bet_id = b.id
		WHERE l.provider_id = $1 AND l.status = 'pending'
			AND b.game_type = $2 AND b.draw_date = $3
		ORDER BY b.id`, betColumns)

	rows, err := r.q.Query(ctx, query, providerID, gameType, drawDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get open bets for provider %d: %w", providerID, err)
	}
	defer rows.Close()

	bets, err := collectBets(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadLegs(ctx, bets); err != nil {
		return nil, err
	}
	return bets, nil
}

// UpdateLeg persists a leg's settlement outcome
func (r *BetRepository) UpdateLeg(ctx context.Context, leg *entities.BetLeg) (bool, error) {
	// Only a pending leg may settle; a cancellation that committed after
	// the settlement read must win, so the write is status-guarded.
	result, err := r.q.Exec(ctx, `
		UPDATE bet_legs
		SET status = $1, win_amount = $2, result_id = $3
		WHERE id = $4 AND status = 'pending'
	`, leg.Status, leg.WinAmount, leg.ResultID, leg.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update leg %d: %w", leg.ID, err)
	}
	return result.RowsAffected() > 0, nil
}

// UpdateAggregates persists the bet's recomputed status and win amount
func (r *BetRepository) UpdateAggregates(ctx context.Context, bet *entities.Bet) error {
	// A cancelled bet stays cancelled; the quota was already refunded and
	// a settlement racing the cancellation must not overwrite it.
	_, err := r.q.Exec(ctx, `
		UPDATE bets
		SET status = $1, win_amount = $2
		WHERE id = $3 AND status <> 'cancelled'
	`, bet.Status, bet.WinAmount, bet.ID)
	if err != nil {
		return fmt.Errorf("failed to update bet %d: %w", bet.ID, err)
	}
	return nil
}

// CancelBet marks a pending bet and its pending legs cancelled. The status
// guard in the WHERE clause makes the transition race-safe: only one caller
// observes a row transition.
func (r *BetRepository) CancelBet(ctx context.Context, betID int64) (bool, error) {
	result, err := r.q.Exec(ctx, `
		UPDATE bets
		SET status = 'cancelled'
		WHERE id = $1 AND status = 'pending'
	`, betID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel bet %d: %w", betID, err)
	}
	if result.RowsAffected() == 0 {
		return false, nil
	}

	_, err = r.q.Exec(ctx, `
		UPDATE bet_legs
		SET status = 'cancelled'
		WHERE bet_id = $1 AND status = 'pending'
	`, betID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel legs of bet %d: %w", betID, err)
	}
	return true, nil
}

// loadLegs attaches legs to the given bets in one query.
func (r *BetRepository) loadLegs(ctx context.Context, bets []*entities.Bet) error {
	if len(bets) == 0 {
		return nil
	}
	ids := make([]int64, len(bets))
	byID := make(map[int64]*entities.Bet, len(bets))
	for i, bet := range bets {
		ids[i] = bet.ID
		byID[bet.ID] = bet
		bet.Legs = nil
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, bet_id, provider_id, amount, status, win_amount, result_id
		FROM bet_legs
		WHERE bet_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load bet legs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var leg entities.BetLeg
		err := rows.Scan(
			&leg.ID,
			&leg.BetID,
			&leg.ProviderID,
			&leg.Amount,
			&leg.Status,
			&leg.WinAmount,
			&leg.ResultID,
		)
		if err != nil {
			return fmt.Errorf("failed to scan bet leg: %w", err)
		}
		if bet, ok := byID[leg.BetID]; ok {
			bet.Legs = append(bet.Legs, &leg)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate bet legs: %w", err)
	}
	return nil
}

func collectBets(rows pgx.Rows) ([]*entities.Bet, error) {
	var bets []*entities.Bet
	for rows.Next() {
		var bet entities.Bet
		err := rows.Scan(
			&bet.ID,
			&bet.AccountID,
			&bet.GameType,
			&bet.Shape,
			&bet.Numbers,
			&bet.TotalAmount,
			&bet.DrawDate,
			&bet.Receipt,
			&bet.Status,
			&bet.WinAmount,
			&bet.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, &bet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bets: %w", err)
	}
	return bets, nil
}
