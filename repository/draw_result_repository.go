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

const drawResultColumns = `
	id, provider_id, game_type, draw_date, first_prize, second_prize,
	third_prize, starters, consolations, status, source, created_at, finalized_at`

// DrawResultRepository implements the DrawResultRepository interface
type DrawResultRepository struct {
	q Queryable
}

// NewDrawResultRepository creates a new draw result repository
func NewDrawResultRepository(db *database.DB) *DrawResultRepository {
	return &DrawResultRepository{q: db.Pool}
}

func newDrawResultRepository(q Queryable) *DrawResultRepository {
	return &DrawResultRepository{q: q}
}

func scanDrawResult(row pgx.Row) (*entities.DrawResult, error) {
	var result entities.DrawResult
	err := row.Scan(
		&result.ID,
		&result.ProviderID,
		&result.GameType,
		&result.DrawDate,
		&result.FirstPrize,
		&result.SecondPrize,
		&result.ThirdPrize,
		&result.Starters,
		&result.Consolations,
		&result.Status,
		&result.Source,
		&result.CreatedAt,
		&result.FinalizedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Create inserts a new result. The (provider, game type, draw date) unique
// constraint turns a duplicate ingest into a conflict.
func (r *DrawResultRepository) Create(ctx context.Context, result *entities.DrawResult) error {
	query := `
		INSERT INTO draw_results (provider_id, game_type, draw_date, first_prize,
			second_prize, third_prize, starters, consolations, status, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		result.ProviderID,
		result.GameType,
		result.DrawDate,
		result.FirstPrize,
		result.SecondPrize,
		result.ThirdPrize,
		result.Starters,
		result.Consolations,
		result.Status,
		result.Source,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Conflictf("result for provider %d, %s draw on %s already exists",
				result.ProviderID, result.GameType, result.DrawDate.Format("2006-01-02"))
		}
		return fmt.Errorf("failed to create draw result: %w", err)
	}
	return nil
}

// GetByID retrieves a result by its ID
func (r *DrawResultRepository) GetByID(ctx context.Context, id int64) (*entities.DrawResult, error) {
	query := fmt.Sprintf(`SELECT %s FROM draw_results WHERE id = $1`, drawResultColumns)
	result, err := scanDrawResult(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result %d: %w", id, err)
	}
	return result, nil
}

// GetByIDForUpdate retrieves a result with a row lock for update
func (r *DrawResultRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.DrawResult, error) {
	query := fmt.Sprintf(`SELECT %s FROM draw_results WHERE id = $1 FOR UPDATE`, drawResultColumns)
	result, err := scanDrawResult(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result %d for update: %w", id, err)
	}
	return result, nil
}

// GetByDraw retrieves the result for (provider, game type, draw date)
func (r *DrawResultRepository) GetByDraw(ctx context.Context, providerID int64, gameType entities.GameType, drawDate time.Time) (*entities.DrawResult, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM draw_results
		WHERE provider_id = $1 AND game_type = $2 AND draw_date = $3`, drawResultColumns)
	result, err := scanDrawResult(r.q.QueryRow(ctx, query, providerID, gameType, drawDate))
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result for provider %d: %w", providerID, err)
	}
	return result, nil
}

// ListPending returns results that have not been processed yet, oldest first
func (r *DrawResultRepository) ListPending(ctx context.Context) ([]*entities.DrawResult, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM draw_results
		WHERE status = 'pending'
		ORDER BY created_at`, drawResultColumns)

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending results: %w", err)
	}
	defer rows.Close()

	var results []*entities.DrawResult
	for rows.Next() {
		result, err := scanDrawResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draw result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate draw results: %w", err)
	}
	return results, nil
}

// MarkFinal transitions a result pending->final. The status guard makes the
// transition happen exactly once across concurrent processors.
func (r *DrawResultRepository) MarkFinal(ctx context.Context, id int64, at time.Time) (bool, error) {
	result, err := r.q.Exec(ctx, `
		UPDATE draw_results
		SET status = 'final', finalized_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to finalize draw result %d: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}
