package repository

import (
	"context"
	"fmt"
	"time"

	"lottobook/database"
	"lottobook/domain/entities"

	"github.com/jackc/pgx/v5"
)

// ProviderRepository implements the ProviderRepository interface
type ProviderRepository struct {
	q Queryable
}

// NewProviderRepository creates a new provider repository
func NewProviderRepository(db *database.DB) *ProviderRepository {
	return &ProviderRepository{q: db.Pool}
}

func newProviderRepository(q Queryable) *ProviderRepository {
	return &ProviderRepository{q: q}
}

const providerColumns = `
	id, code, name, active, game_types, wager_shapes, draw_days,
	cutoff_hour, cutoff_minute, created_at`

func scanProvider(row pgx.Row) (*entities.Provider, error) {
	var p entities.Provider
	var gameTypes, wagerShapes []string
	var drawDays []int32
	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Name,
		&p.Active,
		&gameTypes,
		&wagerShapes,
		&drawDays,
		&p.CutoffHour,
		&p.CutoffMinute,
		&p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.GameTypes = make([]entities.GameType, len(gameTypes))
	for i, g := range gameTypes {
		p.GameTypes[i] = entities.GameType(g)
	}
	p.WagerShapes = make([]entities.WagerShape, len(wagerShapes))
	for i, s := range wagerShapes {
		p.WagerShapes[i] = entities.WagerShape(s)
	}
	p.DrawDays = make([]time.Weekday, len(drawDays))
	for i, d := range drawDays {
		p.DrawDays[i] = time.Weekday(d)
	}
	return &p, nil
}

// GetByID retrieves a provider by its ID
func (r *ProviderRepository) GetByID(ctx context.Context, id int64) (*entities.Provider, error) {
	query := fmt.Sprintf(`SELECT %s FROM providers WHERE id = $1`, providerColumns)
	provider, err := scanProvider(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get provider %d: %w", id, err)
	}
	return provider, nil
}

// GetByCode retrieves a provider by its short code
func (r *ProviderRepository) GetByCode(ctx context.Context, code string) (*entities.Provider, error) {
	query := fmt.Sprintf(`SELECT %s FROM providers WHERE code = $1`, providerColumns)
	provider, err := scanProvider(r.q.QueryRow(ctx, query, code))
	if err != nil {
		return nil, fmt.Errorf("failed to get provider %s: %w", code, err)
	}
	return provider, nil
}

// List returns providers, optionally restricted to active ones
func (r *ProviderRepository) List(ctx context.Context, activeOnly bool) ([]*entities.Provider, error) {
	query := fmt.Sprintf(`SELECT %s FROM providers`, providerColumns)
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY code`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []*entities.Provider
	for rows.Next() {
		provider, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, provider)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate providers: %w", err)
	}
	return providers, nil
}

// Create inserts a new provider
func (r *ProviderRepository) Create(ctx context.Context, provider *entities.Provider) error {
	gameTypes := make([]string, len(provider.GameTypes))
	for i, g := range provider.GameTypes {
		gameTypes[i] = string(g)
	}
	wagerShapes := make([]string, len(provider.WagerShapes))
	for i, s := range provider.WagerShapes {
		wagerShapes[i] = string(s)
	}
	drawDays := make([]int32, len(provider.DrawDays))
	for i, d := range provider.DrawDays {
		drawDays[i] = int32(d)
	}

	query := `
		INSERT INTO providers (code, name, active, game_types, wager_shapes,
			draw_days, cutoff_hour, cutoff_minute)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		provider.Code,
		provider.Name,
		provider.Active,
		gameTypes,
		wagerShapes,
		drawDays,
		provider.CutoffHour,
		provider.CutoffMinute,
	).Scan(&provider.ID, &provider.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create provider %s: %w", provider.Code, err)
	}
	return nil
}
