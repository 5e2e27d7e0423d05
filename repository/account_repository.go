package repository

import (
	"context"
	"fmt"

	"lottobook/database"
	"lottobook/domain"
	"lottobook/domain/entities"

	"github.com/jackc/pgx/v5"
)

// quotaResetLockID identifies the advisory lock serializing bulk quota
// resets. Arbitrary but stable.
const quotaResetLockID = 874011

const accountColumns = `
	id, username, role, parent_id, ancestor_path, quota_limit, quota_used,
	active, can_create_sub_accounts, commission_rate, created_at, updated_at`

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q Queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

func newAccountRepository(q Queryable) *AccountRepository {
	return &AccountRepository{q: q}
}

func scanAccount(row pgx.Row) (*entities.Account, error) {
	var account entities.Account
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Role,
		&account.ParentID,
		&account.AncestorPath,
		&account.QuotaLimit,
		&account.QuotaUsed,
		&account.Active,
		&account.CanCreateSubAccounts,
		&account.CommissionRate,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) getBy(ctx context.Context, condition string, args ...any) (*entities.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE %s`, accountColumns, condition)
	account, err := scanAccount(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*entities.Account, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByIDForUpdate retrieves an account with a row lock for update
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Account, error) {
	return r.getBy(ctx, "id = $1 FOR UPDATE", id)
}

// GetByUsername retrieves an account by its unique username
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*entities.Account, error) {
	return r.getBy(ctx, "username = $1", username)
}

// Create inserts a new account and fills in its generated fields
func (r *AccountRepository) Create(ctx context.Context, account *entities.Account) error {
	query := `
		INSERT INTO accounts (username, role, parent_id, ancestor_path, quota_limit,
			quota_used, active, can_create_sub_accounts, commission_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	path := account.AncestorPath
	if path == nil {
		path = []int64{}
	}
	err := r.q.QueryRow(ctx, query,
		account.Username,
		account.Role,
		account.ParentID,
		path,
		account.QuotaLimit,
		account.QuotaUsed,
		account.Active,
		account.CanCreateSubAccounts,
		account.CommissionRate,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", account.Username, err)
	}
	return nil
}

// Update persists the mutable account fields
func (r *AccountRepository) Update(ctx context.Context, account *entities.Account) error {
	query := `
		UPDATE accounts
		SET quota_limit = $1, active = $2, can_create_sub_accounts = $3,
			commission_rate = $4, updated_at = NOW()
		WHERE id = $5
	`
	result, err := r.q.Exec(ctx, query,
		account.QuotaLimit,
		account.Active,
		account.CanCreateSubAccounts,
		account.CommissionRate,
		account.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account %d: %w", account.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", account.ID)
	}
	return nil
}

// GetByIDs retrieves the accounts for the given ids, in input order
func (r *AccountRepository) GetByIDs(ctx context.Context, ids []int64) ([]*entities.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT %s FROM accounts
		JOIN unnest($1::bigint[]) WITH ORDINALITY AS input(id, ord) USING (id)
		ORDER BY input.ord`, accountColumns)

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts by ids: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// GetChildren returns the direct children of an account
func (r *AccountRepository) GetChildren(ctx context.Context, id int64) ([]*entities.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE parent_id = $1 ORDER BY id`, accountColumns)

	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get children of account %d: %w", id, err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// GetDescendants returns every account whose ancestor path contains id,
// ordered so parents come before their children
func (r *AccountRepository) GetDescendants(ctx context.Context, id int64) ([]*entities.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM accounts
		WHERE $1 = ANY(ancestor_path)
		ORDER BY cardinality(ancestor_path), id`, accountColumns)

	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get descendants of account %d: %w", id, err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// CountActiveChildren returns the number of active direct children
func (r *AccountRepository) CountActiveChildren(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM accounts WHERE parent_id = $1 AND active`, id,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active children of account %d: %w", id, err)
	}
	return count, nil
}

// ReserveQuota atomically consumes quota headroom. The limit check lives in
// the WHERE clause of a single update, so two concurrent reservations are
// serialized by the row lock and the second evaluates against the first's
// committed value.
func (r *AccountRepository) ReserveQuota(ctx context.Context, id int64, amount int64) (bool, error) {
	query := `
		UPDATE accounts
		SET quota_used = quota_used + $2, updated_at = NOW()
		WHERE id = $1 AND active AND quota_used + $2 <= quota_limit
	`
	result, err := r.q.Exec(ctx, query, id, amount)
	if err != nil {
		return false, fmt.Errorf("failed to reserve quota for account %d: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

// RefundQuota decrements quota_used, floored at zero
func (r *AccountRepository) RefundQuota(ctx context.Context, id int64, amount int64) error {
	query := `
		UPDATE accounts
		SET quota_used = GREATEST(quota_used - $2, 0), updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to refund quota for account %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", id)
	}
	return nil
}

// ResetAllQuotas zeroes quota_used for every account that has spent quota,
// in one statement. An advisory transaction lock keeps concurrent resets
// out; holding contention is a conflict rather than a wait.
func (r *AccountRepository) ResetAllQuotas(ctx context.Context) (int, int64, error) {
	var locked bool
	if err := r.q.QueryRow(ctx,
		`SELECT pg_try_advisory_xact_lock($1)`, quotaResetLockID,
	).Scan(&locked); err != nil {
		return 0, 0, fmt.Errorf("failed to take quota reset lock: %w", err)
	}
	if !locked {
		return 0, 0, domain.Conflictf("another quota reset is in progress")
	}

	// RETURNING sees post-update values, so the spent amount is read off a
	// locked snapshot joined back in.
	query := `
		WITH reset AS (
			UPDATE accounts a
			SET quota_used = 0, updated_at = NOW()
			FROM (SELECT id, quota_used FROM accounts WHERE quota_used > 0 FOR UPDATE) prev
			WHERE a.id = prev.id
			RETURNING prev.quota_used AS previous
		)
		SELECT COUNT(*), COALESCE(SUM(previous), 0) FROM reset
	`
	var affected int
	var total int64
	if err := r.q.QueryRow(ctx, query).Scan(&affected, &total); err != nil {
		return 0, 0, fmt.Errorf("failed to reset quotas: %w", err)
	}
	return affected, total, nil
}

// Reparent moves an account under a new parent and rewrites the ancestor
// paths of the whole moved subtree. The prefix rewrite keeps each
// descendant's tail below the moved account intact.
func (r *AccountRepository) Reparent(ctx context.Context, accountID, newParentID int64, oldPath, newPath []int64) error {
	result, err := r.q.Exec(ctx, `
		UPDATE accounts
		SET parent_id = $2, ancestor_path = $3, updated_at = NOW()
		WHERE id = $1
	`, accountID, newParentID, newPath)
	if err != nil {
		return fmt.Errorf("failed to reparent account %d: %w", accountID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", accountID)
	}

	// A descendant's path is oldPath, then the moved account, then the tail
	// below it; only the oldPath prefix changes.
	_, err = r.q.Exec(ctx, `
		UPDATE accounts
		SET ancestor_path = $2::bigint[] ||
			ancestor_path[(cardinality($3::bigint[]) + 1):cardinality(ancestor_path)],
			updated_at = NOW()
		WHERE $1 = ANY(ancestor_path)
	`, accountID, newPath, oldPath)
	if err != nil {
		return fmt.Errorf("failed to rewrite descendant paths of account %d: %w", accountID, err)
	}
	return nil
}

func collectAccounts(rows pgx.Rows) ([]*entities.Account, error) {
	var accounts []*entities.Account
	for rows.Next() {
		var account entities.Account
		err := rows.Scan(
			&account.ID,
			&account.Username,
			&account.Role,
			&account.ParentID,
			&account.AncestorPath,
			&account.QuotaLimit,
			&account.QuotaUsed,
			&account.Active,
			&account.CanCreateSubAccounts,
			&account.CommissionRate,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}
