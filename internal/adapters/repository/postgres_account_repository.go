package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var _ domain.AccountRepository = (*PostgresAccountRepository)(nil)

const accountsSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    provider_user_id text PRIMARY KEY,
    display_name text NOT NULL DEFAULT '',
    avatar text NOT NULL DEFAULT '',
    timezone text NOT NULL DEFAULT '',
    scopes text[] NOT NULL DEFAULT '{}',
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW(),
    last_login_at timestamptz NOT NULL DEFAULT NOW()
);
`

type PostgresAccountRepository struct {
	db *sqlx.DB
}

func NewPostgresAccountRepository(db *sqlx.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

// EnsureSchema creates the accounts table when it does not exist yet.
func (r *PostgresAccountRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, accountsSchema); err != nil {
		return fmt.Errorf("repository: create accounts table failed: %w", err)
	}
	return nil
}

type accountRow struct {
	ProviderUserID string         `db:"provider_user_id"`
	DisplayName    string         `db:"display_name"`
	Avatar         string         `db:"avatar"`
	Timezone       string         `db:"timezone"`
	Scopes         pq.StringArray `db:"scopes"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	LastLoginAt    time.Time      `db:"last_login_at"`
}

func (row accountRow) toDomain() *domain.Account {
	return &domain.Account{
		ProviderUserID: row.ProviderUserID,
		DisplayName:    row.DisplayName,
		Avatar:         row.Avatar,
		Timezone:       row.Timezone,
		Scopes:         []string(row.Scopes),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		LastLoginAt:    row.LastLoginAt,
	}
}

func (r *PostgresAccountRepository) Upsert(ctx context.Context, a *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	query := `
		INSERT INTO accounts (
			provider_user_id, display_name, avatar, timezone, scopes,
			created_at, updated_at, last_login_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider_user_id) DO UPDATE SET
			display_name = CASE WHEN EXCLUDED.display_name <> '' THEN EXCLUDED.display_name ELSE accounts.display_name END,
			avatar = CASE WHEN EXCLUDED.avatar <> '' THEN EXCLUDED.avatar ELSE accounts.avatar END,
			timezone = CASE WHEN EXCLUDED.timezone <> '' THEN EXCLUDED.timezone ELSE accounts.timezone END,
			scopes = EXCLUDED.scopes,
			updated_at = EXCLUDED.updated_at,
			last_login_at = EXCLUDED.last_login_at
		RETURNING created_at`

	scopes := a.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	err := r.db.QueryRowxContext(ctx, query,
		a.ProviderUserID, a.DisplayName, a.Avatar, a.Timezone, pq.Array(scopes),
		a.CreatedAt, a.UpdatedAt, a.LastLoginAt,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: upsert account failed: %w", err)
	}

	return nil
}

func (r *PostgresAccountRepository) GetByProviderUserID(ctx context.Context, providerUserID string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	query := `
		SELECT provider_user_id, display_name, avatar, timezone, scopes,
		       created_at, updated_at, last_login_at
		FROM accounts
		WHERE provider_user_id = $1`

	var row accountRow
	if err := r.db.GetContext(ctx, &row, query, providerUserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("repository: get account failed: %w", err)
	}

	return row.toDomain(), nil
}

func (r *PostgresAccountRepository) Delete(ctx context.Context, providerUserID string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE provider_user_id = $1`, providerUserID)
	if err != nil {
		return fmt.Errorf("repository: delete account failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: delete account failed: %w", err)
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
