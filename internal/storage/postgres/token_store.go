package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-selector/internal/domain"
	"solana-token-selector/internal/observability"
	"solana-token-selector/internal/solana"
	"solana-token-selector/internal/storage"
)

const tokenColumns = `
	address, symbol, name, logo_url,
	price_change_24h_pct, volume_24h_usd, decimals,
	discord_url, twitter_url, telegram_url, website_url,
	is_active, created_at, updated_at
`

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
	now  func() int64
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{
		pool: pool,
		now:  func() int64 { return time.Now().UnixMilli() },
	}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Create inserts a new token. Returns ErrDuplicateKey if address exists.
func (s *TokenStore) Create(ctx context.Context, t *domain.Token) (err error) {
	if t == nil || solana.ValidateAddress(t.Address) != nil {
		return storage.ErrInvalidInput
	}
	defer observeQuery("create_token", time.Now(), &err)

	now := s.now()
	createdAt, updatedAt := t.CreatedAt, t.UpdatedAt
	if createdAt == 0 {
		createdAt = now
	}
	if updatedAt == 0 {
		updatedAt = now
	}

	query := `INSERT INTO tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = s.pool.Exec(ctx, query,
		t.Address,
		t.Symbol,
		t.Name,
		t.LogoURL,
		t.PriceChange24hPct,
		t.Volume24hUSD,
		t.Decimals,
		t.Socials.Discord,
		t.Socials.Twitter,
		t.Socials.Telegram,
		t.Socials.Website,
		t.IsActive,
		createdAt,
		updatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetByAddress retrieves a token by mint address. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAddress(ctx context.Context, address string) (_ *domain.Token, err error) {
	defer observeQuery("get_token", time.Now(), &err)

	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE address = $1`

	t, err := scanToken(s.pool.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by address: %w", err)
	}
	return t, nil
}

// GetAllActive retrieves all active tokens ordered by address.
func (s *TokenStore) GetAllActive(ctx context.Context) (_ []*domain.Token, err error) {
	defer observeQuery("get_active_tokens", time.Now(), &err)

	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE is_active ORDER BY address ASC`
	return s.query(ctx, query)
}

// GetAll retrieves all tokens ordered by address.
func (s *TokenStore) GetAll(ctx context.Context) (_ []*domain.Token, err error) {
	defer observeQuery("get_all_tokens", time.Now(), &err)

	query := `SELECT ` + tokenColumns + ` FROM tokens ORDER BY address ASC`
	return s.query(ctx, query)
}

// UpdateActiveState sets the active flag. Returns ErrNotFound if not exists.
func (s *TokenStore) UpdateActiveState(ctx context.Context, address string, active bool) (err error) {
	defer observeQuery("update_active_state", time.Now(), &err)

	query := `UPDATE tokens SET is_active = $2, updated_at = $3 WHERE address = $1`

	tag, err := s.pool.Exec(ctx, query, address, active, s.now())
	if err != nil {
		return fmt.Errorf("update active state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateFinancials overwrites price change, volume and decimals.
// Returns ErrNotFound if not exists.
func (s *TokenStore) UpdateFinancials(ctx context.Context, address string, f domain.Financials) (err error) {
	defer observeQuery("update_financials", time.Now(), &err)

	query := `
		UPDATE tokens
		SET price_change_24h_pct = $2, volume_24h_usd = $3, decimals = $4, updated_at = $5
		WHERE address = $1
	`

	tag, err := s.pool.Exec(ctx, query, address, f.PriceChange24hPct, f.Volume24hUSD, f.Decimals, s.now())
	if err != nil {
		return fmt.Errorf("update financials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *TokenStore) query(ctx context.Context, query string, args ...any) ([]*domain.Token, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var result []*domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return result, nil
}

// scanToken scans a single row into Token.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token

	err := row.Scan(
		&t.Address,
		&t.Symbol,
		&t.Name,
		&t.LogoURL,
		&t.PriceChange24hPct,
		&t.Volume24hUSD,
		&t.Decimals,
		&t.Socials.Discord,
		&t.Socials.Twitter,
		&t.Socials.Telegram,
		&t.Socials.Website,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func observeQuery(operation string, start time.Time, err *error) {
	qerr := *err
	if errors.Is(qerr, storage.ErrNotFound) {
		qerr = nil
	}
	observability.RecordDBQuery("postgres", operation, time.Since(start).Seconds(), qerr)
}
