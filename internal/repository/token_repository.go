package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// TokenRepository is the durable revocation ledger. The blocklist is
// append-only; there is no delete path.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository constructs the repository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Revoke records a token identifier in the blocklist. Inserting an already
// revoked jti is a no-op, making revocation idempotent.
func (r *TokenRepository) Revoke(ctx context.Context, jti string, now time.Time) error {
	const query = `INSERT INTO token_blocklist (jti, created_at) VALUES ($1, $2) ON CONFLICT (jti) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, jti, now); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token identifier is present in the blocklist.
func (r *TokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	const query = `SELECT 1 FROM token_blocklist WHERE jti = $1 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, jti); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check token revoked: %w", err)
	}
	return true, nil
}
