package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRevoke(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO token_blocklist (jti, created_at) VALUES ($1, $2) ON CONFLICT (jti) DO NOTHING")).
		WithArgs("jti-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Revoke(context.Background(), "jti-1", time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRevokeIdempotent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	// The conflict clause swallows the duplicate; zero rows affected is fine.
	mock.ExpectExec("INSERT INTO token_blocklist").
		WithArgs("jti-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Revoke(context.Background(), "jti-1", time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenIsRevoked(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM token_blocklist WHERE jti = $1 LIMIT 1")).
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	revoked, err := repo.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenIsNotRevoked(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectQuery("SELECT 1 FROM token_blocklist").
		WithArgs("jti-2").
		WillReturnError(sql.ErrNoRows)

	revoked, err := repo.IsRevoked(context.Background(), "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
