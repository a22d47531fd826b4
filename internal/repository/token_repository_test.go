package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenCols = []string{"id", "user_id", "token_hash", "expires_at", "revoked_at", "created_at"}

func TestTokenConsume(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash = \?`).WithArgs("h1").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(3, 7, "h1", now.Add(time.Hour), nil, now))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP\(\)\s+WHERE id = \? AND revoked_at IS NULL`).
		WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 1))

	uid, err := repo.Consume(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), uid)
}

func TestTokenConsumeLosesRace(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs("h1").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(3, 7, "h1", now.Add(time.Hour), nil, now))
	mock.ExpectExec(`UPDATE refresh_tokens`).WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Consume(context.Background(), "h1")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestTokenLookupRejectsUnusable(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs("expired").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(1, 7, "expired", now.Add(-time.Minute), nil, now))
	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(2, 7, "revoked", now.Add(time.Hour), now, now))
	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(tokenCols))

	for _, h := range []string{"expired", "revoked", "missing"} {
		_, err := repo.Lookup(context.Background(), h)
		assert.ErrorIs(t, err, ErrRefreshInvalid, h)
	}
}
