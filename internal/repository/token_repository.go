package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bookstore/bookstore-api/internal/model"
)

// ErrRefreshInvalid is returned for unknown, revoked or expired refresh tokens.
var ErrRefreshInvalid = errors.New("refresh token invalid")

// TokenRepo stores refresh token sessions keyed by token hash.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		userID, tokenHash, exp.UTC())
	return err
}

// Lookup loads the session for tokenHash.  It returns ErrRefreshInvalid
// when no such session exists or it is no longer usable.
func (r *TokenRepo) Lookup(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var (
		t       model.RefreshToken
		revoked sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		   FROM refresh_tokens WHERE token_hash = ?`, tokenHash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revoked, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrRefreshInvalid
	}
	if err != nil {
		return model.RefreshToken{}, err
	}
	if revoked.Valid {
		t.RevokedAt = &revoked.Time
	}
	if !t.Usable(time.Now().UTC()) {
		return model.RefreshToken{}, ErrRefreshInvalid
	}
	return t, nil
}

// Consume revokes a usable token and returns its owner.  The revoke is a
// single conditional UPDATE, so of two concurrent refreshes with the
// same token only one succeeds.
func (r *TokenRepo) Consume(ctx context.Context, tokenHash string) (uint64, error) {
	t, err := r.Lookup(ctx, tokenHash)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP()
		  WHERE id = ? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()`, t.ID)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, ErrRefreshInvalid
	}
	return t.UserID, nil
}

// RevokeAllForUser ends every open session of the user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE user_id = ? AND revoked_at IS NULL`,
		userID)
	return err
}
