package model

import "time"

// User is a row of the users table.  Handlers never serialise it
// directly, so PasswordHash cannot leak into a response.
type User struct {
    ID           uint64
    Email        string
    PasswordHash string
    FullName     string
    Role         string // CUSTOMER or ADMIN
    IsActive     bool
    CreatedAt    time.Time
    UpdatedAt    time.Time
}

// RefreshToken is a stored session.  Only the SHA-256 of the raw token
// is kept; a token is usable while RevokedAt is nil and ExpiresAt lies
// in the future.
type RefreshToken struct {
    ID        uint64
    UserID    uint64
    TokenHash string
    ExpiresAt time.Time
    RevokedAt *time.Time
    CreatedAt time.Time
}

// Usable reports whether the token can still be exchanged at now.
func (t RefreshToken) Usable(now time.Time) bool {
    return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
