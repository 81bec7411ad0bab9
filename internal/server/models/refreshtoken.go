package models

import "time"

// RefreshToken is the server-side record that keeps a refresh token id (jti)
// usable. A jti without a record is revoked regardless of its signature.
type RefreshToken struct {
	ID        string
	UserID    string
	JTI       string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Session is a freshly minted access/refresh pair.
type Session struct {
	AccessToken   string
	RefreshToken  string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}
