// Package cache keeps recently loaded users in a key-value store. Cached
// users never carry the password record, so a cache hit is only good for
// identity lookups and never for credential checks.
package cache

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/server/models"
)

// UserCache is a best-effort user cache keyed by user id.
type UserCache interface {
	Get(ctx context.Context, id string) (*models.User, bool)
	Set(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// Noop caches nothing.
type Noop struct{}

func (Noop) Get(context.Context, string) (*models.User, bool) { return nil, false }
func (Noop) Set(context.Context, *models.User) error          { return nil }
func (Noop) Delete(context.Context, string) error             { return nil }

// entry is the stored form of a user.
type entry struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	GoogleSub string   `json:"google_sub,omitempty"`
	Roles     []string `json:"roles"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
}

func toEntry(u *models.User) entry {
	return entry{
		ID:        u.ID,
		Email:     u.Email,
		GoogleSub: u.GoogleSub,
		Roles:     append([]string(nil), u.Roles...),
		CreatedAt: u.CreatedAt.Unix(),
		UpdatedAt: u.UpdatedAt.Unix(),
	}
}

func (e entry) user() *models.User {
	return &models.User{
		ID:        e.ID,
		Email:     e.Email,
		GoogleSub: e.GoogleSub,
		Roles:     append([]string(nil), e.Roles...),
		CreatedAt: time.Unix(e.CreatedAt, 0).UTC(),
		UpdatedAt: time.Unix(e.UpdatedAt, 0).UTC(),
	}
}
