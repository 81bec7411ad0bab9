// Package users declares the account store contract and its SQL implementation.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/server/models"
)

// Repository persists accounts. Lookups return common.ErrorNotFound when no
// row matches; Create returns common.ErrorAlreadyExists on a duplicate email
// or Google subject.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*models.User, error)

	// LinkGoogleSub sets the Google subject of an existing user.
	LinkGoogleSub(ctx context.Context, id, sub string, at time.Time) error
}
