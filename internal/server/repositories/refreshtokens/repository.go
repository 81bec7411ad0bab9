// Package refreshtokens declares the server-side repository contract for
// refresh token records and its SQL implementation.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/server/models"
)

// Repository defines operations for recording, checking and revoking refresh
// token ids.
type Repository interface {
	// Create stores a new record.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find looks up the record for (userID, jti) and returns
	// common.ErrorNotFound when it is absent.
	Find(ctx context.Context, userID, jti string) (*models.RefreshToken, error)

	// Delete removes the record for (userID, jti) and reports how many rows
	// were affected. Deleting a missing record is not an error.
	Delete(ctx context.Context, userID, jti string) (int64, error)

	// DeleteExpired purges records whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
