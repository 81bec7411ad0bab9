package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/dmitrijs2005/ergoauth/internal/dbx"
	"github.com/dmitrijs2005/ergoauth/internal/server/models"
)

// SQLRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type SQLRepository struct {
	db     dbx.DBTX
	driver string
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX, driver string) *SQLRepository {
	return &SQLRepository{db: db, driver: driver}
}

func (r *SQLRepository) Create(ctx context.Context, t *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, jti, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, dbx.Rebind(r.driver, query),
		t.ID, t.UserID, t.JTI, t.ExpiresAt.Unix(), t.CreatedAt.Unix())
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Find(ctx context.Context, userID, jti string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, jti, expires_at, created_at
		FROM refresh_tokens
		WHERE user_id = ? AND jti = ?
	`
	var (
		t                models.RefreshToken
		expires, created int64
	)
	err := r.db.QueryRowContext(ctx, dbx.Rebind(r.driver, query), userID, jti).
		Scan(&t.ID, &t.UserID, &t.JTI, &expires, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.ExpiresAt = time.Unix(expires, 0).UTC()
	t.CreatedAt = time.Unix(created, 0).UTC()
	return &t, nil
}

func (r *SQLRepository) Delete(ctx context.Context, userID, jti string) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE user_id = ? AND jti = ?
	`
	return r.exec(ctx, query, userID, jti)
}

func (r *SQLRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < ?
	`
	return r.exec(ctx, query, now.Unix())
}

func (r *SQLRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, dbx.Rebind(r.driver, query), args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
