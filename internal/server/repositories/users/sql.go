package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/dmitrijs2005/ergoauth/internal/dbx"
	"github.com/dmitrijs2005/ergoauth/internal/server/models"
)

const userColumns = `id, email, password_alg, password_iter, password_salt, password_hash, google_sub, roles, created_at, updated_at`

// SQLRepository implements Repository over dbx.DBTX (satisfied by *sql.DB or
// *sql.Tx). Queries are written with '?' and rebound for the driver.
type SQLRepository struct {
	db     dbx.DBTX
	driver string
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX, driver string) *SQLRepository {
	return &SQLRepository{db: db, driver: driver}
}

func (r *SQLRepository) q(query string) string {
	return dbx.Rebind(r.driver, query)
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) error {
	roles, err := json.Marshal(user.Roles)
	if err != nil {
		return fmt.Errorf("encode roles: %w", err)
	}

	var alg, salt, hash sql.NullString
	var iter sql.NullInt64
	if user.Password != nil {
		alg = sql.NullString{String: user.Password.Algorithm, Valid: true}
		iter = sql.NullInt64{Int64: int64(user.Password.Iterations), Valid: true}
		salt = sql.NullString{String: user.Password.Salt, Valid: true}
		hash = sql.NullString{String: user.Password.Hash, Valid: true}
	}

	query := `INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, r.q(query),
		user.ID, user.Email, alg, iter, salt, hash,
		nullable(user.GoogleSub), string(roles),
		user.CreatedAt.Unix(), user.UpdatedAt.Unix())
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *SQLRepository) GetByGoogleSub(ctx context.Context, sub string) (*models.User, error) {
	return r.getBy(ctx, "google_sub", sub)
}

// getBy is only called with the fixed column names above.
func (r *SQLRepository) getBy(ctx context.Context, column, value string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`

	var (
		u                   models.User
		alg, salt, hash, gs sql.NullString
		iter                sql.NullInt64
		roles               string
		created, updated    int64
	)
	err := r.db.QueryRowContext(ctx, r.q(query), value).
		Scan(&u.ID, &u.Email, &alg, &iter, &salt, &hash, &gs, &roles, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if alg.Valid && alg.String != "" {
		u.Password = &models.PasswordRecord{
			Algorithm:  alg.String,
			Iterations: int(iter.Int64),
			Salt:       salt.String,
			Hash:       hash.String,
		}
	}
	u.GoogleSub = gs.String
	u.Roles = decodeRoles(roles)
	u.CreatedAt = time.Unix(created, 0).UTC()
	u.UpdatedAt = time.Unix(updated, 0).UTC()
	return &u, nil
}

func (r *SQLRepository) LinkGoogleSub(ctx context.Context, id, sub string, at time.Time) error {
	query := `UPDATE users SET google_sub = ?, updated_at = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, r.q(query), sub, at.Unix(), id)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// decodeRoles tolerates malformed stored roles by returning none.
func decodeRoles(s string) []string {
	var roles []string
	if err := json.Unmarshal([]byte(s), &roles); err != nil || roles == nil {
		return []string{}
	}
	return roles
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
