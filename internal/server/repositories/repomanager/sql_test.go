package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/dmitrijs2005/ergoauth/internal/dbx"
	"github.com/dmitrijs2005/ergoauth/internal/server/models"
	"github.com/dmitrijs2005/ergoauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/ergoauth/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNewRepositoryManager(t *testing.T) {
	for _, d := range []string{dbx.DriverPostgres, dbx.DriverSQLite} {
		m, err := NewRepositoryManager(d)
		require.NoError(t, err, d)
		var _ RepositoryManager = m
	}

	_, err := NewRepositoryManager("mysql")
	assert.Error(t, err)
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := &SQLRepositoryManager{driver: dbx.DriverPostgres, dialect: "pgx"}

	if u := m.Users(db); u == nil {
		t.Fatal("Users() nil")
	}
	if rt := m.RefreshTokens(db); rt == nil {
		t.Fatal("RefreshTokens() nil")
	}

	var _ users.Repository = m.Users(db)
	var _ refreshtokens.Repository = m.RefreshTokens(db)
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := &SQLRepositoryManager{driver: dbx.DriverPostgres, dialect: "pgx"}
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := &SQLRepositoryManager{driver: dbx.DriverPostgres, dialect: "pgx"}
	if err := m.RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestRunMigrations_BadDialect(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := &SQLRepositoryManager{driver: "x", dialect: "nosuchdialect"}
	assert.Error(t, m.RunMigrations(context.Background(), db))
}

// Applies the real embedded migrations to an in-memory SQLite database and
// drives both repositories through it.
func TestSQLite_EndToEnd(t *testing.T) {
	db, err := dbx.Open(dbx.DriverSQLite, "file:repomanager_e2e?mode=memory")
	require.NoError(t, err)
	defer db.Close()

	m, err := NewRepositoryManager(dbx.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, m.RunMigrations(context.Background(), db))

	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	u := &models.User{ID: "u1", Email: "alice@example.com", Roles: []string{"user"}, CreatedAt: now, UpdatedAt: now,
		Password: &models.PasswordRecord{Algorithm: "PBKDF2-SHA256", Iterations: 1, Salt: "s", Hash: "h"}}
	require.NoError(t, m.Users(db).Create(ctx, u))

	dup := &models.User{ID: "u2", Email: "alice@example.com", Roles: []string{"user"}, CreatedAt: now, UpdatedAt: now}
	assert.ErrorIs(t, m.Users(db).Create(ctx, dup), common.ErrorAlreadyExists)

	got, err := m.Users(db).GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.True(t, got.HasPassword())

	require.NoError(t, m.Users(db).LinkGoogleSub(ctx, "u1", "sub-1", now.Add(time.Minute)))
	got, err = m.Users(db).GetByGoogleSub(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, now.Add(time.Minute).Unix(), got.UpdatedAt.Unix())

	rt := m.RefreshTokens(db)
	require.NoError(t, rt.Create(ctx, &models.RefreshToken{ID: "r1", UserID: "u1", JTI: "j1", ExpiresAt: now.Add(time.Hour), CreatedAt: now}))
	require.NoError(t, rt.Create(ctx, &models.RefreshToken{ID: "r2", UserID: "u1", JTI: "j2", ExpiresAt: now.Add(-time.Hour), CreatedAt: now}))

	_, err = rt.Find(ctx, "u1", "j1")
	require.NoError(t, err)

	n, err := rt.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = rt.Delete(ctx, "u1", "j1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = rt.Delete(ctx, "u1", "j1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = rt.Find(ctx, "u1", "j1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
