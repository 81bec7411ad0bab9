// Package repomanager provides a RepositoryManager for the SQL drivers the
// server supports (PostgreSQL via pgx and SQLite via modernc), wiring together
// repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/ergoauth/internal/dbx"
	"github.com/dmitrijs2005/ergoauth/internal/server/migrations"
	"github.com/dmitrijs2005/ergoauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/ergoauth/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

// SQLRepositoryManager vends SQL-backed repositories for one driver and
// exposes a schema migration hook.
type SQLRepositoryManager struct {
	driver  string
	dialect string
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.driver)
}

// RefreshTokens returns a refreshtokens.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewSQLRepository(db, m.driver)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewRepositoryManager constructs a RepositoryManager for driver
// ("pgx" or "sqlite").
func NewRepositoryManager(driver string) (RepositoryManager, error) {
	switch driver {
	case dbx.DriverPostgres:
		return &SQLRepositoryManager{driver: driver, dialect: "pgx"}, nil
	case dbx.DriverSQLite:
		return &SQLRepositoryManager{driver: driver, dialect: "sqlite3"}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
