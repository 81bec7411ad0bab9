package dbx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := `SELECT id FROM users WHERE email = ? AND id <> ?`

	assert.Equal(t, `SELECT id FROM users WHERE email = $1 AND id <> $2`, Rebind(DriverPostgres, q))
	assert.Equal(t, q, Rebind(DriverSQLite, q))
	assert.Equal(t, q, Rebind("unknown", q))
}

type codeErr int

func (c codeErr) Error() string { return fmt.Sprintf("sqlite code %d", int(c)) }
func (c codeErr) Code() int     { return int(c) }

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg unique", &pgconn.PgError{Code: "23505"}, true},
		{"pg wrapped", fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23505"}), true},
		{"pg other", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite unique", codeErr(2067), true},
		{"sqlite pk", codeErr(1555), true},
		{"sqlite busy", codeErr(5), false},
		{"message only", errors.New("UNIQUE constraint failed: users.email"), true},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestOpen(t *testing.T) {
	_, err := Open("mysql", "x")
	require.Error(t, err)

	db, err := Open(DriverSQLite, "file:open_test?mode=memory")
	require.NoError(t, err)
	defer db.Close()

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpen_RealSQLiteUniqueError(t *testing.T) {
	db, err := Open(DriverSQLite, "file:open_unique?mode=memory")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE u (email TEXT UNIQUE)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO u(email) VALUES ('a@b.co')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO u(email) VALUES ('a@b.co')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}
