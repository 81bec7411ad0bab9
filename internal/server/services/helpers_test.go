package services

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/dbx"
	"github.com/dmitrijs2005/ergoauth/internal/logging"
	"github.com/dmitrijs2005/ergoauth/internal/server/auth"
	"github.com/dmitrijs2005/ergoauth/internal/server/cache"
	"github.com/dmitrijs2005/ergoauth/internal/server/oauth"
	"github.com/dmitrijs2005/ergoauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("services-test-secret-0123456789abcdef")

// fakeClock is a settable clock shared by the services and the token codec.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	db         *sql.DB
	rm         repomanager.RepositoryManager
	clock      *fakeClock
	cache      *cache.Memory
	store      *UserStore
	sessions   *SessionService
	users      *UserService
	federation *FederationService
}

func newTestLogger(t *testing.T) logging.Logger {
	t.Helper()
	l, err := logging.New("slog", "error", io.Discard)
	require.NoError(t, err)
	return l
}

// newTestEnv wires the services over a fresh in-memory SQLite database.
func newTestEnv(t *testing.T, provider oauth.Provider) *testEnv {
	t.Helper()

	db, err := dbx.Open(dbx.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm, err := repomanager.NewRepositoryManager(dbx.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, rm.RunMigrations(context.Background(), db))

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0).UTC()}
	log := newTestLogger(t)

	mem := cache.NewMemory(time.Hour)
	t.Cleanup(mem.Stop)

	codec := auth.NewTokenCodec(testSecret, clock.Now)
	store := NewUserStore(db, rm, mem, log)
	sessions := NewSessionService(db, rm, codec, store, log, SessionOptions{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		Clock:      clock.Now,
	})
	users := NewUserService(db, rm, store, sessions, auth.NewPasswordHasher(1000), log, nil, clock.Now)
	fed := NewFederationService(db, rm, store, sessions, provider, log, FederationOptions{
		SiteURL:    "https://site.example",
		NonceCheck: true,
		Clock:      clock.Now,
	})

	return &testEnv{
		db:         db,
		rm:         rm,
		clock:      clock,
		cache:      mem,
		store:      store,
		sessions:   sessions,
		users:      users,
		federation: fed,
	}
}
