// Package server initializes and runs the auth server.
// It opens the database, applies migrations, builds the user cache and the
// services, and runs the HTTP API, the gRPC session service and the refresh
// token janitor until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/dbx"
	"github.com/dmitrijs2005/ergoauth/internal/logging"
	"github.com/dmitrijs2005/ergoauth/internal/server/auth"
	"github.com/dmitrijs2005/ergoauth/internal/server/cache"
	"github.com/dmitrijs2005/ergoauth/internal/server/config"
	"github.com/dmitrijs2005/ergoauth/internal/server/cookies"
	"github.com/dmitrijs2005/ergoauth/internal/server/metrics"
	"github.com/dmitrijs2005/ergoauth/internal/server/oauth"
	"github.com/dmitrijs2005/ergoauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ergoauth/internal/server/rest"
	"github.com/dmitrijs2005/ergoauth/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/ergoauth/internal/server/grpc"
)

// janitorInterval is how often expired refresh records are purged.
const janitorInterval = time.Hour

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	metrics *metrics.Metrics
	closers []func() error

	userService       *services.UserService
	sessionService    *services.SessionService
	federationService *services.FederationService
	binder            *cookies.Binder
}

// NewApp validates c, connects to the database and the cache and wires the
// services. The returned App owns those connections until Run returns.
func NewApp(c *config.Config) (*App, error) {
	return newApp(context.Background(), c, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, logOut io.Writer) (_ *App, err error) {
	logger, err := logging.New(c.LogBackend, c.LogLevel, logOut)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	secret, err := c.SecretBytes()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	app := &App{config: c, logger: logger, metrics: metrics.New()}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	db, err := dbx.Open(c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db.Close)

	rm, err := repomanager.NewRepositoryManager(c.DatabaseDriver)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	userCache, err := app.newUserCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache init error: %w", err)
	}

	codec := auth.NewTokenCodec(secret, nil)
	store := services.NewUserStore(db, rm, userCache, logger)
	app.sessionService = services.NewSessionService(db, rm, codec, store, logger, services.SessionOptions{
		AccessTTL:  c.AccessTokenValidityDuration,
		RefreshTTL: c.RefreshTokenValidityDuration,
		Metrics:    app.metrics,
	})
	app.userService = services.NewUserService(db, rm, store, app.sessionService,
		auth.NewPasswordHasher(c.PasswordIterations), logger, app.metrics, nil)

	var provider oauth.Provider
	if c.OAuthEnabled() {
		provider = oauth.NewGoogleProvider(oauth.Config{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
			RedirectURL:  c.GoogleRedirectURL,
			AuthURL:      c.GoogleAuthURL,
			TokenURL:     c.GoogleTokenURL,
		})
	} else {
		logger.Warn(ctx, "Google sign-in is not configured")
	}
	app.federationService = services.NewFederationService(db, rm, store, app.sessionService, provider, logger,
		services.FederationOptions{
			SiteURL:    c.SiteURL,
			NonceCheck: c.OAuthNonceCheck,
			Metrics:    app.metrics,
		})

	app.binder = &cookies.Binder{
		Domain:     c.CookieDomain,
		Secure:     c.CookieSecure,
		SameSite:   c.CookieSameSite,
		AccessTTL:  c.AccessTokenValidityDuration,
		RefreshTTL: c.RefreshTokenValidityDuration,
	}

	return app, nil
}

func (app *App) newUserCache(ctx context.Context) (cache.UserCache, error) {
	c := app.config
	switch c.CacheBackend {
	case "memory":
		m := cache.NewMemory(c.CacheTTL)
		app.closers = append(app.closers, func() error { m.Stop(); return nil })
		return m, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		app.closers = append(app.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		return cache.NewRedis(client, "ergoauth", c.CacheTTL), nil
	default:
		return cache.Noop{}, nil
	}
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		_ = app.closers[i]()
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) router() *rest.HTTPServer {
	h := rest.NewHandler(app.userService, app.sessionService, app.federationService, app.binder, app.logger)
	r := rest.NewRouter(h, app.metrics, app.config.Origins(), app.logger)
	return rest.NewHTTPServer(app.config.EndpointAddrHTTP, r, app.logger)
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.router().Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.sessionService)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runJanitor purges expired refresh records every interval until ctx is done.
func (app *App) runJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.sessionService.PurgeExpired(ctx)
			if err != nil {
				app.logger.Warn(ctx, "refresh token purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "purged expired refresh tokens", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.runJanitor(ctx, janitorInterval)
	}()

	wg.Wait()

	app.close()
	app.logger.Info(context.Background(), "App stopped")
}
