package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/dmitrijs2005/ergoauth/internal/dbx"
	"github.com/dmitrijs2005/ergoauth/internal/logging"
	"github.com/dmitrijs2005/ergoauth/internal/server/auth"
	"github.com/dmitrijs2005/ergoauth/internal/server/metrics"
	"github.com/dmitrijs2005/ergoauth/internal/server/models"
	"github.com/dmitrijs2005/ergoauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ergoauth/internal/timex"
	"github.com/google/uuid"
)

// SessionService mints access/refresh pairs and rotates refresh tokens.
//
// Every issued refresh token has a server-side record keyed by (user, jti).
// Rotation deletes that record and issues the replacement in one transaction,
// so a refresh token can be redeemed at most once.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *auth.TokenCodec
	users       *UserStore
	accessTTL   time.Duration
	refreshTTL  time.Duration
	now         timex.Clock
	log         logging.Logger
	metrics     *metrics.Metrics
}

// SessionOptions carries the token lifetimes and clock of a SessionService.
type SessionOptions struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Clock      timex.Clock
	Metrics    *metrics.Metrics
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, codec *auth.TokenCodec, users *UserStore, log logging.Logger, opts SessionOptions) *SessionService {
	if opts.Clock == nil {
		opts.Clock = timex.SystemClock
	}
	return &SessionService{
		db:          db,
		repomanager: m,
		codec:       codec,
		users:       users,
		accessTTL:   opts.AccessTTL,
		refreshTTL:  opts.RefreshTTL,
		now:         opts.Clock,
		log:         log,
		metrics:     opts.Metrics,
	}
}

// Issue signs a new pair for user and records the refresh jti using tx.
func (s *SessionService) Issue(ctx context.Context, tx dbx.DBTX, user *models.User) (*models.Session, error) {
	access, accessExp, err := s.codec.SignAccess(user.ID, user.Email, user.Roles, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("error signing access token: %w", err)
	}

	jti, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("error generating jti: %w", err)
	}

	refresh, refreshExp, err := s.codec.SignRefresh(user.ID, jti, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("error signing refresh token: %w", err)
	}

	rec := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: refreshExp,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("error saving refresh token: %w", err)
	}

	return &models.Session{
		AccessToken:   access,
		RefreshToken:  refresh,
		AccessExpiry:  accessExp,
		RefreshExpiry: refreshExp,
	}, nil
}

// Refresh redeems a refresh token for a new pair. The presented token is
// revoked in the same transaction that records its replacement.
func (s *SessionService) Refresh(ctx context.Context, token string) (session *models.Session, err error) {
	defer func() { s.metrics.Refresh(err) }()

	if token == "" {
		return nil, common.ErrNoRefresh
	}

	claims, err := s.codec.VerifyRefresh(token)
	if err != nil {
		return nil, common.ErrInvalidRefresh
	}
	userID, jti := claims.Subject, claims.ID

	if _, err := s.repomanager.RefreshTokens(s.db).Find(ctx, userID, jti); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "refresh token not recognised", "user_id", userID)
			return nil, common.ErrRevokedRefresh
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repomanager.RefreshTokens(tx).Delete(ctx, userID, jti)
		if err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		if n != 1 {
			return common.ErrRevokedRefresh
		}
		session, err = s.Issue(ctx, tx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrRevokedRefresh) {
			s.log.Warn(ctx, "refresh token already redeemed", "user_id", userID)
		}
		return nil, err
	}

	s.log.Info(ctx, "session refreshed", "user_id", userID)
	return session, nil
}

// Revoke deletes the record behind a refresh token. Tokens that fail
// verification are ignored.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.codec.VerifyRefresh(token)
	if err != nil {
		return nil
	}
	if _, err := s.repomanager.RefreshTokens(s.db).Delete(ctx, claims.Subject, claims.ID); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// Authenticate verifies an access token and returns its claims.
func (s *SessionService) Authenticate(token string) (*auth.AccessClaims, error) {
	if token == "" {
		return nil, common.ErrorUnauthorized
	}
	return s.codec.VerifyAccess(token)
}

// PurgeExpired removes refresh records past their expiry.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("error purging refresh tokens: %w", err)
	}
	return n, nil
}
