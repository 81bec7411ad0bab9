// Package services contains server-side business logic: password accounts,
// sessions and Google sign-in.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/dmitrijs2005/ergoauth/internal/dbx"
	"github.com/dmitrijs2005/ergoauth/internal/logging"
	"github.com/dmitrijs2005/ergoauth/internal/server/auth"
	"github.com/dmitrijs2005/ergoauth/internal/server/metrics"
	"github.com/dmitrijs2005/ergoauth/internal/server/models"
	"github.com/dmitrijs2005/ergoauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ergoauth/internal/timex"
)

// MinPasswordLength is the minimum number of characters in a password.
const MinPasswordLength = 8

// UserService provides account operations:
//   - Register: create a password account and start a session
//   - Login: verify credentials and start a session
//   - Me: resolve the caller from an access token
//   - Logout: revoke the presented refresh token
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       *UserStore
	sessions    *SessionService
	hasher      *auth.PasswordHasher
	now         timex.Clock
	log         logging.Logger
	metrics     *metrics.Metrics

	// dummy is verified against when the email is unknown so both login
	// failures cost one key derivation.
	dummy *models.PasswordRecord
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, store *UserStore, sessions *SessionService,
	hasher *auth.PasswordHasher, log logging.Logger, mt *metrics.Metrics, now timex.Clock) *UserService {
	if now == nil {
		now = timex.SystemClock
	}
	dummy, _ := hasher.Hash("placeholder-password")
	return &UserService{
		db:          db,
		repomanager: m,
		store:       store,
		sessions:    sessions,
		hasher:      hasher,
		now:         now,
		log:         log,
		metrics:     mt,
		dummy:       dummy,
	}
}

// Register creates a password account for email and issues its first session.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, *models.Session, error) {
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return nil, nil, common.ErrInvalidEmail
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, nil, common.ErrWeakPassword
	}

	_, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, nil, common.ErrEmailTaken
	case !errors.Is(err, common.ErrorNotFound):
		return nil, nil, fmt.Errorf("error checking email: %w", err)
	}

	rec, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, fmt.Errorf("error hashing password: %w", err)
	}

	id, err := common.MakeRandHexString(12)
	if err != nil {
		return nil, nil, fmt.Errorf("error generating user id: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:        id,
		Email:     email,
		Password:  rec,
		Roles:     []string{common.DefaultRole},
		CreatedAt: now,
		UpdatedAt: now,
	}

	var session *models.Session
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.ErrEmailTaken
			}
			return fmt.Errorf("error creating user: %w", err)
		}
		session, err = s.sessions.Issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.metrics.Registered()
	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user.WithoutPassword(), session, nil
}

// Login checks email and password and issues a session. Unknown emails and
// wrong passwords both yield common.ErrInvalidCreds.
func (s *UserService) Login(ctx context.Context, email, password string) (user *models.User, session *models.Session, err error) {
	defer func() { s.metrics.Login(err) }()

	email = NormalizeEmail(email)

	user, err = s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.Verify(password, s.dummy)
			return nil, nil, common.ErrInvalidCreds
		}
		return nil, nil, fmt.Errorf("error loading user: %w", err)
	}

	if !auth.Verify(password, user.Password) {
		s.log.Info(ctx, "login rejected", "user_id", user.ID)
		return nil, nil, common.ErrInvalidCreds
	}

	session, err = s.sessions.Issue(ctx, s.db, user)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return user.WithoutPassword(), session, nil
}

// Me resolves the user behind an access token. It returns (nil, nil) when the
// token is missing, invalid, expired, or names a user that no longer exists.
func (s *UserService) Me(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.sessions.Authenticate(accessToken)
	if err != nil {
		return nil, nil
	}
	user, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetUser returns a user by id without its password record.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Logout revokes the refresh token if it verifies. Failures are logged and
// swallowed; the caller clears cookies regardless.
func (s *UserService) Logout(ctx context.Context, refreshToken string) {
	if err := s.sessions.Revoke(ctx, refreshToken); err != nil {
		s.log.Warn(ctx, "logout revoke failed", "error", err)
	}
}
