package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/dmitrijs2005/ergoauth/internal/logging"
	"github.com/dmitrijs2005/ergoauth/internal/server/metrics"
	"github.com/dmitrijs2005/ergoauth/internal/server/models"
	"github.com/dmitrijs2005/ergoauth/internal/server/oauth"
	"github.com/dmitrijs2005/ergoauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ergoauth/internal/timex"
)

// FederationService signs users in through an external OAuth provider.
type FederationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       *UserStore
	sessions    *SessionService
	provider    oauth.Provider
	siteURL     string
	nonceCheck  bool
	now         timex.Clock
	log         logging.Logger
	metrics     *metrics.Metrics
}

// FederationOptions configures a FederationService.
type FederationOptions struct {
	SiteURL    string
	NonceCheck bool
	Clock      timex.Clock
	Metrics    *metrics.Metrics
}

// NewFederationService builds the service. A nil provider makes every call
// return common.ErrOAuthDisabled.
func NewFederationService(db *sql.DB, m repomanager.RepositoryManager, store *UserStore, sessions *SessionService,
	provider oauth.Provider, log logging.Logger, opts FederationOptions) *FederationService {
	if opts.Clock == nil {
		opts.Clock = timex.SystemClock
	}
	return &FederationService{
		db:          db,
		repomanager: m,
		store:       store,
		sessions:    sessions,
		provider:    provider,
		siteURL:     strings.TrimRight(opts.SiteURL, "/"),
		nonceCheck:  opts.NonceCheck,
		now:         opts.Clock,
		log:         log,
		metrics:     opts.Metrics,
	}
}

// Start returns the provider consent URL and the nonce the caller must bind
// to the browser. An empty redirect becomes "/".
func (s *FederationService) Start(redirect string) (authURL, nonce string, err error) {
	if s.provider == nil {
		return "", "", common.ErrOAuthDisabled
	}
	if redirect == "" {
		redirect = "/"
	}
	nonce, err = oauth.NewNonce()
	if err != nil {
		return "", "", fmt.Errorf("error generating nonce: %w", err)
	}
	state := oauth.State{Redirect: redirect, Nonce: nonce}
	return s.provider.AuthCodeURL(state.Encode()), nonce, nil
}

// Callback completes the code exchange, resolves or creates the local user
// and issues a session. The returned redirect is always on the site origin.
func (s *FederationService) Callback(ctx context.Context, code, rawState, nonceCookie string) (session *models.Session, redirect string, err error) {
	defer func() { s.metrics.OAuthCallback(err) }()

	if s.provider == nil {
		return nil, "", common.ErrOAuthDisabled
	}
	if code == "" {
		return nil, "", common.ErrMissingCode
	}

	state, ok := oauth.DecodeState(rawState)
	if s.nonceCheck {
		if !ok || state.Nonce == "" || subtle.ConstantTimeCompare([]byte(state.Nonce), []byte(nonceCookie)) != 1 {
			return nil, "", common.ErrInvalidState
		}
	}

	id, err := s.provider.Exchange(ctx, code)
	if err != nil {
		var perr *oauth.ProviderError
		if errors.As(err, &perr) {
			s.log.Warn(ctx, "oauth exchange rejected", "code", perr.Code)
			return nil, "", perr
		}
		return nil, "", fmt.Errorf("error exchanging code: %w", err)
	}

	email := NormalizeEmail(id.Email)
	if email == "" || id.Subject == "" {
		return nil, "", common.ErrInvalidProfile
	}

	user, err := s.resolve(ctx, id.Subject, email)
	if err != nil {
		return nil, "", err
	}

	session, err = s.sessions.Issue(ctx, s.db, user)
	if err != nil {
		return nil, "", err
	}

	s.log.Info(ctx, "oauth sign-in", "user_id", user.ID)
	return session, SafeRedirect(s.siteURL, state.Redirect), nil
}

// resolve finds the user by provider subject, then by email (linking the
// subject), and otherwise creates a password-less account.
func (s *FederationService) resolve(ctx context.Context, sub, email string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByGoogleSub(ctx, sub)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error loading user by subject: %w", err)
	}

	user, err = repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		now := s.now().UTC()
		if err := repo.LinkGoogleSub(ctx, user.ID, sub, now); err != nil {
			return nil, fmt.Errorf("error linking google account: %w", err)
		}
		s.store.Invalidate(ctx, user.ID)
		user.GoogleSub = sub
		user.UpdatedAt = now
		s.log.Info(ctx, "google account linked", "user_id", user.ID)
		return user, nil
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error loading user by email: %w", err)
	}

	id, err := common.MakeRandHexString(12)
	if err != nil {
		return nil, fmt.Errorf("error generating user id: %w", err)
	}
	now := s.now().UTC()
	user = &models.User{
		ID:        id,
		Email:     email,
		GoogleSub: sub,
		Roles:     []string{common.DefaultRole},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			// a concurrent callback created it first
			if existing, err := repo.GetByGoogleSub(ctx, sub); err == nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	s.log.Info(ctx, "user created from google", "user_id", user.ID)
	return user, nil
}

// SafeRedirect joins dest onto site when dest is a same-origin path, and
// falls back to the site root otherwise.
func SafeRedirect(site, dest string) string {
	site = strings.TrimRight(site, "/")
	if !strings.HasPrefix(dest, "/") || strings.HasPrefix(dest, "//") || strings.HasPrefix(dest, "/\\") {
		dest = "/"
	}
	if site == "" {
		return dest
	}
	return site + dest
}
