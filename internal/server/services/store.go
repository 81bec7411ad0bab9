package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/dmitrijs2005/ergoauth/internal/logging"
	"github.com/dmitrijs2005/ergoauth/internal/server/cache"
	"github.com/dmitrijs2005/ergoauth/internal/server/models"
	"github.com/dmitrijs2005/ergoauth/internal/server/repositories/repomanager"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether a normalized address has the local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// UserStore reads accounts through the user cache. Cached entries never carry
// the password record.
type UserStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       cache.UserCache
	log         logging.Logger
}

// NewUserStore builds a store. A nil cache disables caching.
func NewUserStore(db *sql.DB, m repomanager.RepositoryManager, c cache.UserCache, log logging.Logger) *UserStore {
	if c == nil {
		c = cache.Noop{}
	}
	return &UserStore{db: db, repomanager: m, cache: c, log: log}
}

// FindByID returns the user without its password record, or
// common.ErrorNotFound.
func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.cache.Get(ctx, id); ok {
		return u, nil
	}

	u, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	u = u.WithoutPassword()
	if err := s.cache.Set(ctx, u); err != nil {
		s.log.Warn(ctx, "user cache set failed", "user_id", id, "error", err)
	}
	return u, nil
}

// Invalidate drops the cached copy of a user.
func (s *UserStore) Invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.Warn(ctx, "user cache delete failed", "user_id", id, "error", err)
	}
}
