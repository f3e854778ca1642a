package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/backend/events"
	"github.com/dmitrijs2005/notekeeper/internal/backend/repositories/users"
	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/localstore"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// AuthService issues JWT sessions for accounts in the users table. The
// current token is kept in the local store so a restart resumes the
// session.
type AuthService struct {
	users    users.Repository
	store    localstore.Repository
	hub      *events.Hub
	secret   []byte
	validity time.Duration
	now      func() time.Time
	log      logging.Logger

	mu      sync.Mutex
	session *models.Session
}

var _ client.Auth = (*AuthService)(nil)

func NewAuthService(u users.Repository, store localstore.Repository, hub *events.Hub, secret []byte, validity time.Duration, log logging.Logger) *AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &AuthService{
		users:    u,
		store:    store,
		hub:      hub,
		secret:   secret,
		validity: validity,
		now:      time.Now,
		log:      log.With("component", "backend-auth"),
	}
}

func userFromRecord(u *users.User) models.AuthUser {
	return models.AuthUser{ID: u.ID, Email: u.Email, Metadata: u.Metadata}
}

func (a *AuthService) issue(ctx context.Context, u *users.User) (*models.Session, error) {
	token, expires, err := GenerateToken(u.ID, a.secret, a.now(), a.validity)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	user := userFromRecord(u)
	s := &models.Session{AccessToken: token, ExpiresAt: expires, User: &user}

	if err := a.store.Set(ctx, common.SessionKey, []byte(token)); err != nil {
		a.log.Warn(ctx, "session not persisted", "user_id", u.ID, "error", err)
	}

	a.mu.Lock()
	a.session = s
	a.mu.Unlock()
	return s, nil
}

// Restore loads a persisted session token. A missing, expired or unknown
// token leaves the service signed out and removes the token.
func (a *AuthService) Restore(ctx context.Context) error {
	raw, err := a.store.Get(ctx, common.SessionKey)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}

	claims, err := ParseToken(string(raw), a.secret, a.now())
	if err != nil {
		a.log.Info(ctx, "stored session discarded", "error", err)
		return a.store.Delete(ctx, common.SessionKey)
	}

	u, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return a.store.Delete(ctx, common.SessionKey)
		}
		return fmt.Errorf("load session user: %w", err)
	}

	user := userFromRecord(u)
	a.mu.Lock()
	a.session = &models.Session{AccessToken: string(raw), ExpiresAt: claims.ExpiresAt.Time, User: &user}
	a.mu.Unlock()
	return nil
}

func (a *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	u, err := a.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, client.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", client.ErrUnavailable, err)
	}
	if !cryptox.VerifyPassword([]byte(password), u.Salt, u.PasswordHash) {
		return nil, client.ErrInvalidCredentials
	}

	s, err := a.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	a.hub.Publish(models.AuthEvent{Type: models.EventSignedIn, Session: s})
	return s, nil
}

func (a *AuthService) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.AuthUser, *models.Session, error) {
	hash, salt := cryptox.HashPassword([]byte(password))
	u, err := a.users.Create(ctx, &users.User{
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Salt:         salt,
		Metadata:     metadata,
	})
	if err != nil {
		if errors.Is(err, users.ErrAlreadyExists) {
			return nil, nil, client.ErrAlreadyRegistered
		}
		return nil, nil, fmt.Errorf("%w: %v", client.ErrUnavailable, err)
	}

	s, err := a.issue(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	a.hub.Publish(models.AuthEvent{Type: models.EventSignedIn, Session: s})

	user := userFromRecord(u)
	return &user, s, nil
}

func (a *AuthService) SignOut(ctx context.Context) error {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()

	if err := a.store.Delete(ctx, common.SessionKey); err != nil {
		return fmt.Errorf("forget session: %w", err)
	}
	a.hub.Publish(models.AuthEvent{Type: models.EventSignedOut})
	return nil
}

// GetSession returns the current session. An expired one is dropped and
// announced with SIGNED_OUT.
func (a *AuthService) GetSession(ctx context.Context) (*models.Session, error) {
	a.mu.Lock()
	s := a.session
	expired := s != nil && !a.now().Before(s.ExpiresAt)
	if expired {
		a.session = nil
	}
	a.mu.Unlock()

	if !expired {
		return s, nil
	}

	if err := a.store.Delete(ctx, common.SessionKey); err != nil {
		a.log.Warn(ctx, "expired session not removed", "error", err)
	}
	a.hub.Publish(models.AuthEvent{Type: models.EventSignedOut})
	return nil, nil
}

func (a *AuthService) OnAuthStateChange(cb func(models.AuthEvent)) client.Subscription {
	a.mu.Lock()
	initial := models.AuthEvent{Type: models.EventInitialSession, Session: a.session}
	a.mu.Unlock()
	return a.hub.Subscribe(cb, &initial)
}
