package inmemory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/notekeeper/internal/backend/events"
	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
)

type account struct {
	user models.AuthUser
	hash []byte
	salt []byte
}

// Auth keeps accounts and the single current session.
type Auth struct {
	hooks

	mu       sync.Mutex
	users    map[string]*account
	session  *models.Session
	hub      *events.Hub
	profiles *Profiles
	trigger  bool
	validity time.Duration
	now      func() time.Time
}

// SetHook installs fn before op: "signin", "signup", "signout", "session".
func (a *Auth) SetHook(op string, fn Hook) { a.hooks.set(op, fn) }

func (a *Auth) newSession(u models.AuthUser) (*models.Session, error) {
	token, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, err
	}
	user := u
	return &models.Session{AccessToken: token, ExpiresAt: a.now().Add(a.validity), User: &user}, nil
}

func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	if err := a.run(ctx, "signin", email); err != nil {
		return nil, err
	}

	a.mu.Lock()
	acc, ok := a.users[strings.ToLower(email)]
	a.mu.Unlock()
	if !ok || !cryptox.VerifyPassword([]byte(password), acc.salt, acc.hash) {
		return nil, client.ErrInvalidCredentials
	}

	s, err := a.newSession(acc.user)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()

	a.hub.Publish(models.AuthEvent{Type: models.EventSignedIn, Session: s})
	return s, nil
}

func (a *Auth) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.AuthUser, *models.Session, error) {
	if err := a.run(ctx, "signup", email); err != nil {
		return nil, nil, err
	}
	key := strings.ToLower(email)

	hash, salt := cryptox.HashPassword([]byte(password))
	user := models.AuthUser{ID: uuid.NewString(), Email: email, Metadata: metadata}

	a.mu.Lock()
	if _, exists := a.users[key]; exists {
		a.mu.Unlock()
		return nil, nil, client.ErrAlreadyRegistered
	}
	a.users[key] = &account{user: user, hash: hash, salt: salt}
	a.mu.Unlock()

	if a.trigger {
		name, _ := metadata["name"].(string)
		role, _ := metadata["role"].(string)
		if role == "" {
			role = string(models.RoleStudent)
		}
		_ = a.profiles.Insert(ctx, models.ProfileRecord{ID: user.ID, Name: name, Email: email, Role: role, Bookmarks: []string{}})
	}

	s, err := a.newSession(user)
	if err != nil {
		return nil, nil, err
	}
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()

	a.hub.Publish(models.AuthEvent{Type: models.EventSignedIn, Session: s})
	return &user, s, nil
}

func (a *Auth) SignOut(ctx context.Context) error {
	if err := a.run(ctx, "signout", ""); err != nil {
		return err
	}
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()

	a.hub.Publish(models.AuthEvent{Type: models.EventSignedOut})
	return nil
}

func (a *Auth) GetSession(ctx context.Context) (*models.Session, error) {
	if err := a.run(ctx, "session", ""); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil && !a.now().Before(a.session.ExpiresAt) {
		a.session = nil
	}
	return a.session, nil
}

// OnAuthStateChange subscribes cb and queues an INITIAL_SESSION event for it.
func (a *Auth) OnAuthStateChange(cb func(models.AuthEvent)) client.Subscription {
	a.mu.Lock()
	initial := models.AuthEvent{Type: models.EventInitialSession, Session: a.session}
	a.mu.Unlock()
	return a.hub.Subscribe(cb, &initial)
}

// Expire drops the current session as if it had timed out remotely.
func (a *Auth) Expire() {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()
	a.hub.Publish(models.AuthEvent{Type: models.EventSignedOut})
}
