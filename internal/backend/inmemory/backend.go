// Package inmemory is an in-process backend: accounts, sessions, profiles
// and object storage held in maps. It is used by tests and by the "memory"
// backend mode of the terminal client. Hooks let tests delay or fail
// individual calls.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/backend/events"
	"github.com/dmitrijs2005/notekeeper/internal/client/client"
)

// Options configures a Backend.
type Options struct {
	Bucket        string
	PublicBaseURL string
	// ProfileTrigger creates the profile row on sign-up, like the database
	// trigger of the Postgres backend.
	ProfileTrigger  bool
	SessionValidity time.Duration
	Clock           func() time.Time
}

// Hook runs before an operation; a non-nil error aborts it.
type Hook func(ctx context.Context, arg string) error

type Backend struct {
	auth     *Auth
	profiles *Profiles
	storage  *Storage
	hub      *events.Hub
}

var _ client.Backend = (*Backend)(nil)

func New(opts Options) *Backend {
	if opts.Bucket == "" {
		opts.Bucket = "notes"
	}
	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = "http://localhost/storage"
	}
	if opts.SessionValidity <= 0 {
		opts.SessionValidity = time.Hour
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	hub := events.NewHub()
	profiles := &Profiles{rows: map[string]recordCopy{}}
	b := &Backend{
		hub:      hub,
		profiles: profiles,
		storage:  &Storage{bucket: opts.Bucket, base: opts.PublicBaseURL, objects: map[string]object{}, now: opts.Clock},
		auth: &Auth{
			hub:      hub,
			profiles: profiles,
			trigger:  opts.ProfileTrigger,
			validity: opts.SessionValidity,
			now:      opts.Clock,
			users:    map[string]*account{},
		},
	}
	return b
}

func (b *Backend) Auth() client.Auth         { return b.auth }
func (b *Backend) Profiles() client.Profiles { return b.profiles }
func (b *Backend) Storage() client.Storage   { return b.storage }

// AuthService exposes the concrete auth type for test hooks.
func (b *Backend) AuthService() *Auth { return b.auth }

// ProfileTable exposes the concrete profile table for test hooks.
func (b *Backend) ProfileTable() *Profiles { return b.profiles }

// ObjectStore exposes the concrete storage for seeding.
func (b *Backend) ObjectStore() *Storage { return b.storage }

func (b *Backend) Close() error {
	b.hub.Close()
	return nil
}

type hooks struct {
	mu sync.Mutex
	m  map[string]Hook
}

func (h *hooks) set(op string, fn Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m == nil {
		h.m = map[string]Hook{}
	}
	h.m[op] = fn
}

func (h *hooks) run(ctx context.Context, op, arg string) error {
	h.mu.Lock()
	fn := h.m[op]
	h.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, arg)
}
