package client

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

// Subscription is returned by Auth.OnAuthStateChange.
type Subscription interface {
	Unsubscribe()
}

// Auth is the session side of the backend.
type Auth interface {
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.AuthUser, *models.Session, error)
	SignOut(ctx context.Context) error
	GetSession(ctx context.Context) (*models.Session, error)
	OnAuthStateChange(cb func(models.AuthEvent)) Subscription
}

// Profiles is the profile table keyed by user id. Select returns ErrNotFound
// when there is no row. Update takes snake_case column names.
type Profiles interface {
	Select(ctx context.Context, id string) (*models.ProfileRecord, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Insert(ctx context.Context, rec models.ProfileRecord) error
}

// Storage is the object store. Paths are relative to the notes bucket and
// follow course/semester/subject/<unixMillis>-<filename>.
type Storage interface {
	List(ctx context.Context, prefix string) ([]models.StorageObject, error)
	Download(ctx context.Context, path string) ([]byte, error)
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(path string) string
	Remove(ctx context.Context, paths []string) error
}

// Backend bundles the three services.
type Backend interface {
	Auth() Auth
	Profiles() Profiles
	Storage() Storage
	Close() error
}
