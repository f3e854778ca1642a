// Package backend is the self-hosted implementation of the remote backend:
// accounts and profiles in Postgres, note files in S3 and JWT sessions.
// Auth events are delivered through an events.Hub.
package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/notekeeper/internal/backend/events"
	"github.com/dmitrijs2005/notekeeper/internal/backend/migrations"
	"github.com/dmitrijs2005/notekeeper/internal/backend/repositories/profiles"
	"github.com/dmitrijs2005/notekeeper/internal/backend/repositories/users"
	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/localstore"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

type Config struct {
	DatabaseDSN     string
	SessionSecret   string
	SessionValidity time.Duration
	S3              S3Config
}

type Backend struct {
	db       *sql.DB
	hub      *events.Hub
	auth     *AuthService
	profiles *ProfileTable
	storage  *ObjectStore
}

var _ client.Backend = (*Backend)(nil)

// RunMigrations applies the embedded Postgres schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Open connects to Postgres, migrates it, prepares the S3 client and
// restores a session persisted in store.
func Open(ctx context.Context, cfg Config, store localstore.Repository, log logging.Logger) (*Backend, error) {
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret is required")
	}
	if cfg.SessionValidity <= 0 {
		cfg.SessionValidity = 24 * time.Hour
	}
	if log == nil {
		log = logging.Nop()
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	storage, err := NewObjectStore(ctx, cfg.S3, http.DefaultClient)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	hub := events.NewHub()
	auth := NewAuthService(users.NewPostgresRepository(db), store, hub, []byte(cfg.SessionSecret), cfg.SessionValidity, log)
	if err := auth.Restore(ctx); err != nil {
		log.Warn(ctx, "session not restored", "error", err)
	}

	return &Backend{
		db:       db,
		hub:      hub,
		auth:     auth,
		profiles: NewProfileTable(profiles.NewPostgresRepository(db)),
		storage:  storage,
	}, nil
}

func (b *Backend) Auth() client.Auth         { return b.auth }
func (b *Backend) Profiles() client.Profiles { return b.profiles }
func (b *Backend) Storage() client.Storage   { return b.storage }

func (b *Backend) Close() error {
	b.hub.Close()
	return b.db.Close()
}

// ProfileTable adapts the profiles repository to the client contract.
type ProfileTable struct {
	repo profiles.Repository
}

var _ client.Profiles = (*ProfileTable)(nil)

func NewProfileTable(repo profiles.Repository) *ProfileTable {
	return &ProfileTable{repo: repo}
}

func notFound(err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return client.ErrNotFound
	}
	return err
}

func (p *ProfileTable) Select(ctx context.Context, id string) (*models.ProfileRecord, error) {
	rec, err := p.repo.Select(ctx, id)
	return rec, notFound(err)
}

func (p *ProfileTable) Update(ctx context.Context, id string, fields map[string]any) error {
	return notFound(p.repo.Update(ctx, id, fields))
}

func (p *ProfileTable) Insert(ctx context.Context, rec models.ProfileRecord) error {
	return p.repo.Insert(ctx, rec)
}
