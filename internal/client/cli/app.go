package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/backend"
	"github.com/dmitrijs2005/notekeeper/internal/backend/inmemory"
	"github.com/dmitrijs2005/notekeeper/internal/client/auth"
	"github.com/dmitrijs2005/notekeeper/internal/client/catalog"
	"github.com/dmitrijs2005/notekeeper/internal/client/chat"
	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/config"
	"github.com/dmitrijs2005/notekeeper/internal/client/contact"
	"github.com/dmitrijs2005/notekeeper/internal/client/downloads"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/objecturl"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/localstore"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// settleTimeout bounds how long a command waits for the auth store to
// process the event caused by login, register or logout.
const settleTimeout = 10 * time.Second

type App struct {
	config *config.Config
	log    logging.Logger

	db        *sql.DB
	store     localstore.Repository
	backend   client.Backend
	auth      *auth.Store
	downloads *downloads.Manager
	urls      *objecturl.Registry
	preview   *objecturl.Server
	catalog   *catalog.Service
	assistant *chat.Assistant
	contact   *contact.Service
	env       downloads.Environment

	reader *bufio.Reader
	out    io.Writer

	// listed is the most recent note listing; commands address notes by
	// their position in it.
	listed []models.Note
}

// NewApp opens the local store and the configured backend and wires every
// client component. Close releases them.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = logging.Nop()
	}

	a := &App{
		config: cfg,
		log:    log,
		env:    downloads.CurrentEnvironment(),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	db, err := client.InitDatabase(ctx, cfg.LocalDBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	a.db = db
	a.store = localstore.NewSQLiteRepository(db)

	if err := a.wire(ctx); err != nil {
		a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) openBackend(ctx context.Context) (client.Backend, error) {
	cfg := a.config
	switch cfg.Backend {
	case config.BackendPostgres:
		return backend.Open(ctx, backend.Config{
			DatabaseDSN:     cfg.DatabaseDSN,
			SessionSecret:   cfg.SessionSecret,
			SessionValidity: cfg.SessionValidity,
			S3: backend.S3Config{
				Region:        cfg.S3.Region,
				Bucket:        cfg.S3.Bucket,
				BaseEndpoint:  cfg.S3.BaseEndpoint,
				AccessKey:     cfg.S3.AccessKey,
				SecretKey:     cfg.S3.SecretKey,
				PublicBaseURL: cfg.S3.PublicBaseURL,
			},
		}, a.store, a.log)
	default:
		return inmemory.New(inmemory.Options{
			Bucket:          cfg.S3.Bucket,
			PublicBaseURL:   cfg.S3.PublicBaseURL,
			ProfileTrigger:  true,
			SessionValidity: cfg.SessionValidity,
		}), nil
	}
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.config

	b, err := a.openBackend(ctx)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	a.backend = b

	a.auth, err = auth.NewStore(auth.Options{Auth: b.Auth(), Profiles: b.Profiles(), Logger: a.log})
	if err != nil {
		return err
	}
	if err := a.auth.Init(ctx); err != nil {
		a.log.Warn(ctx, "session probe failed", "error", err)
	}

	a.urls = objecturl.NewRegistry("")
	a.preview, err = objecturl.Listen(cfg.PreviewAddr, a.urls, a.log)
	if err != nil {
		return fmt.Errorf("start preview server: %w", err)
	}

	a.downloads, err = downloads.NewManager(downloads.Options{
		Store:   a.store,
		Storage: b.Storage(),
		Saver:   downloads.DirSaver{Dir: cfg.DownloadDir},
		URLs:    a.urls,
		Logger:  a.log,
		Bucket:  cfg.S3.Bucket,
		Retry: downloads.RetryPolicy{
			MaxAttempts: cfg.RetryAttempts,
			Backoff:     downloads.LinearBackoff(cfg.RetryBaseDelay),
		},
		CacheExpiration: cfg.CacheExpiration,
		CacheMaxEntries: cfg.CacheMaxEntries,
		SweepInterval:   cfg.SweepInterval,
		UserID:          a.userID,
	})
	if err != nil {
		return err
	}
	if err := a.downloads.StartSweeper(); err != nil {
		return err
	}

	cat, err := catalog.Load()
	if err != nil {
		return err
	}
	a.catalog = catalog.NewService(b.Storage(), cat, cfg.S3.Bucket, a.log)

	completer := &chat.Client{
		BaseURL: cfg.ChatBaseURL,
		APIKey:  cfg.ChatAPIKey,
		Model:   cfg.ChatModel,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
	a.assistant = chat.NewAssistant(completer, chat.NewHistory(a.store, a.log), a.log)

	var sender contact.Sender = contact.ConsoleSender{Log: a.log}
	if cfg.SendGridKey != "" {
		sender = contact.NewSendGridSender(cfg.SendGridKey, cfg.ContactFrom, cfg.ContactTo)
	}
	a.contact = contact.NewService(sender, a.store, cfg.ContactCooldown, a.log)
	return nil
}

// Close tears the components down in reverse order of construction.
func (a *App) Close(ctx context.Context) {
	if a.downloads != nil {
		if err := a.downloads.Close(ctx); err != nil {
			a.log.Warn(ctx, "downloads manager not closed", "error", err)
		}
	}
	if a.preview != nil {
		if err := a.preview.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn(ctx, "preview server not stopped", "error", err)
		}
	}
	if a.auth != nil {
		a.auth.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.log.Warn(ctx, "backend not closed", "error", err)
		}
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// userID is the signed-in user's id, or "" for the unscoped download index.
func (a *App) userID() string {
	if u := a.auth.Snapshot().User; u != nil {
		return u.ID
	}
	return ""
}

func (a *App) viewer() catalog.Viewer {
	snap := a.auth.Snapshot()
	v := catalog.Viewer{IsTeacher: snap.IsTeacher()}
	if snap.User != nil {
		v.UserID = snap.User.ID
	}
	return v
}

func (a *App) getStatus() string {
	snap := a.auth.Snapshot()
	switch {
	case snap.IsAuthenticated():
		return fmt.Sprintf("%s (%s)", snap.User.Email, snap.User.Role)
	case snap.IsLoading():
		return "loading"
	default:
		return "guest"
	}
}

// Run starts the REPL on stdin and returns when the user exits.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to NoteKeeper (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
