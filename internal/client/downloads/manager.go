package downloads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/localstore"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

const (
	CacheExpiration     = time.Hour
	SweepInterval       = 15 * time.Minute
	DefaultMaxRetries   = 3
	DefaultCacheEntries = 64
	DefaultBucket       = "notes"
)

var ErrEmptyFile = errors.New("downloaded file is empty")

// Downloader fetches an object by storage path.
type Downloader interface {
	Download(ctx context.Context, path string) ([]byte, error)
}

// IndexKey is the local-store key of the downloaded-note index for userID.
func IndexKey(userID string) string {
	if userID == "" {
		return common.DownloadedNotesKey
	}
	return common.DownloadedNotesKey + "_" + userID
}

// Options configures a Manager. Store, Storage and Saver are required.
type Options struct {
	Store   localstore.Repository
	Storage Downloader
	Saver   Saver
	URLs    ObjectURLs
	Logger  logging.Logger

	// Bucket is the storage bucket name as it appears in note URLs.
	Bucket string
	Retry  RetryPolicy

	CacheExpiration time.Duration
	CacheMaxEntries int
	SweepInterval   time.Duration

	// UserID returns the currently signed-in user, or "".
	UserID func() string
	// Clock overrides time.Now for the blob cache.
	Clock func() time.Time
}

// Manager implements offline downloads and the blob cache.
type Manager struct {
	store   localstore.Repository
	storage Downloader
	saver   Saver
	urls    ObjectURLs
	log     logging.Logger
	bucket  string
	retry   RetryPolicy
	userID  func() string

	cache         *BlobCache
	sweepInterval time.Duration

	// indexMu serializes read-modify-write cycles on the index.
	indexMu sync.Mutex

	cronMu sync.Mutex
	cron   *cron.Cron
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil || opts.Storage == nil || opts.Saver == nil {
		return nil, errors.New("downloads: store, storage and saver are required")
	}

	m := &Manager{
		store:         opts.Store,
		storage:       opts.Storage,
		saver:         opts.Saver,
		urls:          opts.URLs,
		log:           opts.Logger,
		bucket:        opts.Bucket,
		retry:         opts.Retry,
		userID:        opts.UserID,
		sweepInterval: opts.SweepInterval,
	}
	if m.log == nil {
		m.log = logging.Nop()
	}
	m.log = m.log.With("component", "downloads")
	if m.bucket == "" {
		m.bucket = DefaultBucket
	}
	if m.retry.MaxAttempts == 0 && m.retry.Backoff == nil {
		m.retry = DefaultRetryPolicy()
	}
	if m.userID == nil {
		m.userID = func() string { return "" }
	}
	if m.sweepInterval <= 0 {
		m.sweepInterval = SweepInterval
	}

	ttl := opts.CacheExpiration
	if ttl <= 0 {
		ttl = CacheExpiration
	}
	size := opts.CacheMaxEntries
	if size <= 0 {
		size = DefaultCacheEntries
	}

	var release func(string) error
	if m.urls != nil {
		release = m.urls.Revoke
	}
	cache, err := NewBlobCache(size, ttl, release, m.log)
	if err != nil {
		return nil, err
	}
	if opts.Clock != nil {
		cache.now = opts.Clock
	}
	m.cache = cache

	return m, nil
}

func (m *Manager) fetch(ctx context.Context, note models.Note) ([]byte, error) {
	path, err := ResolveStoragePath(note.FileURL, m.bucket)
	if err != nil {
		return nil, err
	}
	data, err := m.storage.Download(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("download %s: %w", path, ErrEmptyFile)
	}
	return data, nil
}

func (m *Manager) downloadNoteFile(ctx context.Context, note models.Note) (string, error) {
	if err := note.Validate(); err != nil {
		return "", err
	}
	downloadAttemptsTotal.Inc()

	data, err := m.fetch(ctx, note)
	if err != nil {
		return "", err
	}

	saved, err := m.saver.Save(ctx, note.FileName(), data, MimeType(note.FileType))
	if err != nil {
		return "", fmt.Errorf("save %s: %w", note.FileName(), err)
	}

	if !m.SaveNoteToStorage(ctx, note, m.userID()) {
		m.log.Warn(ctx, "downloaded note not recorded in index", "note_id", note.ID)
	}
	return saved, nil
}

// DownloadNoteFile fetches the note's file, saves it for the user and records
// the note in the current user's index. A nil error means success.
func (m *Manager) DownloadNoteFile(ctx context.Context, note models.Note) error {
	_, err := m.downloadNoteFile(ctx, note)
	if err != nil {
		downloadsTotal.WithLabelValues("failure").Inc()
		m.log.Error(ctx, "download failed", "note_id", note.ID, "error", err)
		return err
	}
	downloadsTotal.WithLabelValues("success").Inc()
	m.log.Info(ctx, "note downloaded", "note_id", note.ID)
	return nil
}

// DownloadNoteWithRetry calls DownloadNoteFile up to maxRetries times,
// pausing according to the manager's backoff between failures. A
// non-positive maxRetries uses the configured policy's ceiling. Invalid notes
// fail on the first attempt.
func (m *Manager) DownloadNoteWithRetry(ctx context.Context, note models.Note, maxRetries int) error {
	policy := m.retry
	if maxRetries > 0 {
		policy = policy.WithMaxAttempts(maxRetries)
	}

	var attempts int
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt
		err := m.DownloadNoteFile(ctx, note)
		if err != nil && attempt < policy.MaxAttempts {
			m.log.Warn(ctx, "download attempt failed, retrying", "note_id", note.ID, "attempt", attempt)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("download %q failed after %d attempt(s): %w", note.ID, attempts, err)
	}
	return nil
}

// SaveNoteToStorage adds note to userID's index unless a note with the same
// id is already there. It reports false for invalid notes and for store read
// or write errors; a failed read leaves the stored index untouched.
func (m *Manager) SaveNoteToStorage(ctx context.Context, note models.Note, userID string) bool {
	if err := note.Validate(); err != nil {
		m.log.Warn(ctx, "refusing to index invalid note", "note_id", note.ID, "error", err)
		return false
	}

	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	notes, err := m.loadIndex(ctx, userID)
	if err != nil {
		m.log.Error(ctx, "read download index", "user_id", userID, "error", err)
		return false
	}
	for _, n := range notes {
		if n.ID == note.ID {
			return true
		}
	}

	note.CachedBlobURL = ""
	return m.writeIndex(ctx, userID, append(notes, note))
}

// GetDownloadedNotes returns userID's index. Missing, corrupt or unreadable
// data yields an empty slice and invalid entries are dropped.
func (m *Manager) GetDownloadedNotes(ctx context.Context, userID string) []models.Note {
	return m.readIndex(ctx, userID)
}

func (m *Manager) readIndex(ctx context.Context, userID string) []models.Note {
	notes, err := m.loadIndex(ctx, userID)
	if err != nil {
		m.log.Warn(ctx, "read download index", "user_id", userID, "error", err)
		return []models.Note{}
	}
	return notes
}

// loadIndex decodes userID's index. Only a failing store read is an error;
// missing or corrupt data decodes to an empty index.
func (m *Manager) loadIndex(ctx context.Context, userID string) ([]models.Note, error) {
	notes := []models.Note{}

	raw, err := m.store.Get(ctx, IndexKey(userID))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return notes, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		m.log.Warn(ctx, "corrupt download index", "user_id", userID, "error", err)
		return notes, nil
	}

	for _, item := range items {
		var n models.Note
		if err := json.Unmarshal(item, &n); err != nil || !n.Valid() {
			continue
		}
		notes = append(notes, n)
	}
	return notes, nil
}

func (m *Manager) writeIndex(ctx context.Context, userID string, notes []models.Note) bool {
	data, err := json.Marshal(notes)
	if err != nil {
		m.log.Error(ctx, "encode download index", "user_id", userID, "error", err)
		return false
	}
	if err := m.store.Set(ctx, IndexKey(userID), data); err != nil {
		m.log.Error(ctx, "write download index", "user_id", userID, "error", err)
		return false
	}
	return true
}

// IsNoteDownloaded reports whether noteID is in userID's index.
func (m *Manager) IsNoteDownloaded(ctx context.Context, noteID, userID string) bool {
	for _, n := range m.GetDownloadedNotes(ctx, userID) {
		if n.ID == noteID {
			return true
		}
	}
	return false
}

// DeleteDownloadedNote removes noteID from userID's index and drops its
// cached blob. Deleting an absent note succeeds; a failed store read reports
// false without writing.
func (m *Manager) DeleteDownloadedNote(ctx context.Context, noteID, userID string) bool {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	notes, err := m.loadIndex(ctx, userID)
	if err != nil {
		m.log.Error(ctx, "read download index", "user_id", userID, "error", err)
		return false
	}
	kept := notes[:0]
	for _, n := range notes {
		if n.ID != noteID {
			kept = append(kept, n)
		}
	}

	m.cache.Remove(noteID)
	return m.writeIndex(ctx, userID, kept)
}

// DeleteAllDownloadedNotes drops the cached blob of every indexed note and
// then removes userID's index.
func (m *Manager) DeleteAllDownloadedNotes(ctx context.Context, userID string) bool {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	for _, n := range m.readIndex(ctx, userID) {
		m.cache.Remove(n.ID)
	}
	if err := m.store.Delete(ctx, IndexKey(userID)); err != nil {
		m.log.Error(ctx, "clear download index", "user_id", userID, "error", err)
		return false
	}
	return true
}

// GetCachedFile looks noteID up in the blob cache, refreshing its expiry.
func (m *Manager) GetCachedFile(noteID string) (CachedFile, bool) {
	return m.cache.Get(noteID)
}

// CacheNoteFile returns the cached blob for note, downloading it and issuing
// an object URL on a miss. Callers must not hold on to the URL: the entry may
// be released at any time and should be looked up again.
func (m *Manager) CacheNoteFile(ctx context.Context, note models.Note) (CachedFile, error) {
	if err := note.Validate(); err != nil {
		return CachedFile{}, err
	}
	if f, ok := m.cache.Get(note.ID); ok {
		return f, nil
	}

	data, err := m.fetch(ctx, note)
	if err != nil {
		return CachedFile{}, err
	}

	mimeType := MimeType(note.FileType)
	f := CachedFile{Data: data, MimeType: mimeType}
	if m.urls != nil {
		f.URL = m.urls.Create(data, mimeType)
	}
	m.cache.Put(note.ID, f)
	return f, nil
}

// ShareNote saves the cached blob under a sanitized file name, or falls back
// to a regular download when the blob is not cached. It returns the saved
// location.
func (m *Manager) ShareNote(ctx context.Context, note models.Note) (string, error) {
	if err := note.Validate(); err != nil {
		return "", err
	}

	f, ok := m.cache.Get(note.ID)
	if !ok {
		m.log.Info(ctx, "blob not cached, downloading instead", "note_id", note.ID)
		return m.downloadNoteFile(ctx, note)
	}

	name := filex.SanitizeFileName(note.Title)
	if note.FileType != "" {
		name += "." + note.FileType
	}
	return m.saver.Save(ctx, name, f.Data, f.MimeType)
}

// ClearFileCache releases every cached blob.
func (m *Manager) ClearFileCache() {
	m.cache.Purge()
}

// Sweep evicts expired blobs now and returns how many were removed.
func (m *Manager) Sweep() int {
	n := m.cache.Sweep()
	if n > 0 {
		m.log.Info(context.Background(), "expired cached blobs", "count", n)
	}
	return n
}

// StartSweeper schedules Sweep every sweep interval until Close.
func (m *Manager) StartSweeper() error {
	m.cronMu.Lock()
	defer m.cronMu.Unlock()

	if m.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", m.sweepInterval), func() { m.Sweep() }); err != nil {
		return fmt.Errorf("schedule cache sweep: %w", err)
	}
	c.Start()
	m.cron = c
	return nil
}

// Close stops the sweeper, waiting for a running sweep, and releases the
// blob cache.
func (m *Manager) Close(ctx context.Context) error {
	m.cronMu.Lock()
	c := m.cron
	m.cron = nil
	m.cronMu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			m.ClearFileCache()
			return ctx.Err()
		}
	}
	m.ClearFileCache()
	return nil
}
