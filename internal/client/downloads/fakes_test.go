package downloads

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/localstore"
)

type fakeStorage struct {
	mu      sync.Mutex
	calls   int
	paths   []string
	results []result // consumed in order; the last one repeats
}

type result struct {
	data []byte
	err  error
}

func (f *fakeStorage) Download(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.paths = append(f.paths, path)
	if len(f.results) == 0 {
		return nil, errors.New("no result configured")
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.data, r.err
}

func (f *fakeStorage) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type savedFile struct {
	name     string
	data     []byte
	mimeType string
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []savedFile
	err   error
}

func (s *fakeSaver) Save(_ context.Context, name string, data []byte, mimeType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, savedFile{name: name, data: data, mimeType: mimeType})
	return "/downloads/" + name, nil
}

type fakeURLs struct {
	mu      sync.Mutex
	next    int
	revoked map[string]int
	err     error
}

func newFakeURLs() *fakeURLs { return &fakeURLs{revoked: map[string]int{}} }

func (u *fakeURLs) Create(_ []byte, _ string) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.next++
	return fmt.Sprintf("blob:test/%d", u.next)
}

func (u *fakeURLs) Revoke(url string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.revoked[url]++
	return u.err
}

func (u *fakeURLs) Revoked(url string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.revoked[url]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingStore fails every write; reads succeed against an inner store.
type failingStore struct {
	localstore.Repository
	err error
}

func (f failingStore) Set(context.Context, string, []byte) error { return f.err }
func (f failingStore) Delete(context.Context, string) error      { return f.err }

// flakyReadStore fails the next Get after failNext is called.
type flakyReadStore struct {
	localstore.Repository
	mu   sync.Mutex
	fail bool
}

func (f *flakyReadStore) failNext() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = true
}

func (f *flakyReadStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.fail
	f.fail = false
	f.mu.Unlock()
	if fail {
		return nil, errors.New("database is locked")
	}
	return f.Repository.Get(ctx, key)
}

type panickingStore struct {
	localstore.Repository
}

func (panickingStore) Set(context.Context, string, []byte) error { panic("storage disabled") }

type env struct {
	m       *Manager
	store   *localstore.MemoryRepository
	storage *fakeStorage
	saver   *fakeSaver
	urls    *fakeURLs
	clock   *fakeClock
	userID  string
}

func newEnv(results ...result) *env {
	e := &env{
		store:   localstore.NewMemoryRepository(),
		storage: &fakeStorage{results: results},
		saver:   &fakeSaver{},
		urls:    newFakeURLs(),
		clock:   &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	m, err := NewManager(Options{
		Store:   e.store,
		Storage: e.storage,
		Saver:   e.saver,
		URLs:    e.urls,
		Retry:   RetryPolicy{MaxAttempts: DefaultMaxRetries},
		UserID:  func() string { return e.userID },
		Clock:   e.clock.Now,
	})
	if err != nil {
		panic(err)
	}
	e.m = m
	return e
}

func ok(n int) result { return result{data: make([]byte, n)} }

func fail(err error) result { return result{err: err} }

func midterm() models.Note {
	return models.Note{
		ID:       "n1",
		Title:    "Midterm",
		FileURL:  "https://x/notes/bca/1/python/1000-midterm.pdf",
		FileType: "pdf",
	}
}

func noteN(i int) models.Note {
	return models.Note{
		ID:       fmt.Sprintf("n%d", i),
		Title:    fmt.Sprintf("Note %d", i),
		FileURL:  fmt.Sprintf("https://x/notes/bca/1/python/%d-note.pdf", 1000+i),
		FileType: "pdf",
	}
}
