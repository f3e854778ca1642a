package inmemory

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

type object struct {
	data        []byte
	contentType string
	updated     time.Time
}

// Storage is a flat map of object paths.
type Storage struct {
	hooks

	mu      sync.Mutex
	bucket  string
	base    string
	objects map[string]object
	now     func() time.Time
}

// SetHook installs fn before op: "list", "download", "upload", "remove".
// The hook receives the path or prefix.
func (s *Storage) SetHook(op string, fn Hook) { s.hooks.set(op, fn) }

func (s *Storage) objectID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(s.bucket+"/"+path)).String()
}

// List returns the objects directly under prefix, sorted by name.
func (s *Storage) List(ctx context.Context, prefix string) ([]models.StorageObject, error) {
	if err := s.run(ctx, "list", prefix); err != nil {
		return nil, err
	}
	dir := strings.Trim(prefix, "/") + "/"

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.StorageObject{}
	for p, o := range s.objects {
		if !strings.HasPrefix(p, dir) {
			continue
		}
		name := strings.TrimPrefix(p, dir)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		out = append(out, models.StorageObject{ID: s.objectID(p), Name: name, Size: int64(len(o.data)), UpdatedAt: o.updated})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Storage) Download(ctx context.Context, path string) ([]byte, error) {
	if err := s.run(ctx, "download", path); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[path]
	if !ok {
		return nil, client.ErrNotFound
	}
	return append([]byte(nil), o.data...), nil
}

func (s *Storage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if err := s.run(ctx, "upload", path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = object{data: append([]byte(nil), data...), contentType: contentType, updated: s.now()}
	return nil
}

// PublicURL is <base>/<bucket>/<escaped path>.
func (s *Storage) PublicURL(path string) string {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(s.base, "/") + "/" + s.bucket + "/" + strings.Join(segs, "/")
}

// Remove deletes paths; missing ones are ignored.
func (s *Storage) Remove(ctx context.Context, paths []string) error {
	if err := s.run(ctx, "remove", strings.Join(paths, ",")); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		delete(s.objects, p)
	}
	return nil
}
