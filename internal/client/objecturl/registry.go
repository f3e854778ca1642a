// Package objecturl issues short-lived URLs for in-memory blobs and serves
// them from a loopback HTTP server, so previews can be opened by an external
// viewer without writing the file to disk.
package objecturl

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var ErrUnknownURL = errors.New("object url not registered")

type blob struct {
	data     []byte
	mimeType string
}

// Registry maps object URLs to blobs. The zero value is not usable; call
// NewRegistry.
type Registry struct {
	mu    sync.RWMutex
	base  string
	blobs map[string]blob
}

// NewRegistry creates a registry whose URLs start with baseURL. The base
// can be changed later with SetBaseURL, e.g. once the server port is known.
func NewRegistry(baseURL string) *Registry {
	return &Registry{base: strings.TrimRight(baseURL, "/"), blobs: map[string]blob{}}
}

func (r *Registry) SetBaseURL(baseURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.base = strings.TrimRight(baseURL, "/")
}

// Create registers data and returns its URL.
func (r *Registry) Create(data []byte, mimeType string) string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[id] = blob{data: data, mimeType: mimeType}
	return r.base + "/blob/" + id
}

func idFromURL(url string) string {
	i := strings.LastIndex(url, "/blob/")
	if i < 0 {
		return ""
	}
	return url[i+len("/blob/"):]
}

// Revoke forgets url. Revoking an unknown or already revoked URL returns
// ErrUnknownURL.
func (r *Registry) Revoke(url string) error {
	id := idFromURL(url)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blobs[id]; !ok {
		return ErrUnknownURL
	}
	delete(r.blobs, id)
	return nil
}

// Lookup returns the blob registered under id.
func (r *Registry) Lookup(id string) ([]byte, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blobs[id]
	return b.data, b.mimeType, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
