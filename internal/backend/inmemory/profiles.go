package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

type recordCopy = models.ProfileRecord

// Profiles is the profile table.
type Profiles struct {
	hooks

	mu      sync.Mutex
	rows    map[string]recordCopy
	inserts int
	updates int
}

// SetHook installs fn before op: "select", "update", "insert". The hook
// receives the profile id.
func (p *Profiles) SetHook(op string, fn Hook) { p.hooks.set(op, fn) }

func clone(r models.ProfileRecord) models.ProfileRecord {
	if r.Bookmarks != nil {
		r.Bookmarks = append([]string{}, r.Bookmarks...)
	}
	return r
}

func (p *Profiles) Select(ctx context.Context, id string) (*models.ProfileRecord, error) {
	if err := p.run(ctx, "select", id); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.rows[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	c := clone(r)
	return &c, nil
}

func (p *Profiles) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := p.run(ctx, "update", id); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.rows[id]
	if !ok {
		return client.ErrNotFound
	}
	for k, v := range fields {
		if err := setField(&r, k, v); err != nil {
			return err
		}
	}
	p.rows[id] = r
	p.updates++
	return nil
}

func setField(r *models.ProfileRecord, key string, v any) error {
	str := func() (string, error) {
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("column %s: want string, got %T", key, v)
		}
		return s, nil
	}
	switch key {
	case "name", "email", "role", "avatar", "bio", "contact_details":
		s, err := str()
		if err != nil {
			return err
		}
		switch key {
		case "name":
			r.Name = s
		case "email":
			r.Email = s
		case "role":
			r.Role = s
		case "avatar":
			r.Avatar = &s
		case "bio":
			r.Bio = &s
		case "contact_details":
			r.ContactDetails = &s
		}
	case "bookmarks":
		b, ok := v.([]string)
		if !ok {
			return fmt.Errorf("column bookmarks: want []string, got %T", v)
		}
		r.Bookmarks = append([]string{}, b...)
	default:
		return fmt.Errorf("unknown column %q", key)
	}
	return nil
}

func (p *Profiles) Insert(ctx context.Context, rec models.ProfileRecord) error {
	if err := p.run(ctx, "insert", rec.ID); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.rows[rec.ID]; ok {
		return fmt.Errorf("profile %s already exists", rec.ID)
	}
	if rec.Bookmarks == nil {
		rec.Bookmarks = []string{}
	}
	p.rows[rec.ID] = clone(rec)
	p.inserts++
	return nil
}

// Counts returns how many inserts and updates succeeded.
func (p *Profiles) Counts() (inserts, updates int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inserts, p.updates
}
