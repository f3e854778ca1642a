package models

import (
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// UserProfile is the domain view of the authenticated user. Empty optional
// fields mean "not set".
type UserProfile struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Role           Role     `json:"role"`
	Avatar         string   `json:"avatar,omitempty"`
	Bio            string   `json:"bio,omitempty"`
	ContactDetails string   `json:"contactDetails,omitempty"`
	Bookmarks      []string `json:"bookmarks"`
}

// HasBookmark reports whether noteID is in the bookmark list.
func (p *UserProfile) HasBookmark(noteID string) bool {
	for _, id := range p.Bookmarks {
		if id == noteID {
			return true
		}
	}
	return false
}

// ProfileRecord is the profile row as stored remotely (snake_case).
type ProfileRecord struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Role           string   `json:"role"`
	Avatar         *string  `json:"avatar"`
	Bio            *string  `json:"bio"`
	ContactDetails *string  `json:"contact_details"`
	Bookmarks      []string `json:"bookmarks"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ProfileFromRecord maps a remote row to the domain profile. Null optional
// columns become empty strings and a null bookmark list becomes empty.
func ProfileFromRecord(r ProfileRecord) UserProfile {
	bookmarks := r.Bookmarks
	if bookmarks == nil {
		bookmarks = []string{}
	}
	return UserProfile{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Role:           Role(r.Role),
		Avatar:         deref(r.Avatar),
		Bio:            deref(r.Bio),
		ContactDetails: deref(r.ContactDetails),
		Bookmarks:      append([]string(nil), bookmarks...),
	}
}

// RecordFromProfile is the inverse of ProfileFromRecord.
func RecordFromProfile(p UserProfile) ProfileRecord {
	bookmarks := p.Bookmarks
	if bookmarks == nil {
		bookmarks = []string{}
	}
	return ProfileRecord{
		ID:             p.ID,
		Name:           p.Name,
		Email:          p.Email,
		Role:           string(p.Role),
		Avatar:         optional(p.Avatar),
		Bio:            optional(p.Bio),
		ContactDetails: optional(p.ContactDetails),
		Bookmarks:      append([]string(nil), bookmarks...),
	}
}

// ProfileUpdate is a partial profile change. Name, Email and Role apply only
// when non-empty; the other fields apply whenever they are non-nil, so an
// empty string clears them.
type ProfileUpdate struct {
	Name           *string   `validate:"omitempty"`
	Email          *string   `validate:"omitempty,email"`
	Role           *Role     `validate:"omitempty,oneof=student teacher"`
	Avatar         *string   `validate:"omitempty"`
	Bio            *string   `validate:"omitempty"`
	ContactDetails *string   `validate:"omitempty"`
	Bookmarks      *[]string `validate:"omitempty"`
}

func (u ProfileUpdate) Validate() error {
	if err := validate.Struct(u); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return nil
}

// Fields returns the update in the remote record's shape.
func (u ProfileUpdate) Fields() map[string]any {
	f := map[string]any{}
	if u.Name != nil && *u.Name != "" {
		f["name"] = *u.Name
	}
	if u.Email != nil && *u.Email != "" {
		f["email"] = *u.Email
	}
	if u.Role != nil && *u.Role != "" {
		f["role"] = string(*u.Role)
	}
	if u.Avatar != nil {
		f["avatar"] = *u.Avatar
	}
	if u.Bio != nil {
		f["bio"] = *u.Bio
	}
	if u.ContactDetails != nil {
		f["contact_details"] = *u.ContactDetails
	}
	if u.Bookmarks != nil {
		f["bookmarks"] = append([]string{}, (*u.Bookmarks)...)
	}
	return f
}

// Apply merges the update into p following the same rules as Fields.
func (u ProfileUpdate) Apply(p *UserProfile) {
	if u.Name != nil && *u.Name != "" {
		p.Name = *u.Name
	}
	if u.Email != nil && *u.Email != "" {
		p.Email = *u.Email
	}
	if u.Role != nil && *u.Role != "" {
		p.Role = *u.Role
	}
	if u.Avatar != nil {
		p.Avatar = *u.Avatar
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	if u.ContactDetails != nil {
		p.ContactDetails = *u.ContactDetails
	}
	if u.Bookmarks != nil {
		p.Bookmarks = append([]string{}, (*u.Bookmarks)...)
	}
}

// Registration is the sign-up form.
type Registration struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Name     string `validate:"required"`
	Role     Role   `validate:"required,oneof=student teacher"`
}

func (r Registration) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return nil
}
