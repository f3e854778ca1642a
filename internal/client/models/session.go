package models

import "time"

// AuthUser is the identity attached to a session.
type AuthUser struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is a live sign-in issued by the backend.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *AuthUser `json:"user,omitempty"`
}

// UserID returns the id of the session's user, or "" when there is none.
func (s *Session) UserID() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.ID
}

type AuthEventType string

const (
	EventInitialSession AuthEventType = "INITIAL_SESSION"
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEventType = "USER_UPDATED"
)

// AuthEvent is one auth-state change. Session is nil after sign-out.
type AuthEvent struct {
	Type    AuthEventType
	Session *Session
}

// StorageObject is one entry of a storage listing.
type StorageObject struct {
	ID        string
	Name      string
	Size      int64
	UpdatedAt time.Time
}

// ChatMessage is one turn of the assistant conversation.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
