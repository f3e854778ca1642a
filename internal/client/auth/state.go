package auth

import (
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of the store's view at one point in time.
type Snapshot struct {
	State   State
	Session *models.Session
	User    *models.UserProfile
}

func (s Snapshot) IsAuthenticated() bool {
	return s.Session != nil && s.User != nil
}

func (s Snapshot) IsLoading() bool {
	return s.State == StateLoading || s.State == StateUninitialized
}

func (s Snapshot) IsTeacher() bool {
	return s.User != nil && s.User.Role == models.RoleTeacher
}

// AuthError carries a rejected login, registration or logout. Its message is
// the backend's, unchanged.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string { return e.Err.Error() }

func (e *AuthError) Unwrap() error { return e.Err }
