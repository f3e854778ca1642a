// Package users stores backend accounts: e-mail, password hash and salt, and
// the metadata given at sign-up.
package users

import (
	"context"
	"errors"
)

var ErrAlreadyExists = errors.New("user already exists")

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	Salt         []byte
	Metadata     map[string]any
}

type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
