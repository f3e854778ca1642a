// Package cryptox implements password hashing for the self-hosted backend.
package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of the random salt generated per user.
const SaltSize = 16

// DeriveKey stretches password with argon2id using fixed cost parameters.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// HashPassword returns the argon2id hash of password under a fresh salt.
func HashPassword(password []byte) (hash []byte, salt []byte) {
	salt = common.GenerateRandByteArray(SaltSize)
	return DeriveKey(password, salt), salt
}

// VerifyPassword reports whether password hashes to want under salt. The
// comparison is constant-time.
func VerifyPassword(password, salt, want []byte) bool {
	got := DeriveKey(password, salt)
	return subtle.ConstantTimeCompare(got, want) == 1
}
