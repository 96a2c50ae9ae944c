// Package auth holds API key identities used to guard management endpoints.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no active API key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	// FindByHash returns the active key matching the hash, or ErrKeyNotFound.
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
