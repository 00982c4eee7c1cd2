// Package auth authenticates admin and checkout callers by API key.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for a missing, unknown or inactive key, or one
// lacking the required scope.
var ErrUnauthorized = errors.New("unauthorized")

// ErrKeyNotFound is returned by Repository.FindByHash when no active key has
// the given hash.
var ErrKeyNotFound = errors.New("api key not found")

// Scopes understood by the HTTP guard.
const (
	ScopeAdmin    = "coupons:admin"
	ScopeCheckout = "coupons:redeem"
)

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key grants scope. An admin key grants every
// scope.
func (i *APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(i.Scopes, scope) || slices.Contains(i.Scopes, ScopeAdmin)
}

// Repository provides lookup of API keys by their HMAC hash. Unknown hashes
// yield ErrKeyNotFound; any other error is a store failure.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// HashKey returns the hex HMAC-SHA256 of key under pepper, the form stored in
// the api_keys table.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticator checks raw API keys against the repository.
type Authenticator struct {
	keys   Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator with the given key store and
// HMAC pepper.
func NewAuthenticator(keys Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, pepper: pepper}
}

// Authenticate resolves key and checks it grants scope. Missing, unknown or
// under-scoped keys yield ErrUnauthorized; store failures are returned
// wrapped.
func (a *Authenticator) Authenticate(ctx context.Context, key, scope string) (*APIKeyInfo, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}
	hexHash := HashKey(a.pepper, key)

	info, err := a.keys.FindByHash(ctx, hexHash)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, errors.Wrap(err, "find api key")
	}

	// The store matched on the hash column; compare again in constant time in
	// case the row returned is not the one we asked for.
	want, _ := hex.DecodeString(hexHash)
	got, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(want, got) != 1 {
		return nil, ErrUnauthorized
	}
	if !info.HasScope(scope) {
		return nil, ErrUnauthorized
	}
	return info, nil
}
