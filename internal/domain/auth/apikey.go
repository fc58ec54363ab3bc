package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
)

// Scopes granted to operator keys.
const (
	ScopeCatalog = "catalog"
	ScopeOrders  = "orders"
	ScopeReports = "reports"
)

var (
	// ErrNotFound is returned by repositories when no key matches a hash.
	ErrNotFound = errors.Wrap(apperr.ErrNotFound, "api key")
	// ErrUnauthorized is returned for missing, unknown or mismatching keys.
	ErrUnauthorized = errors.New("unauthorized")
)

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key was granted scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
	Save(ctx context.Context, k *APIKeyInfo) error
}

// Hash returns the hex HMAC-SHA256 of key under pepper.
func Hash(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticator validates presented API keys.
type Authenticator struct {
	keys   Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator with the given API key
// repository and HMAC pepper.
func NewAuthenticator(keys Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, pepper: pepper}
}

// Authenticate hashes key, looks it up and compares the stored hash in
// constant time.
func (a *Authenticator) Authenticate(ctx context.Context, key string) (*APIKeyInfo, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}
	mac := hmac.New(sha256.New, a.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)

	info, err := a.keys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}

	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, ErrUnauthorized
	}
	return info, nil
}

// Issue creates a new random key, stores its hash and returns the plain key.
// The plain key is not recoverable afterwards.
func (a *Authenticator) Issue(ctx context.Context, name string, scopes ...string) (string, *APIKeyInfo, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, errors.Wrap(err, "generate key")
	}
	key := "kart_" + hex.EncodeToString(raw)
	info := &APIKeyInfo{
		ID:      uuid.NewString(),
		KeyHash: Hash(a.pepper, key),
		Name:    name,
		Scopes:  scopes,
	}
	if err := a.keys.Save(ctx, info); err != nil {
		return "", nil, errors.Wrap(err, "save api key")
	}
	return key, info, nil
}
