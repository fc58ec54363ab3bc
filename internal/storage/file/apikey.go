package file

import (
	"context"

	"github.com/xenking/kart-backoffice/internal/domain/auth"
)

var _ auth.Repository = (*APIKeyRepository)(nil)

type apiKeyRecord struct {
	ID      string   `json:"id"`
	KeyHash string   `json:"key_hash"`
	Name    string   `json:"name"`
	Scopes  []string `json:"scopes"`
	Active  bool     `json:"active"`
}

// APIKeyRepository implements auth.Repository over api_keys.json.
type APIKeyRepository struct {
	s *Store
}

// NewAPIKeyRepository creates an APIKeyRepository.
func NewAPIKeyRepository(s *Store) *APIKeyRepository {
	return &APIKeyRepository{s: s}
}

// FindByHash returns the active API key with the given hash.
func (r *APIKeyRepository) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := readTable[apiKeyRecord](r.s, tableAPIKeys)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.KeyHash == hash && row.Active {
			return &auth.APIKeyInfo{
				ID:      row.ID,
				KeyHash: row.KeyHash,
				Name:    row.Name,
				Scopes:  row.Scopes,
			}, nil
		}
	}
	return nil, auth.ErrNotFound
}

// Save upserts k by ID as an active key.
func (r *APIKeyRepository) Save(_ context.Context, k *auth.APIKeyInfo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec := apiKeyRecord{ID: k.ID, KeyHash: k.KeyHash, Name: k.Name, Scopes: k.Scopes, Active: true}
	return upsert(r.s, tableAPIKeys, rec, func(rec apiKeyRecord) string { return rec.ID })
}
