package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockKeyRepo struct {
	byHash  map[string]*APIKeyInfo
	findErr error
}

func (m *mockKeyRepo) FindByHash(_ context.Context, hash string) (*APIKeyInfo, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	k, ok := m.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return k, nil
}

func (m *mockKeyRepo) Save(_ context.Context, k *APIKeyInfo) error {
	m.byHash[k.KeyHash] = k
	return nil
}

func TestAuthenticator_IssueAndAuthenticate(t *testing.T) {
	repo := &mockKeyRepo{byHash: map[string]*APIKeyInfo{}}
	a := NewAuthenticator(repo, []byte("pepper"))

	key, info, err := a.Issue(context.Background(), "operator", ScopeOrders)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "kart_"))
	assert.Equal(t, Hash([]byte("pepper"), key), info.KeyHash)
	assert.NotContains(t, info.KeyHash, key)

	got, err := a.Authenticate(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "operator", got.Name)
	assert.True(t, got.HasScope(ScopeOrders))
	assert.False(t, got.HasScope(ScopeCatalog))
}

func TestAuthenticator_Rejects(t *testing.T) {
	repo := &mockKeyRepo{byHash: map[string]*APIKeyInfo{}}
	a := NewAuthenticator(repo, []byte("pepper"))
	key, _, err := a.Issue(context.Background(), "operator")
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = a.Authenticate(context.Background(), "kart_wrong")
	require.ErrorIs(t, err, ErrUnauthorized)

	other := NewAuthenticator(repo, []byte("other-pepper"))
	_, err = other.Authenticate(context.Background(), key)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticator_CorruptStoredHash(t *testing.T) {
	pepper := []byte("pepper")
	repo := &mockKeyRepo{byHash: map[string]*APIKeyInfo{}}
	repo.byHash[Hash(pepper, "k")] = &APIKeyInfo{ID: "1", KeyHash: "zz-not-hex"}

	_, err := NewAuthenticator(repo, pepper).Authenticate(context.Background(), "k")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticator_StoreError(t *testing.T) {
	repo := &mockKeyRepo{findErr: errors.New("db down")}
	_, err := NewAuthenticator(repo, nil).Authenticate(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "find api key")
}
