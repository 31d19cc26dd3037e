package auth

import (
	"golang.org/x/oauth2"

	"github.com/semmy-space/nbsecrets/internal/secrets"
)

// CredentialedStore is a secrets.Store that also holds the OAuth login of
// the current user, so identity resolution can ask it who that user is.
type CredentialedStore struct {
	secrets.Store
	tokens *TokenCache
}

// NewCredentialedStore wraps store with the credentials held by tokens.
func NewCredentialedStore(store secrets.Store, tokens *TokenCache) *CredentialedStore {
	return &CredentialedStore{Store: store, tokens: tokens}
}

// Credentials returns a token source for the logged-in user.
func (s *CredentialedStore) Credentials() (oauth2.TokenSource, error) {
	if !s.tokens.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	return oauth2.ReuseTokenSource(nil, s.tokens), nil
}

// List forwards to the wrapped store when it can enumerate entries.
func (s *CredentialedStore) List() ([]secrets.Entry, error) {
	l, ok := s.Store.(secrets.Lister)
	if !ok {
		return nil, secrets.ErrListUnsupported
	}
	return l.List()
}

// Unwrap returns the wrapped store.
func (s *CredentialedStore) Unwrap() secrets.Store {
	return s.Store
}
