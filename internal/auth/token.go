package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/oauth2"

	"github.com/semmy-space/nbsecrets/internal/config"
	"github.com/semmy-space/nbsecrets/internal/output"
	"github.com/semmy-space/nbsecrets/internal/secrets"
)

// The refresh token is itself a secret and lives in the credential store
// under this pair.
const (
	TokenService  = "nbsecrets-oauth"
	TokenUsername = "refresh_token"
)

// refreshWindow is how long before expiry a cached access token is replaced.
const refreshWindow = 5 * time.Minute

// TokenCache implements oauth2.TokenSource with file-based caching and file locking.
// The refresh token is kept in the credential store; the short-lived access
// and id tokens are cached on disk.
type TokenCache struct {
	cachePath string
	lockPath  string
	store     secrets.Store
	oauth     *oauth2.Config
}

// cachedToken represents the token structure stored in the cache file.
type cachedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	IDToken     string    `json:"id_token,omitempty"`
	Expiry      time.Time `json:"expiry"`
}

// ErrNotLoggedIn is returned when no refresh token is stored.
var ErrNotLoggedIn = errors.New("not logged in")

// NewTokenCache creates a new token cache for the given configuration.
func NewTokenCache(cfg *config.Config, store secrets.Store) (*TokenCache, error) {
	return newTokenCache(cfg, store, config.CacheDir())
}

func newTokenCache(cfg *config.Config, store secrets.Store, dir string) (*TokenCache, error) {
	oauthCfg, err := newOAuth2Config(cfg, "")
	if err != nil {
		return nil, err
	}

	// Ensure cache directory exists
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cachePath := filepath.Join(dir, "token.json")
	return &TokenCache{
		cachePath: cachePath,
		lockPath:  cachePath + ".lock",
		store:     store,
		oauth:     oauthCfg,
	}, nil
}

// withLock runs fn holding the cache lock file.
func (tc *TokenCache) withLock(fn func() error) error {
	lock := flock.New(tc.lockPath)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock: timeout")
	}
	defer lock.Unlock()

	return fn()
}

// LoggedIn reports whether a refresh token is stored.
func (tc *TokenCache) LoggedIn() bool {
	_, err := tc.store.Get(TokenService, TokenUsername)
	return err == nil
}

// Token implements oauth2.TokenSource.Token().
// Returns a valid access token, refreshing if necessary. The id_token, when
// the provider issued one, is available through Token.Extra("id_token").
func (tc *TokenCache) Token() (*oauth2.Token, error) {
	var token *oauth2.Token
	err := tc.withLock(func() error {
		if cached, err := tc.readCachedToken(); err == nil && time.Until(cached.Expiry) > refreshWindow {
			token = cached.token()
			return nil
		}

		fresh, err := tc.refreshToken()
		if err != nil {
			return err
		}
		token = fresh

		// Non-fatal: the token is still usable
		_ = tc.writeCachedToken(fresh)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (c *cachedToken) token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken: c.AccessToken,
		TokenType:   c.TokenType,
		Expiry:      c.Expiry,
	}
	if c.IDToken != "" {
		tok = tok.WithExtra(map[string]any{"id_token": c.IDToken})
	}
	return tok
}

// readCachedToken reads the cached access token from disk.
func (tc *TokenCache) readCachedToken() (*cachedToken, error) {
	data, err := os.ReadFile(tc.cachePath)
	if err != nil {
		return nil, err
	}

	var token cachedToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}

	return &token, nil
}

// writeCachedToken writes the access token to the cache file.
func (tc *TokenCache) writeCachedToken(token *oauth2.Token) error {
	cached := cachedToken{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Expiry:      token.Expiry,
	}
	cached.IDToken, _ = token.Extra("id_token").(string)

	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(tc.cachePath, data, 0600)
}

// refreshToken exchanges the stored refresh token for a new access token.
func (tc *TokenCache) refreshToken() (*oauth2.Token, error) {
	refreshToken, err := tc.store.Get(TokenService, TokenUsername)
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return nil, &output.CLIError{
				Message:  ErrNotLoggedIn.Error(),
				Hint:     "Run: nbsecrets auth login",
				ExitCode: output.ExitAuth,
			}
		}
		return nil, fmt.Errorf("failed to read refresh token: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := tc.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
			return nil, &output.CLIError{
				Message:  "Refresh token expired or revoked",
				Hint:     "Run: nbsecrets auth login",
				ExitCode: output.ExitAuth,
			}
		}
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	// Providers may rotate the refresh token
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		if err := tc.store.Set(TokenService, TokenUsername, token.RefreshToken); err != nil {
			return nil, fmt.Errorf("failed to update refresh token: %w", err)
		}
	}

	return token, nil
}

// SaveInitialTokens stores the tokens from a successful login.
// This should be called after InteractiveLogin or ManualLogin completes.
func (tc *TokenCache) SaveInitialTokens(token *oauth2.Token) error {
	if token.RefreshToken == "" {
		return fmt.Errorf("provider returned no refresh token")
	}

	return tc.withLock(func() error {
		if err := tc.store.Set(TokenService, TokenUsername, token.RefreshToken); err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}
		if err := tc.writeCachedToken(token); err != nil {
			return fmt.Errorf("failed to cache access token: %w", err)
		}
		return nil
	})
}

// ClearTokens removes all stored tokens (used by logout).
func (tc *TokenCache) ClearTokens() error {
	err := tc.withLock(func() error {
		if err := tc.store.Delete(TokenService, TokenUsername); err != nil && !errors.Is(err, secrets.ErrNotFound) {
			return fmt.Errorf("failed to delete refresh token: %w", err)
		}
		if err := os.Remove(tc.cachePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete cache file: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := os.Remove(tc.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete lock file: %w", err)
	}
	return nil
}
