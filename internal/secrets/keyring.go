package secrets

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
	"github.com/adrg/xdg"
)

// KeyringStore implements the Store interface using the OS keyring.
// All pairs live under one keyring service; items are keyed by ItemKey.
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore opens the OS keyring.
// Returns an error if the keyring is unavailable on this platform.
func NewKeyringStore() (*KeyringStore, error) {
	cfg := keyring.Config{
		ServiceName:              ServiceName,
		KeychainTrustApplication: true, // macOS: don't prompt every access
		FileDir:                  filepath.Join(xdg.DataHome, ServiceName, "keyring"),
		FilePasswordFunc:         keyring.TerminalPrompt,
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}

	return &KeyringStore{ring: ring}, nil
}

// NewKeyringStoreWith wraps an already opened keyring.
func NewKeyringStoreWith(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

// Get retrieves a secret from the keyring.
func (s *KeyringStore) Get(service, username string) (string, error) {
	item, err := s.ring.Get(ItemKey(service, username))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("keyring get failed: %w", err)
	}
	return string(item.Data), nil
}

// Set stores a secret in the keyring.
func (s *KeyringStore) Set(service, username, value string) error {
	item := keyring.Item{
		Key:         ItemKey(service, username),
		Data:        []byte(value),
		Label:       fmt.Sprintf("%s[%s]", service, username),
		Description: ServiceName + " secret",
	}
	if err := s.ring.Set(item); err != nil {
		return fmt.Errorf("keyring set failed: %w", err)
	}
	return nil
}

// Delete removes a secret from the keyring.
// Not every keyring backend reports a missing item on Remove, so existence is
// checked first.
func (s *KeyringStore) Delete(service, username string) error {
	key := ItemKey(service, username)
	if _, err := s.ring.Get(key); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("keyring delete failed: %w", err)
	}
	if err := s.ring.Remove(key); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("keyring delete failed: %w", err)
	}
	return nil
}

// List returns all secrets stored in the keyring.
func (s *KeyringStore) List() ([]Entry, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("keyring list failed: %w", err)
	}
	return entriesFromKeys(keys), nil
}
