package secrets

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// SystemStore implements the Store interface on the platform secret service
// (macOS Keychain, freedesktop Secret Service, Windows Credential Manager)
// addressed natively by service and account.
type SystemStore struct{}

// NewSystemStore returns a SystemStore.
func NewSystemStore() *SystemStore {
	return &SystemStore{}
}

// Get retrieves a secret from the platform secret service.
func (s *SystemStore) Get(service, username string) (string, error) {
	v, err := keyring.Get(service, username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("secret service get failed: %w", err)
	}
	return v, nil
}

// Set stores a secret in the platform secret service.
func (s *SystemStore) Set(service, username, value string) error {
	if err := keyring.Set(service, username, value); err != nil {
		return fmt.Errorf("secret service set failed: %w", err)
	}
	return nil
}

// Delete removes a secret from the platform secret service.
func (s *SystemStore) Delete(service, username string) error {
	if err := keyring.Delete(service, username); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("secret service delete failed: %w", err)
	}
	return nil
}
