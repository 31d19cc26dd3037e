package secrets

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize    = 16
	lockTimeout = 10 * time.Second
)

// FileStore implements the Store interface using an AES-256-GCM encrypted file.
// This is a fallback for environments where OS keyring is unavailable (WSL, headless, Docker).
//
// File layout: 16-byte scrypt salt, 12-byte nonce, ciphertext of a JSON map
// from ItemKey to value.
type FileStore struct {
	path     string
	lockPath string
	password []byte
}

// DefaultFilePath returns the location of the encrypted secrets file.
func DefaultFilePath() string {
	return filepath.Join(xdg.DataHome, ServiceName, "secrets.enc")
}

// MachinePassword derives a machine-specific password from the login name
// and hostname. Weaker than a user-provided password.
func MachinePassword() string {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME") // Windows fallback
	}
	return fmt.Sprintf("%s@%s", username, hostname)
}

// NewFileStore creates a file-backed store at path (DefaultFilePath when empty).
// If password is empty, MachinePassword is used.
func NewFileStore(path, password string) (*FileStore, error) {
	if path == "" {
		path = DefaultFilePath()
	}
	if password == "" {
		password = MachinePassword()
	}

	// Create parent directory with 0700 permissions
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create secrets directory: %w", err)
	}

	return &FileStore{
		path:     path,
		lockPath: path + ".lock",
		password: []byte(password),
	}, nil
}

// Path returns the encrypted file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) deriveKey(salt []byte) ([]byte, error) {
	key, err := scrypt.Key(s.password, salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// encrypt seals plaintext with a random nonce and prepends salt and nonce.
func (s *FileStore) encrypt(salt, plaintext []byte) ([]byte, error) {
	key, err := s.deriveKey(salt)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(salt)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	return gcm.Seal(append(out, nonce...), nonce, plaintext, nil), nil
}

// decrypt reverses encrypt and returns the plaintext with the salt it used.
func (s *FileStore) decrypt(data []byte) (plaintext, salt []byte, err error) {
	if len(data) < saltSize {
		return nil, nil, fmt.Errorf("ciphertext too short")
	}
	salt, data = data[:saltSize], data[saltSize:]

	key, err := s.deriveKey(salt)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err = gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, salt, nil
}

// lock takes the store's lock file, shared for reads and exclusive for writes.
func (s *FileStore) lock(exclusive bool) (func(), error) {
	fl := flock.New(s.lockPath)
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	var locked bool
	var err error
	if exclusive {
		locked, err = fl.TryLockContext(ctx, 50*time.Millisecond)
	} else {
		locked, err = fl.TryRLockContext(ctx, 50*time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to acquire lock: timeout")
	}
	return func() { _ = fl.Unlock() }, nil
}

// readStore decrypts and parses the secrets file.
// Returns an empty map and a fresh salt if the file doesn't exist.
func (s *FileStore) readStore() (map[string]string, []byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	if len(data) == 0 {
		salt := make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		return make(map[string]string), salt, nil
	}

	plaintext, salt, err := s.decrypt(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt secrets: %w", err)
	}

	var store map[string]string
	if err := json.Unmarshal(plaintext, &store); err != nil {
		return nil, nil, fmt.Errorf("failed to parse secrets: %w", err)
	}
	if store == nil {
		store = make(map[string]string)
	}

	return store, salt, nil
}

// writeStore encrypts and writes the secret map to disk through a temp file.
func (s *FileStore) writeStore(store map[string]string, salt []byte) error {
	plaintext, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("failed to serialize secrets: %w", err)
	}

	ciphertext, err := s.encrypt(salt, plaintext)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, ciphertext, 0600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace secrets file: %w", err)
	}

	return nil
}

// Get retrieves a secret from the encrypted file.
func (s *FileStore) Get(service, username string) (string, error) {
	unlock, err := s.lock(false)
	if err != nil {
		return "", err
	}
	defer unlock()

	store, _, err := s.readStore()
	if err != nil {
		return "", err
	}

	value, ok := store[ItemKey(service, username)]
	if !ok {
		return "", ErrNotFound
	}

	return value, nil
}

// Set stores a secret in the encrypted file.
func (s *FileStore) Set(service, username, value string) error {
	unlock, err := s.lock(true)
	if err != nil {
		return err
	}
	defer unlock()

	store, salt, err := s.readStore()
	if err != nil {
		return err
	}

	store[ItemKey(service, username)] = value
	return s.writeStore(store, salt)
}

// Delete removes a secret from the encrypted file.
func (s *FileStore) Delete(service, username string) error {
	unlock, err := s.lock(true)
	if err != nil {
		return err
	}
	defer unlock()

	store, salt, err := s.readStore()
	if err != nil {
		return err
	}

	key := ItemKey(service, username)
	if _, ok := store[key]; !ok {
		return ErrNotFound
	}

	delete(store, key)
	return s.writeStore(store, salt)
}

// List returns all secrets stored in the encrypted file.
func (s *FileStore) List() ([]Entry, error) {
	unlock, err := s.lock(false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	store, _, err := s.readStore()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}

	return entriesFromKeys(keys), nil
}
