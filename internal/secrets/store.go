package secrets

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Store is the interface for credential storage.
// A secret is addressed by its (service, username) pair; Set overwrites.
type Store interface {
	// Get returns ErrNotFound when no value is stored for the pair.
	Get(service, username string) (string, error)
	Set(service, username, value string) error
	// Delete returns ErrNotFound when no value is stored for the pair.
	Delete(service, username string) error
}

// Lister is implemented by stores that can enumerate their entries.
type Lister interface {
	List() ([]Entry, error)
}

// Entry identifies a stored secret without its value.
type Entry struct {
	Service  string
	Username string
}

// ErrNotFound is returned when a secret is not found in the store
var ErrNotFound = errors.New("secret not found")

// ErrListUnsupported is returned by wrappers whose underlying store cannot enumerate.
var ErrListUnsupported = errors.New("backend cannot list secrets")

// ServiceName is the keyring service and directory name used by nbsecrets
const ServiceName = "nbsecrets"

// ItemKey flattens a (service, username) pair into a single reversible key
// for backends with one flat key space.
func ItemKey(service, username string) string {
	return url.PathEscape(service) + "/" + url.PathEscape(username)
}

// ParseItemKey reverses ItemKey.
func ParseItemKey(key string) (Entry, error) {
	svc, user, ok := strings.Cut(key, "/")
	if !ok {
		return Entry{}, fmt.Errorf("malformed item key %q", key)
	}
	service, err := url.PathUnescape(svc)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed item key %q: %w", key, err)
	}
	username, err := url.PathUnescape(user)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed item key %q: %w", key, err)
	}
	return Entry{Service: service, Username: username}, nil
}

// entriesFromKeys parses item keys, skipping foreign keys, sorted by service then username.
func entriesFromKeys(keys []string) []Entry {
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		e, err := ParseItemKey(k)
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Service != entries[j].Service {
			return entries[i].Service < entries[j].Service
		}
		return entries[i].Username < entries[j].Username
	})
	return entries
}
