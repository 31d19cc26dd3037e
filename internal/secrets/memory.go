package secrets

import "sync"

// MemoryStore keeps secrets in process memory. Nothing survives the process;
// it backs tests and the "memory" backend.
type MemoryStore struct {
	mu    sync.Mutex
	items map[Entry]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[Entry]string)}
}

func (s *MemoryStore) Get(service, username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.items[Entry{Service: service, Username: username}]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(service, username, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[Entry{Service: service, Username: username}] = value
	return nil
}

func (s *MemoryStore) Delete(service, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Entry{Service: service, Username: username}
	if _, ok := s.items[key]; !ok {
		return ErrNotFound
	}
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.items))
	for e := range s.items {
		keys = append(keys, ItemKey(e.Service, e.Username))
	}
	return entriesFromKeys(keys), nil
}

// Len reports the number of stored secrets.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
