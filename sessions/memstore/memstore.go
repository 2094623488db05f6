package memstore

import (
	"sync"

	"github.com/travelbook/admin-console/sessions"
)

var _ sessions.Backend = (*Store)(nil)

// Store keeps session records in process memory.
type Store struct {
	values map[string][]byte
	lock   sync.RWMutex
}

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (s *Store) Read(key string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *Store) Write(key string, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.values, key)
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.values)
}
