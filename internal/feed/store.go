// Package feed holds the in-memory view of what is currently known about
// every feed.
package feed

import (
	"sort"

	"github.com/neiam/apollos-kiosk/internal/domain"
)

// Store maps feed keys to their most recently decoded entry. It is owned by
// the single consumer loop and is deliberately unsynchronized: producers
// hand messages over through queues and never touch it.
type Store struct {
	entries map[string]domain.Entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]domain.Entry)}
}

// Put inserts or wholesale-replaces the entry for key.
func (s *Store) Put(key string, entry domain.Entry) {
	s.entries[key] = entry
}

func (s *Store) Get(key string) (domain.Entry, bool) {
	entry, ok := s.entries[key]
	return entry, ok
}

// Delete removes the entry for key, if any.
func (s *Store) Delete(key string) {
	delete(s.entries, key)
}

func (s *Store) Has(key string) bool {
	_, ok := s.entries[key]
	return ok
}

func (s *Store) Len() int {
	return len(s.entries)
}

// Keys returns all known feed keys, sorted for stable iteration.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
