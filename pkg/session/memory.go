package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with TTL semantics, used by tests and
// the local REPL. Expired entries are dropped lazily on read.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	lists map[string]memoryList
	now   func() time.Time
}

type memoryItem struct {
	value    string
	deadline time.Time
}

type memoryList struct {
	values   []string
	deadline time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryItem),
		lists: make(map[string]memoryList),
		now:   time.Now,
	}
}

// SetClock overrides the time source, for expiry tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[key]
	if !ok {
		return "", false, nil
	}
	if s.now().After(item.deadline) {
		delete(s.items, key)
		return "", false, nil
	}
	return item.value, true, nil
}

func (s *MemoryStore) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = memoryItem{value: value, deadline: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.items, key)
		delete(s.lists, key)
	}
	return nil
}

func (s *MemoryStore) AppendList(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[key]
	if len(list.values) > 0 && s.now().After(list.deadline) {
		list = memoryList{}
	}
	list.values = append(list.values, value)
	list.deadline = s.now().Add(ttl)
	s.lists[key] = list
	return nil
}

func (s *MemoryStore) GetList(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.lists[key]
	if !ok {
		return nil, nil
	}
	if s.now().After(list.deadline) {
		delete(s.lists, key)
		return nil, nil
	}
	out := make([]string, len(list.values))
	copy(out, list.values)
	return out, nil
}
