package flagstore

import (
	"context"
	"sort"
	"sync"
)

type MemFlagStore struct {
	mu   sync.Mutex
	Data map[string]map[string]bool
}

var _ FlagStore = (*MemFlagStore)(nil)

func NewMemFlagStore() *MemFlagStore {
	return &MemFlagStore{
		Data: make(map[string]map[string]bool),
	}
}

// Returns flags sorted, or an empty list if none.
func (s *MemFlagStore) Get(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	set := s.Data[key]
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	s.mu.Unlock()
	sort.Strings(out)
	return out, nil
}

func (s *MemFlagStore) Add(ctx context.Context, key string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.Data[key]
	if !ok {
		set = make(map[string]bool, len(flags))
		s.Data[key] = set
	}
	for _, f := range flags {
		set[f] = true
	}
	return nil
}

// does not error if flags not in set
func (s *MemFlagStore) Remove(ctx context.Context, key string, flags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.Data[key]
	if !ok {
		return nil
	}
	for _, f := range flags {
		delete(set, f)
	}
	if len(set) == 0 {
		delete(s.Data, key)
	}
	return nil
}
