// Named sets of strings (eg, banned substrings) that moderation rules consult.
package setstore

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sort"
	"sync"
)

type SetStore interface {
	InSet(ctx context.Context, name, val string) (bool, error)
	// Returns all members of the named set, sorted. Unknown sets are empty, not an error.
	Members(ctx context.Context, name string) ([]string, error)
}

type MemSetStore struct {
	mu   sync.RWMutex
	Sets map[string]map[string]bool
}

var _ SetStore = (*MemSetStore)(nil)

func NewMemSetStore() *MemSetStore {
	return &MemSetStore{
		Sets: make(map[string]map[string]bool),
	}
}

func (s *MemSetStore) InSet(ctx context.Context, name, val string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.Sets[name]
	if !ok {
		// NOTE: currently returns false when entire set isn't found
		return false, nil
	}
	_, ok = set[val]
	return ok, nil
}

func (s *MemSetStore) Members(ctx context.Context, name string) ([]string, error) {
	s.mu.RLock()
	set := s.Sets[name]
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

// Adds values to the named set, creating it if needed.
func (s *MemSetStore) Add(name string, vals ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Sets[name]
	if !ok {
		m = make(map[string]bool, len(vals))
		s.Sets[name] = m
	}
	for _, v := range vals {
		m[v] = true
	}
}

// Loads sets from a JSON file shaped like `{"set-name": ["val1", "val2"]}`. Sets in the file replace any existing set of the same name.
func (s *MemSetStore) LoadFromFileJSON(p string) error {

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var sets map[string][]string
	if err := json.Unmarshal(raw, &sets); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, l := range sets {
		m := make(map[string]bool, len(l))
		for _, val := range l {
			m[val] = true
		}
		s.Sets[name] = m
	}
	return nil
}
