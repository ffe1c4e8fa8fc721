package countstore

import (
	"context"
	"sync"
	"time"
)

type MemCountStore struct {
	mu             sync.Mutex
	Counts         map[string]int
	DistinctCounts map[string]map[string]bool
	// for testing; defaults to time.Now
	Now func() time.Time
}

var _ CountStore = (*MemCountStore)(nil)

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		Counts:         make(map[string]int),
		DistinctCounts: make(map[string]map[string]bool),
		Now:            time.Now,
	}
}

func (s *MemCountStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *MemCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Counts[periodBucket(name, val, period, s.now())], nil
}

func (s *MemCountStore) Increment(ctx context.Context, name, val string) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range Periods {
		s.Counts[periodBucket(name, val, p, now)]++
	}
	return nil
}

func (s *MemCountStore) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.DistinctCounts[periodBucket(name, bucket, period, s.now())]), nil
}

func (s *MemCountStore) IncrementDistinct(ctx context.Context, name, bucket, val string) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range Periods {
		k := periodBucket(name, bucket, p, now)
		m, ok := s.DistinctCounts[k]
		if !ok {
			m = make(map[string]bool)
			s.DistinctCounts[k] = m
		}
		m[val] = true
	}
	return nil
}
