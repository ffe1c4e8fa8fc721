package verify

import (
	"sort"
	"sync"
	"time"
)

// An outstanding challenge for a single chat member.
type PendingVerification struct {
	MemberID       int64     `json:"member_id"`
	ExpectedAnswer int       `json:"expected_answer"`
	OriginChat     int64     `json:"origin_chat"`
	DisplayName    string    `json:"display_name,omitempty"`
	IssuedAt       time.Time `json:"issued_at"`
	// identifies one particular challenge, so a deadline timer only resolves the challenge it was started for
	Seq uint64 `json:"seq"`
}

type Registry interface {
	// Inserts or overwrites the entry for p.MemberID.
	Put(p PendingVerification)
	// Non-destructive read.
	Get(memberID int64) (PendingVerification, bool)
	// Atomically reads and removes the entry. At most one concurrent caller gets ok=true for a given entry.
	Take(memberID int64) (PendingVerification, bool)
	// Same as Take, but only removes the entry if match returns true for it. match is called with the registry locked, and must not block.
	TakeIf(memberID int64, match func(PendingVerification) bool) (PendingVerification, bool)
	List() []PendingVerification
	Len() int
}

// In-process Registry. A single mutex guards the whole map, and is never held across anything but the map operation itself.
type MemRegistry struct {
	mu      sync.Mutex
	pending map[int64]PendingVerification
}

var _ Registry = (*MemRegistry)(nil)

func NewMemRegistry() *MemRegistry {
	return &MemRegistry{
		pending: make(map[int64]PendingVerification),
	}
}

func (r *MemRegistry) Put(p PendingVerification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[p.MemberID] = p
}

func (r *MemRegistry) Get(memberID int64) (PendingVerification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[memberID]
	return p, ok
}

func (r *MemRegistry) Take(memberID int64) (PendingVerification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[memberID]
	if ok {
		delete(r.pending, memberID)
	}
	return p, ok
}

func (r *MemRegistry) TakeIf(memberID int64, match func(PendingVerification) bool) (PendingVerification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[memberID]
	if !ok || !match(p) {
		return PendingVerification{}, false
	}
	delete(r.pending, memberID)
	return p, true
}

// Returns a copy of all pending entries, oldest first.
func (r *MemRegistry) List() []PendingVerification {
	r.mu.Lock()
	out := make([]PendingVerification, 0, len(r.pending))
	for _, p := range r.pending {
		out = append(out, p)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].MemberID < out[j].MemberID
		}
		return out[i].IssuedAt.Before(out[j].IssuedAt)
	})
	return out
}

func (r *MemRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
