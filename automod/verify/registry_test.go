package verify

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemRegistryBasics(t *testing.T) {
	assert := assert.New(t)

	r := NewMemRegistry()
	_, ok := r.Get(111)
	assert.False(ok)
	_, ok = r.Take(111)
	assert.False(ok)

	p := PendingVerification{MemberID: 111, ExpectedAnswer: 7, OriginChat: -100}
	r.Put(p)
	assert.Equal(1, r.Len())

	got, ok := r.Get(111)
	assert.True(ok)
	assert.Equal(p, got)

	// reads are non-destructive
	_, ok = r.Get(111)
	assert.True(ok)

	got, ok = r.Take(111)
	assert.True(ok)
	assert.Equal(p, got)
	assert.Equal(0, r.Len())

	_, ok = r.Take(111)
	assert.False(ok)
}

func TestMemRegistryOverwrite(t *testing.T) {
	assert := assert.New(t)

	r := NewMemRegistry()
	r.Put(PendingVerification{MemberID: 1, ExpectedAnswer: 3, OriginChat: -1})
	r.Put(PendingVerification{MemberID: 1, ExpectedAnswer: 9, OriginChat: -2})
	assert.Equal(1, r.Len())

	got, ok := r.Get(1)
	assert.True(ok)
	assert.Equal(9, got.ExpectedAnswer)
	assert.Equal(int64(-2), got.OriginChat)
}

func TestMemRegistryList(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	r := NewMemRegistry()
	r.Put(PendingVerification{MemberID: 3, IssuedAt: now.Add(2 * time.Second)})
	r.Put(PendingVerification{MemberID: 1, IssuedAt: now})
	r.Put(PendingVerification{MemberID: 2, IssuedAt: now})

	l := r.List()
	assert.Equal(3, len(l))
	assert.Equal(int64(1), l[0].MemberID)
	assert.Equal(int64(2), l[1].MemberID)
	assert.Equal(int64(3), l[2].MemberID)

	// snapshot is a copy
	l[0].ExpectedAnswer = 42
	got, _ := r.Get(1)
	assert.Equal(0, got.ExpectedAnswer)
}

func TestMemRegistryTakeRace(t *testing.T) {
	assert := assert.New(t)

	r := NewMemRegistry()
	for round := 0; round < 200; round++ {
		r.Put(PendingVerification{MemberID: 5, ExpectedAnswer: 7})

		var wins atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if _, ok := r.Take(5); ok {
					wins.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()
		assert.Equal(int32(1), wins.Load())
	}
}

func TestMemRegistryTakeIf(t *testing.T) {
	assert := assert.New(t)

	r := NewMemRegistry()
	r.Put(PendingVerification{MemberID: 9, ExpectedAnswer: 4, Seq: 1})
	// member re-joined; newer challenge replaces the old one
	r.Put(PendingVerification{MemberID: 9, ExpectedAnswer: 11, Seq: 2})

	isSeq := func(seq uint64) func(PendingVerification) bool {
		return func(p PendingVerification) bool { return p.Seq == seq }
	}

	_, ok := r.TakeIf(9, isSeq(1))
	assert.False(ok)
	assert.Equal(1, r.Len())

	got, ok := r.TakeIf(9, isSeq(2))
	assert.True(ok)
	assert.Equal(11, got.ExpectedAnswer)
	assert.Equal(0, r.Len())

	_, ok = r.TakeIf(9, isSeq(2))
	assert.False(ok)
}
