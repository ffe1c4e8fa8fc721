package countstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestPeriodBucket(t *testing.T) {
	assert := assert.New(t)

	now := time.Date(2024, 3, 9, 17, 45, 0, 0, time.UTC)
	assert.Equal("timeout/-100", periodBucket("timeout", "-100", PeriodTotal, now))
	assert.Equal("timeout/-100/2024-03-09", periodBucket("timeout", "-100", PeriodDay, now))
	assert.Equal("timeout/-100/2024-03-09T17", periodBucket("timeout", "-100", PeriodHour, now))
	assert.Equal("timeout/-100", periodBucket("timeout", "-100", "fortnight", now))
}

func TestMemCountStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()
	c, err := cs.GetCount(ctx, "join", "-100", PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)

	for i := 0; i < 5; i++ {
		assert.NoError(cs.Increment(ctx, "join", "-100"))
	}
	for _, p := range Periods {
		c, err = cs.GetCount(ctx, "join", "-100", p)
		assert.NoError(err)
		assert.Equal(5, c)
	}

	c, err = cs.GetCount(ctx, "join", "-200", PeriodDay)
	assert.NoError(err)
	assert.Equal(0, c)
}

func TestMemCountStoreRollover(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	cs := NewMemCountStore()
	cs.Now = func() time.Time { return now }

	assert.NoError(cs.Increment(ctx, "kick", "-1"))
	now = now.Add(time.Hour)
	assert.NoError(cs.Increment(ctx, "kick", "-1"))

	c, _ := cs.GetCount(ctx, "kick", "-1", PeriodTotal)
	assert.Equal(2, c)
	c, _ = cs.GetCount(ctx, "kick", "-1", PeriodDay)
	assert.Equal(1, c)
	c, _ = cs.GetCount(ctx, "kick", "-1", PeriodHour)
	assert.Equal(1, c)
}

func TestMemCountStoreDistinct(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()
	assert.NoError(cs.IncrementDistinct(ctx, "joiners", "-100", "1"))
	assert.NoError(cs.IncrementDistinct(ctx, "joiners", "-100", "2"))
	assert.NoError(cs.IncrementDistinct(ctx, "joiners", "-100", "1"))

	c, err := cs.GetCountDistinct(ctx, "joiners", "-100", PeriodTotal)
	assert.NoError(err)
	assert.Equal(2, c)
	c, err = cs.GetCountDistinct(ctx, "joiners", "-999", PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)
}

func TestMemCountStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cs.Increment(ctx, "accept", "-100")
		}()
	}
	wg.Wait()
	c, _ := cs.GetCount(ctx, "accept", "-100", PeriodTotal)
	assert.Equal(50, c)
}

func TestRedisCountStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	opt, err := redis.ParseURL("redis://localhost:6379/0")
	assert.NoError(err)
	cs, err := NewRedisCountStore(ctx, redis.NewClient(opt))
	if err != nil {
		t.Fail()
	}

	before, err := cs.GetCount(ctx, "test-join", "-100", PeriodTotal)
	assert.NoError(err)
	assert.NoError(cs.Increment(ctx, "test-join", "-100"))
	after, err := cs.GetCount(ctx, "test-join", "-100", PeriodTotal)
	assert.NoError(err)
	assert.Equal(before+1, after)
}
