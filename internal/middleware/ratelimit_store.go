package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/charlesng35/catalogadmin/internal/cache"
)

// RateStore counts hits per key within a fixed window.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// MemoryRateStore keeps counters in process. Expired counters are swept lazily
// on every hundredth increment.
type MemoryRateStore struct {
	mu    sync.Mutex
	data  map[string]memoryCounter
	hits  int
	clock func() time.Time
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

// NewMemoryRateStore constructs an in-memory RateStore.
func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{data: make(map[string]memoryCounter), clock: time.Now}
}

func (s *MemoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits++
	if s.hits%100 == 0 {
		for k, counter := range s.data {
			if now.After(counter.windowEnd) {
				delete(s.data, k)
			}
		}
	}

	counter, ok := s.data[key]
	if !ok || now.After(counter.windowEnd) {
		counter = memoryCounter{windowEnd: now.Add(window)}
	}
	counter.count++
	s.data[key] = counter
	return counter.count, counter.windowEnd.Sub(now), nil
}

type cacheRateStore struct {
	store cache.Store
}

// NewCacheRateStore counts hits in a shared cache.Store (Redis or database).
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return &cacheRateStore{store: store}
}

func (s *cacheRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	count, ttl, err := s.store.IncrementWithTTL(ctx, "ratelimit:"+key, window)
	return int(count), ttl, err
}
