package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

const shardCount = 16

type memoryEntry struct {
	result    entity.ProviderResult
	expiresAt time.Time
}

type memoryShard struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
}

// MemoryStore is a sharded in-memory Store with lazy expiry and a
// periodic sweep. It is the default backend for development and tests.
type MemoryStore struct {
	shards [shardCount]*memoryShard

	mu     sync.Mutex
	hits   int64
	misses int64

	stop chan struct{}
	once sync.Once
}

// Stats contains cache statistics
type Stats struct {
	Size    int     `json:"size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewMemoryStore creates a memory store and starts its sweeper
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{stop: make(chan struct{})}
	for i := range s.shards {
		s.shards[i] = &memoryShard{data: make(map[string]memoryEntry)}
	}
	go s.sweep()
	return s
}

func (s *MemoryStore) shard(key string) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

// Get returns a copy of the cached result and its remaining TTL
func (s *MemoryStore) Get(_ context.Context, provider, canonical string) (*entity.ProviderResult, time.Duration, bool) {
	key := provider + "\x00" + canonical
	sh := s.shard(key)

	sh.mu.RLock()
	entry, exists := sh.data[key]
	sh.mu.RUnlock()

	now := time.Now()
	if !exists || now.After(entry.expiresAt) {
		if exists {
			sh.mu.Lock()
			delete(sh.data, key)
			sh.mu.Unlock()
		}
		s.count(false)
		return nil, 0, false
	}

	s.count(true)
	result := entry.result
	return &result, entry.expiresAt.Sub(now), true
}

// Put stores a copy of the result for ttl
func (s *MemoryStore) Put(_ context.Context, provider, canonical string, res *entity.ProviderResult, ttl time.Duration) {
	if res == nil || ttl <= 0 {
		return
	}
	key := provider + "\x00" + canonical
	sh := s.shard(key)

	sh.mu.Lock()
	sh.data[key] = memoryEntry{result: *res, expiresAt: time.Now().Add(ttl)}
	sh.mu.Unlock()
}

// Close stops the sweeper
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

// Stats returns hit/miss statistics across all shards
func (s *MemoryStore) Stats() Stats {
	size := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		size += len(sh.data)
		sh.mu.RUnlock()
	}

	s.mu.Lock()
	hits, misses := s.hits, s.misses
	s.mu.Unlock()

	stats := Stats{Size: size, Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

func (s *MemoryStore) count(hit bool) {
	s.mu.Lock()
	if hit {
		s.hits++
	} else {
		s.misses++
	}
	s.mu.Unlock()
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := time.Now()
			for _, sh := range s.shards {
				sh.mu.Lock()
				for key, entry := range sh.data {
					if now.After(entry.expiresAt) {
						delete(sh.data, key)
					}
				}
				sh.mu.Unlock()
			}
		}
	}
}
