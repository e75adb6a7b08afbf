package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	policy   Policy
	lastSeen time.Time
}

// MemoryStore mantém um rate.Limiter por chave
type MemoryStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		visitors: make(map[string]*visitor),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Allow(_ context.Context, key string, policy Policy, cost int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	v, ok := s.visitors[key]
	if !ok || v.policy != policy {
		v = &visitor{
			limiter: rate.NewLimiter(rate.Limit(policy.perSecond()), policy.burst()),
			policy:  policy,
		}
		s.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, cost), nil
}

// Cleanup remove chaves sem uso há mais que ttl e devolve quantas saíram
func (s *MemoryStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := s.now()
	for key, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.ttl {
			delete(s.visitors, key)
			removed++
		}
	}
	return removed
}

// RunCleanup roda Cleanup a cada minuto até ctx ser cancelado
func (s *MemoryStore) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}
