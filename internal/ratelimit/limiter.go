// Package ratelimit limita requisições por chave (usuário ou IP).
// O Redis é a fonte principal; quando ele não está configurado ou falha,
// a contagem cai para um limitador em memória local ao processo.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/textocerto/TextoCerto-Back/internal/logs"
)

// Policy define a taxa sustentada e a rajada permitida
type Policy struct {
	RPM   int
	Burst int
}

func (p Policy) perSecond() float64 {
	if p.RPM <= 0 {
		return 1.0
	}
	return float64(p.RPM) / 60.0
}

func (p Policy) burst() int {
	if p.Burst <= 0 {
		return 1
	}
	return p.Burst
}

type Store interface {
	Allow(ctx context.Context, key string, policy Policy, cost int) (bool, error)
}

type Limiter struct {
	primary  Store
	fallback *MemoryStore

	mu         sync.Mutex
	degraded   bool
	lastWarned time.Time
}

// New cria um limitador; primary pode ser nil (somente memória)
func New(primary Store, fallback *MemoryStore) *Limiter {
	if fallback == nil {
		fallback = NewMemoryStore(3 * time.Minute)
	}
	return &Limiter{primary: primary, fallback: fallback}
}

func (l *Limiter) Allow(ctx context.Context, key string, policy Policy) bool {
	if l.primary != nil {
		allowed, err := l.primary.Allow(ctx, key, policy, 1)
		if err == nil {
			l.recovered()
			return allowed
		}
		l.warnDegraded(err)
	}

	allowed, _ := l.fallback.Allow(ctx, key, policy, 1)
	return allowed
}

// Degraded indica se a contagem está na memória: sem Redis configurado ou
// quando a última verificação precisou do fallback
func (l *Limiter) Degraded() bool {
	if l.primary == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.degraded
}

func (l *Limiter) warnDegraded(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.degraded = true
	if time.Since(l.lastWarned) < time.Minute {
		return
	}
	l.lastWarned = time.Now()
	logs.LogJSON("WARN", "Rate limiter falling back to memory", map[string]interface{}{
		"error": err.Error(),
	})
}

func (l *Limiter) recovered() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.degraded {
		l.degraded = false
		logs.LogJSON("INFO", "Rate limiter back on redis", nil)
	}
}
