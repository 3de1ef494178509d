package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiterPool lazily builds one token-bucket limiter per API key, so one
// noisy caller cannot exhaust the budget of the others.
type limiterPool struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	cfg SecConfig
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[string]*rate.Limiter)
	}
	if l, ok := p.m[key]; ok {
		return l
	}
	rps := p.cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	burst := p.cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	p.m[key] = l
	return l
}

// Allow reports whether the key may proceed under its per-second budget.
func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}
