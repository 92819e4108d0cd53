package proxy

import (
	"math/rand"
	"time"
)

const DefaultFreshnessThreshold = 5 * time.Second

// Rotator picks uniformly at random among pool members whose last measured
// response time is below the threshold. Members that were never measured are
// not eligible.
type Rotator struct {
	pool      *Pool
	threshold time.Duration
	logger    RotatorLogger
}

type RotatorLogger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

func NewRotator(pool *Pool, threshold time.Duration, logger RotatorLogger) *Rotator {
	if threshold <= 0 {
		threshold = DefaultFreshnessThreshold
	}
	return &Rotator{
		pool:      pool,
		threshold: threshold,
		logger:    logger,
	}
}

func (r *Rotator) Eligible(p *Proxy) bool {
	latency, ok := p.Latency()
	return ok && latency < r.threshold
}

func (r *Rotator) Select() (*Proxy, bool) {
	selected, ok := r.pool.choose(func(members []*Proxy) *Proxy {
		fast := make([]*Proxy, 0, len(members))
		for _, p := range members {
			if r.Eligible(p) {
				fast = append(fast, p)
			}
		}
		if len(fast) == 0 {
			return nil
		}
		return fast[rand.Intn(len(fast))]
	})

	if !ok {
		r.logger.Warn("no eligible proxies to rotate to", "threshold", r.threshold)
		return nil, false
	}

	r.logger.Debug("rotated proxy", "address", selected.Address())
	return selected, true
}

func (r *Rotator) Current() (*Proxy, bool) {
	return r.pool.Current()
}
