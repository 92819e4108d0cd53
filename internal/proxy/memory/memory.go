package memory

import (
	"context"
	"sync"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/proxy"
)

// Repository keeps reliability records in process memory. It loses everything
// on restart and is meant for tests and local runs without redis or postgres.
type Repository struct {
	mu      sync.Mutex
	records map[string]*proxy.Proxy
	now     func() time.Time
}

func NewRepository() *Repository {
	return &Repository{
		records: make(map[string]*proxy.Proxy),
		now:     time.Now,
	}
}

func (r *Repository) UpsertMany(ctx context.Context, proxies []*proxy.Proxy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range proxies {
		next := p.Clone()
		if prev, ok := r.records[p.Address()]; ok {
			next.SuccessCount = max(prev.SuccessCount, next.SuccessCount)
			next.FailCount = max(prev.FailCount, next.FailCount)
		}
		r.records[p.Address()] = next
	}
	return nil
}

func (r *Repository) Load(ctx context.Context, minUptime float64, maxAge time.Duration) ([]*proxy.Proxy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	out := make([]*proxy.Proxy, 0, len(r.records))
	for _, p := range r.records {
		if proxy.Eligible(p, minUptime, maxAge, now) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (r *Repository) RecordOutcome(ctx context.Context, address string, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.records[address]
	if !ok {
		return proxy.ErrNotFound
	}
	if success {
		p.SuccessCount++
	} else {
		p.FailCount++
	}
	return nil
}

func (r *Repository) RecordOutcomes(ctx context.Context, outcomes []proxy.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range outcomes {
		if p, ok := r.records[o.Address]; ok {
			p.SuccessCount += o.Successes
			p.FailCount += o.Failures
		}
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, addresses []string) (map[string]*proxy.Proxy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]*proxy.Proxy, len(addresses))
	for _, addr := range addresses {
		if p, ok := r.records[addr]; ok {
			out[addr] = p.Clone()
		}
	}
	return out, nil
}

var _ proxy.Store = (*Repository)(nil)
