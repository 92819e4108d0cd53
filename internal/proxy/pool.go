package proxy

import "sync"

// Pool is the set of proxies believed usable. Membership only changes through
// Replace; the current selection shares the same lock so readers never see a
// selection from one generation next to members of another.
type Pool struct {
	mu         sync.RWMutex
	members    []*Proxy
	current    *Proxy
	generation uint64
}

func NewPool() *Pool {
	return &Pool{}
}

func (p *Pool) Replace(proxies []*Proxy) {
	seen := make(map[string]int, len(proxies))
	members := make([]*Proxy, 0, len(proxies))
	for _, px := range proxies {
		if px == nil {
			continue
		}
		c := px.Clone()
		if i, ok := seen[c.Address()]; ok {
			members[i] = c
			continue
		}
		seen[c.Address()] = len(members)
		members = append(members, c)
	}

	p.mu.Lock()
	p.members = members
	p.generation++
	p.mu.Unlock()
}

func (p *Pool) Snapshot() []*Proxy {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*Proxy, len(p.members))
	for i, px := range p.members {
		out[i] = px.Clone()
	}
	return out
}

func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members)
}

// Generation counts completed Replace calls.
func (p *Pool) Generation() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.generation
}

func (p *Pool) Current() (*Proxy, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.current == nil {
		return nil, false
	}
	return p.current.Clone(), true
}

// choose runs pick over the members under the write lock and stores the result
// as the current selection. A nil pick leaves the previous selection in place.
func (p *Pool) choose(pick func(members []*Proxy) *Proxy) (*Proxy, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	selected := pick(p.members)
	if selected == nil {
		return nil, false
	}
	p.current = selected
	return selected.Clone(), true
}
