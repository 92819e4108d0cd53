package proxy

import "time"

type FilterOptions struct {
	Protocol   string
	Anonymity  string
	MaxLatency time.Duration
}

func (f FilterOptions) Matches(p *Proxy) bool {
	if f.Protocol != "" && string(p.Protocol) != f.Protocol {
		return false
	}
	if f.Anonymity != "" && string(p.Anonymity) != f.Anonymity {
		return false
	}
	if f.MaxLatency > 0 {
		latency, ok := p.Latency()
		if !ok || latency > f.MaxLatency {
			return false
		}
	}
	return true
}

func Filter(proxies []*Proxy, f FilterOptions) []*Proxy {
	result := make([]*Proxy, 0, len(proxies))
	for _, p := range proxies {
		if f.Matches(p) {
			result = append(result, p)
		}
	}
	return result
}
