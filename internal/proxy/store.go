package proxy

import (
	"context"
	"time"
)

const (
	DefaultMinUptime = 0.95
	DefaultMaxAge    = 24 * time.Hour
)

// Store persists reliability statistics keyed by Address().
//
// UpsertMany overwrites every field of an existing record except the lifetime
// counters, which keep the larger of the stored and the incoming value, so
// repeating an upsert never inflates them. RecordOutcome and RecordOutcomes
// are the only ways to increment a counter. RecordOutcome fails with
// ErrNotFound for unknown addresses; RecordOutcomes skips them.
//
// Load returns records with Uptime() >= minUptime that were checked within
// maxAge. A maxAge <= 0 disables the age filter.
type Store interface {
	UpsertMany(ctx context.Context, proxies []*Proxy) error
	Load(ctx context.Context, minUptime float64, maxAge time.Duration) ([]*Proxy, error)
	RecordOutcome(ctx context.Context, address string, success bool) error
	RecordOutcomes(ctx context.Context, outcomes []Outcome) error
	Get(ctx context.Context, addresses []string) (map[string]*Proxy, error)
}

// Outcome is a number of verdicts to add to one stored record.
type Outcome struct {
	Address   string
	Successes int64
	Failures  int64
}

func (o Outcome) Empty() bool {
	return o.Successes == 0 && o.Failures == 0
}

// Eligible applies the Load quality gate in memory.
func Eligible(p *Proxy, minUptime float64, maxAge time.Duration, now time.Time) bool {
	if p.Uptime() < minUptime {
		return false
	}
	if maxAge > 0 && now.Sub(p.LastChecked) > maxAge {
		return false
	}
	return true
}
