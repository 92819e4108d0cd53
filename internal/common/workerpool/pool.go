package workerpool

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"
)

// Pool runs at most Workers() jobs at once. Submit blocks while every worker
// is busy.
type Pool struct {
	pool *ants.Pool
}

func New(size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid pool size %d", size)
	}

	p, err := ants.NewPool(size, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &Pool{pool: p}, nil
}

// Submit queues job. An accepted job always runs, even if ctx is done by the
// time a worker picks it up; the job is expected to check ctx itself.
func (p *Pool) Submit(ctx context.Context, job func(ctx context.Context)) error {
	return p.pool.Submit(func() {
		job(ctx)
	})
}

func (p *Pool) Stop() {
	p.pool.Release()
}

func (p *Pool) Workers() int {
	return p.pool.Cap()
}
