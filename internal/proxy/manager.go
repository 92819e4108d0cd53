package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JulianoL13/proxy-rotator/internal/common/logs"
)

// Manager is the caller-facing side of the engine.
type Manager struct {
	loop    *RefreshPoolUseCase
	rotator *Rotator
	pool    *Pool
	store   Store
	logger  logs.Logger

	once sync.Once
	done chan struct{}
}

func NewManager(loop *RefreshPoolUseCase, rotator *Rotator, pool *Pool, store Store, logger logs.Logger) *Manager {
	return &Manager{
		loop:    loop,
		rotator: rotator,
		pool:    pool,
		store:   store,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start launches the refresh loop in the background. Calls after the first
// are no-ops.
func (m *Manager) Start(ctx context.Context) {
	m.once.Do(func() {
		m.logger.Info("starting proxy manager")
		go func() {
			defer close(m.done)
			if err := m.loop.Execute(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error("refresh loop exited", "error", err)
			}
		}()
	})
}

// Done is closed once a started refresh loop has returned.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

func (m *Manager) Current() (*Proxy, bool) {
	return m.rotator.Current()
}

func (m *Manager) Rotate() (*Proxy, bool) {
	return m.rotator.Select()
}

func (m *Manager) Snapshot(filter FilterOptions) []*Proxy {
	return Filter(m.pool.Snapshot(), filter)
}

func (m *Manager) PoolSize() int {
	return m.pool.Len()
}

func (m *Manager) State() State {
	return m.loop.State()
}

// Report lets a caller feed back whether a request through address worked.
func (m *Manager) Report(ctx context.Context, address string, success bool) error {
	if err := m.store.RecordOutcome(ctx, address, success); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	m.logger.Debug("recorded outcome", "address", address, "success", success)
	return nil
}
