package mocks

import (
	"context"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/proxy"
	"github.com/stretchr/testify/mock"
)

type Store struct {
	mock.Mock
}

func NewStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *Store {
	m := &Store{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Store) UpsertMany(ctx context.Context, proxies []*proxy.Proxy) error {
	args := m.Called(ctx, proxies)
	return args.Error(0)
}

func (m *Store) Load(ctx context.Context, minUptime float64, maxAge time.Duration) ([]*proxy.Proxy, error) {
	args := m.Called(ctx, minUptime, maxAge)
	var out []*proxy.Proxy
	if v := args.Get(0); v != nil {
		out = v.([]*proxy.Proxy)
	}
	return out, args.Error(1)
}

func (m *Store) RecordOutcome(ctx context.Context, address string, success bool) error {
	args := m.Called(ctx, address, success)
	return args.Error(0)
}

func (m *Store) RecordOutcomes(ctx context.Context, outcomes []proxy.Outcome) error {
	args := m.Called(ctx, outcomes)
	return args.Error(0)
}

func (m *Store) Get(ctx context.Context, addresses []string) (map[string]*proxy.Proxy, error) {
	args := m.Called(ctx, addresses)
	var out map[string]*proxy.Proxy
	if v := args.Get(0); v != nil {
		out = v.(map[string]*proxy.Proxy)
	}
	return out, args.Error(1)
}

var _ proxy.Store = (*Store)(nil)
