package mocks

import (
	"context"

	"github.com/JulianoL13/proxy-rotator/internal/proxy"
	"github.com/stretchr/testify/mock"
)

type BatchValidator struct {
	mock.Mock
}

func NewBatchValidator(t interface {
	mock.TestingT
	Cleanup(func())
}) *BatchValidator {
	m := &BatchValidator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *BatchValidator) ValidateBatch(ctx context.Context, proxies []*proxy.Proxy) []*proxy.Proxy {
	args := m.Called(ctx, proxies)
	if fn, ok := args.Get(0).(func([]*proxy.Proxy) []*proxy.Proxy); ok {
		return fn(proxies)
	}
	var out []*proxy.Proxy
	if v := args.Get(0); v != nil {
		out = v.([]*proxy.Proxy)
	}
	return out
}

var _ proxy.BatchValidator = (*BatchValidator)(nil)
