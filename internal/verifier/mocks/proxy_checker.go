package mocks

import (
	"context"

	"github.com/JulianoL13/proxy-rotator/internal/verifier"
	"github.com/stretchr/testify/mock"
)

type ProxyChecker struct {
	mock.Mock
}

func NewProxyChecker(t interface {
	mock.TestingT
	Cleanup(func())
}) *ProxyChecker {
	m := &ProxyChecker{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ProxyChecker) Verify(ctx context.Context, p verifier.Verifiable) verifier.Result {
	args := m.Called(ctx, p)
	return args.Get(0).(verifier.Result)
}

var _ verifier.ProxyChecker = (*ProxyChecker)(nil)
