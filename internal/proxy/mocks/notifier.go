package mocks

import (
	"context"

	"github.com/JulianoL13/proxy-rotator/internal/common/events"
	"github.com/JulianoL13/proxy-rotator/internal/proxy"
	"github.com/stretchr/testify/mock"
)

type Notifier struct {
	mock.Mock
}

func NewNotifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *Notifier {
	m := &Notifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Notifier) Notify(ctx context.Context, event events.PoolRefreshedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var _ proxy.Notifier = (*Notifier)(nil)
