package mocks

import (
	"net/url"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/verifier"
	"github.com/stretchr/testify/mock"
)

type Verifiable struct {
	mock.Mock
}

func NewVerifiable(t interface {
	mock.TestingT
	Cleanup(func())
}) *Verifiable {
	m := &Verifiable{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Verifiable) Address() string {
	return m.Called().String(0)
}

func (m *Verifiable) URL() *url.URL {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.(*url.URL)
	}
	return nil
}

func (m *Verifiable) MarkSuccess(latency time.Duration, anonymity string) {
	m.Called(latency, anonymity)
}

func (m *Verifiable) MarkFailure() {
	m.Called()
}

var _ verifier.Verifiable = (*Verifiable)(nil)
