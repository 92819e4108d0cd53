package mocks

import (
	"context"

	"github.com/JulianoL13/proxy-rotator/internal/proxy"
	"github.com/stretchr/testify/mock"
)

type ProxySource struct {
	mock.Mock
}

func NewProxySource(t interface {
	mock.TestingT
	Cleanup(func())
}) *ProxySource {
	m := &ProxySource{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ProxySource) Fetch(ctx context.Context) ([]proxy.ProxyDataInput, []error) {
	args := m.Called(ctx)
	var data []proxy.ProxyDataInput
	if v := args.Get(0); v != nil {
		data = v.([]proxy.ProxyDataInput)
	}
	var errs []error
	if v := args.Get(1); v != nil {
		errs = v.([]error)
	}
	return data, errs
}

// Candidate is a plain ProxyDataInput for tests.
type Candidate struct {
	Host        string
	PortNum     int
	Proto       string
	SourceName  string
	CountryName string
	Level       string
}

func (c Candidate) IP() string        { return c.Host }
func (c Candidate) Port() int         { return c.PortNum }
func (c Candidate) Protocol() string  { return c.Proto }
func (c Candidate) Source() string    { return c.SourceName }
func (c Candidate) Country() string   { return c.CountryName }
func (c Candidate) Anonymity() string { return c.Level }

var (
	_ proxy.ProxySource    = (*ProxySource)(nil)
	_ proxy.ProxyDataInput = Candidate{}
)
