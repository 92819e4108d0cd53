package verifier_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/common/logs/mocks"
	"github.com/JulianoL13/proxy-rotator/internal/common/workerpool"
	"github.com/JulianoL13/proxy-rotator/internal/verifier"
	vmocks "github.com/JulianoL13/proxy-rotator/internal/verifier/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubProxy struct {
	addr string

	mu        sync.Mutex
	successes int
	failures  int
	latency   time.Duration
}

func (s *stubProxy) Address() string { return s.addr }
func (s *stubProxy) URL() *url.URL   { return &url.URL{Scheme: "http", Host: s.addr} }

func (s *stubProxy) MarkSuccess(latency time.Duration, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes++
	s.latency = latency
}

func (s *stubProxy) MarkFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
}

type checkerFunc func(ctx context.Context, p verifier.Verifiable) verifier.Result

func (f checkerFunc) Verify(ctx context.Context, p verifier.Verifiable) verifier.Result {
	return f(ctx, p)
}

type rejectingExecutor struct{}

func (rejectingExecutor) Submit(context.Context, func(context.Context)) error {
	return errors.New("pool closed")
}

func newPool(t *testing.T, size int) *workerpool.Pool {
	t.Helper()
	pool, err := workerpool.New(size)
	require.NoError(t, err)
	t.Cleanup(pool.Stop)
	return pool
}

func same(want *vmocks.Verifiable) any {
	return mock.MatchedBy(func(got *vmocks.Verifiable) bool { return got == want })
}

func TestValidateBatchUseCase_Execute(t *testing.T) {
	checker := vmocks.NewProxyChecker(t)
	uc := verifier.NewValidateBatchUseCase(checker, newPool(t, 2), &mocks.LoggerMock{})

	proxy1 := vmocks.NewVerifiable(t)
	proxy1.On("Address").Return("1.1.1.1:8080").Maybe()
	proxy1.On("MarkSuccess", 100*time.Millisecond, verifier.Elite).Return().Once()

	proxy2 := vmocks.NewVerifiable(t)
	proxy2.On("Address").Return("2.2.2.2:8080").Maybe()
	proxy2.On("MarkFailure").Return().Once()

	proxy3 := vmocks.NewVerifiable(t)
	proxy3.On("Address").Return("3.3.3.3:8080").Maybe()
	proxy3.On("MarkSuccess", 100*time.Millisecond, verifier.Elite).Return().Once()

	ok := verifier.Result{Success: true, Latency: 100 * time.Millisecond, Anonymity: verifier.Elite}
	fail := verifier.Result{Error: assert.AnError}

	checker.On("Verify", mock.Anything, same(proxy1)).Return(ok)
	checker.On("Verify", mock.Anything, same(proxy2)).Return(fail)
	checker.On("Verify", mock.Anything, same(proxy3)).Return(ok)

	passed := uc.Execute(context.Background(), []verifier.Verifiable{proxy1, proxy2, proxy3})

	assert.ElementsMatch(t, []verifier.Verifiable{proxy1, proxy3}, passed)
}

func TestValidateBatchUseCase_RespectsConcurrencyCap(t *testing.T) {
	var inFlight, peak atomic.Int32
	checker := checkerFunc(func(ctx context.Context, p verifier.Verifiable) verifier.Result {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return verifier.Result{Success: true, Latency: time.Millisecond}
	})

	uc := verifier.NewValidateBatchUseCase(checker, newPool(t, 3), &mocks.LoggerMock{})

	proxies := make([]verifier.Verifiable, 0, 30)
	for i := 0; i < 30; i++ {
		proxies = append(proxies, &stubProxy{addr: fmt.Sprintf("10.0.0.%d:8080", i)})
	}

	passed := uc.Execute(context.Background(), proxies)

	assert.Len(t, passed, 30)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestValidateBatchUseCase_PanicCountsAsFailure(t *testing.T) {
	bad := &stubProxy{addr: "10.0.0.1:8080"}
	good := &stubProxy{addr: "10.0.0.2:8080"}

	checker := checkerFunc(func(ctx context.Context, p verifier.Verifiable) verifier.Result {
		if p.Address() == bad.addr {
			panic("boom")
		}
		return verifier.Result{Success: true, Latency: 50 * time.Millisecond, Anonymity: verifier.Anonymous}
	})

	uc := verifier.NewValidateBatchUseCase(checker, newPool(t, 2), &mocks.LoggerMock{})
	passed := uc.Execute(context.Background(), []verifier.Verifiable{bad, good})

	require.Len(t, passed, 1)
	assert.Same(t, good, passed[0])
	assert.Equal(t, 1, bad.failures)
	assert.Equal(t, 0, bad.successes)
	assert.Equal(t, 1, good.successes)
	assert.Equal(t, 50*time.Millisecond, good.latency)
}

func TestValidateBatchUseCase_DrainsAfterCancellation(t *testing.T) {
	var probed atomic.Int32
	checker := checkerFunc(func(ctx context.Context, p verifier.Verifiable) verifier.Result {
		probed.Add(1)
		assert.NoError(t, ctx.Err())
		return verifier.Result{Success: true, Latency: time.Millisecond}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	uc := verifier.NewValidateBatchUseCase(checker, newPool(t, 2), &mocks.LoggerMock{})
	proxies := []verifier.Verifiable{
		&stubProxy{addr: "10.0.0.1:8080"},
		&stubProxy{addr: "10.0.0.2:8080"},
		&stubProxy{addr: "10.0.0.3:8080"},
	}

	passed := uc.Execute(ctx, proxies)

	assert.Len(t, passed, 3)
	assert.Equal(t, int32(3), probed.Load())
}

func TestValidateBatchUseCase_RejectedSubmitMarksFailure(t *testing.T) {
	checker := vmocks.NewProxyChecker(t)
	uc := verifier.NewValidateBatchUseCase(checker, rejectingExecutor{}, &mocks.LoggerMock{})

	p := &stubProxy{addr: "10.0.0.1:8080"}
	passed := uc.Execute(context.Background(), []verifier.Verifiable{p})

	assert.Empty(t, passed)
	assert.Equal(t, 1, p.failures)
	checker.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestValidateBatchUseCase_EmptyBatch(t *testing.T) {
	uc := verifier.NewValidateBatchUseCase(vmocks.NewProxyChecker(t), newPool(t, 1), &mocks.LoggerMock{})
	assert.Empty(t, uc.Execute(context.Background(), nil))
}
