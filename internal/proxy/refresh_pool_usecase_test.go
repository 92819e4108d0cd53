package proxy_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/common/events"
	logmocks "github.com/JulianoL13/proxy-rotator/internal/common/logs/mocks"
	"github.com/JulianoL13/proxy-rotator/internal/proxy"
	"github.com/JulianoL13/proxy-rotator/internal/proxy/memory"
	"github.com/JulianoL13/proxy-rotator/internal/proxy/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// passOnly marks the listed hosts as alive and everything else as dead.
func passOnly(latency time.Duration, hosts ...string) func([]*proxy.Proxy) []*proxy.Proxy {
	alive := make(map[string]bool)
	for _, h := range hosts {
		alive[h] = true
	}
	return func(ps []*proxy.Proxy) []*proxy.Proxy {
		var out []*proxy.Proxy
		for _, p := range ps {
			if alive[p.Host] {
				p.MarkSuccess(latency, proxy.Unknown)
				out = append(out, p)
			} else {
				p.MarkFailure()
			}
		}
		return out
	}
}

type sleepRecorder struct {
	mu        sync.Mutex
	durations []time.Duration
	cancel    context.CancelFunc
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.durations = append(s.durations, d)
	s.mu.Unlock()
	s.cancel()
	return context.Canceled
}

func newLoop(source proxy.ProxySource, validator proxy.BatchValidator, store proxy.Store, pool *proxy.Pool) (*proxy.RefreshPoolUseCase, *proxy.Rotator) {
	rotator := proxy.NewRotator(pool, 5*time.Second, logmocks.LoggerMock{})
	uc := proxy.NewRefreshPoolUseCase(source, validator, store, pool, rotator, proxy.DefaultRefreshConfig(), logmocks.LoggerMock{})
	return uc, rotator
}

func TestRefreshPoolUseCase_RunCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("swaps pool and persists every probed candidate", func(t *testing.T) {
		source := mocks.NewProxySource(t)
		validator := mocks.NewBatchValidator(t)
		store := memory.NewRepository()
		pool := proxy.NewPool()

		source.On("Fetch", mock.Anything).Return([]proxy.ProxyDataInput{
			mocks.Candidate{Host: "1.1.1.1", PortNum: 8080, Proto: "http", SourceName: "s1", CountryName: "US", Level: "elite proxy"},
			mocks.Candidate{Host: "2.2.2.2", PortNum: 3128, Proto: "https", SourceName: "s1"},
			mocks.Candidate{Host: "1.1.1.1", PortNum: 8080, Proto: "http", SourceName: "s2"},
			mocks.Candidate{Host: "3.3.3.3", PortNum: 0, Proto: "http", SourceName: "s2"},
			mocks.Candidate{Host: "4.4.4.4", PortNum: 1080, Proto: "socks5", SourceName: "s2"},
		}, []error{errors.New("one source down")})

		validator.On("ValidateBatch", mock.Anything, mock.MatchedBy(func(ps []*proxy.Proxy) bool {
			return len(ps) == 2
		})).Return(passOnly(200*time.Millisecond, "1.1.1.1"))

		uc, rotator := newLoop(source, validator, store, pool)

		require.NoError(t, uc.RunCycle(ctx))

		snap := pool.Snapshot()
		require.Len(t, snap, 1)
		assert.Equal(t, "1.1.1.1:8080", snap[0].Address())
		assert.Equal(t, "s2", snap[0].Source)

		current, ok := rotator.Current()
		require.True(t, ok, "first successful cycle selects a proxy")
		assert.Equal(t, "1.1.1.1:8080", current.Address())

		stored, err := store.Load(ctx, 0, 0)
		require.NoError(t, err)
		require.Len(t, stored, 2)
		for _, p := range stored {
			assert.GreaterOrEqual(t, p.SuccessCount+p.FailCount, int64(1))
		}
	})

	t.Run("seeds counters from history", func(t *testing.T) {
		source := mocks.NewProxySource(t)
		validator := mocks.NewBatchValidator(t)
		store := memory.NewRepository()
		pool := proxy.NewPool()

		old := proxy.NewProxy("1.1.1.1", 8080, proxy.HTTP, "s1")
		old.SuccessCount = 5
		old.FailCount = 1
		require.NoError(t, store.UpsertMany(ctx, []*proxy.Proxy{old}))

		source.On("Fetch", mock.Anything).Return([]proxy.ProxyDataInput{
			mocks.Candidate{Host: "1.1.1.1", PortNum: 8080, Proto: "http", SourceName: "s1"},
		}, nil)
		validator.On("ValidateBatch", mock.Anything, mock.Anything).Return(passOnly(time.Second, "1.1.1.1"))

		uc, _ := newLoop(source, validator, store, pool)
		require.NoError(t, uc.RunCycle(ctx))

		got, err := store.Get(ctx, []string{"1.1.1.1:8080"})
		require.NoError(t, err)
		assert.Equal(t, int64(6), got["1.1.1.1:8080"].SuccessCount)
		assert.Equal(t, int64(1), got["1.1.1.1:8080"].FailCount)
	})

	t.Run("outcome reported during validation is kept", func(t *testing.T) {
		source := mocks.NewProxySource(t)
		validator := mocks.NewBatchValidator(t)
		store := memory.NewRepository()
		pool := proxy.NewPool()

		old := proxy.NewProxy("1.1.1.1", 8080, proxy.HTTP, "s1")
		old.SuccessCount = 10
		require.NoError(t, store.UpsertMany(ctx, []*proxy.Proxy{old}))

		source.On("Fetch", mock.Anything).Return([]proxy.ProxyDataInput{
			mocks.Candidate{Host: "1.1.1.1", PortNum: 8080, Proto: "http", SourceName: "s1"},
			mocks.Candidate{Host: "2.2.2.2", PortNum: 8080, Proto: "http", SourceName: "s1"},
		}, nil)
		validator.On("ValidateBatch", mock.Anything, mock.Anything).Return(func(ps []*proxy.Proxy) []*proxy.Proxy {
			require.NoError(t, store.RecordOutcome(ctx, "1.1.1.1:8080", true))
			return passOnly(time.Second, "1.1.1.1")(ps)
		})

		uc, _ := newLoop(source, validator, store, pool)
		require.NoError(t, uc.RunCycle(ctx))

		got, err := store.Get(ctx, []string{"1.1.1.1:8080", "2.2.2.2:8080"})
		require.NoError(t, err)
		assert.Equal(t, int64(12), got["1.1.1.1:8080"].SuccessCount)
		assert.Equal(t, int64(0), got["1.1.1.1:8080"].FailCount)
		assert.Equal(t, int64(0), got["2.2.2.2:8080"].SuccessCount)
		assert.Equal(t, int64(1), got["2.2.2.2:8080"].FailCount)
	})

	t.Run("persists pre-cycle counters and verdict increments", func(t *testing.T) {
		source := mocks.NewProxySource(t)
		validator := mocks.NewBatchValidator(t)
		store := mocks.NewStore(t)
		pool := proxy.NewPool()

		history := proxy.NewProxy("1.1.1.1", 8080, proxy.HTTP, "s1")
		history.SuccessCount = 4
		history.FailCount = 2

		source.On("Fetch", mock.Anything).Return([]proxy.ProxyDataInput{
			mocks.Candidate{Host: "1.1.1.1", PortNum: 8080, Proto: "http"},
		}, nil)
		store.On("Get", mock.Anything, []string{"1.1.1.1:8080"}).
			Return(map[string]*proxy.Proxy{"1.1.1.1:8080": history}, nil)
		validator.On("ValidateBatch", mock.Anything, mock.Anything).Return(passOnly(time.Second, "1.1.1.1"))
		store.On("UpsertMany", mock.Anything, mock.MatchedBy(func(ps []*proxy.Proxy) bool {
			return len(ps) == 1 && ps[0].SuccessCount == 4 && ps[0].FailCount == 2 && ps[0].ResponseTime != nil
		})).Return(nil)
		store.On("RecordOutcomes", mock.Anything, []proxy.Outcome{
			{Address: "1.1.1.1:8080", Successes: 1},
		}).Return(errors.New("redis down"))

		uc, _ := newLoop(source, validator, store, pool)
		require.NoError(t, uc.RunCycle(ctx))

		snap := pool.Snapshot()
		require.Len(t, snap, 1)
		assert.Equal(t, int64(5), snap[0].SuccessCount)
	})

	t.Run("no candidates leaves pool untouched", func(t *testing.T) {
		source := mocks.NewProxySource(t)
		validator := mocks.NewBatchValidator(t)
		store := mocks.NewStore(t)
		pool := proxy.NewPool()
		pool.Replace([]*proxy.Proxy{measured("9.9.9.9", time.Second)})

		sourceErr := errors.New("source down")
		source.On("Fetch", mock.Anything).Return(nil, []error{sourceErr, errors.New("other down")})

		uc, _ := newLoop(source, validator, store, pool)
		err := uc.RunCycle(ctx)

		assert.ErrorIs(t, err, proxy.ErrNoCandidates)
		assert.ErrorIs(t, err, sourceErr)
		assert.Equal(t, 1, pool.Len())
		validator.AssertNotCalled(t, "ValidateBatch", mock.Anything, mock.Anything)
	})

	t.Run("persistence failure keeps the new pool", func(t *testing.T) {
		source := mocks.NewProxySource(t)
		validator := mocks.NewBatchValidator(t)
		store := mocks.NewStore(t)
		notifier := mocks.NewNotifier(t)
		pool := proxy.NewPool()

		source.On("Fetch", mock.Anything).Return([]proxy.ProxyDataInput{
			mocks.Candidate{Host: "1.1.1.1", PortNum: 8080, Proto: "http"},
		}, nil)
		store.On("Get", mock.Anything, []string{"1.1.1.1:8080"}).Return(nil, errors.New("redis down"))
		validator.On("ValidateBatch", mock.Anything, mock.Anything).Return(passOnly(time.Second, "1.1.1.1"))
		store.On("UpsertMany", mock.Anything, mock.Anything).Return(errors.New("redis down"))
		notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e events.PoolRefreshedEvent) bool {
			return e.Candidates == 1 && e.Alive == 1 && !e.Persisted && e.CycleID != ""
		})).Return(nil)

		uc, _ := newLoop(source, validator, store, pool)
		uc.WithNotifier(notifier)

		require.NoError(t, uc.RunCycle(ctx))
		assert.Equal(t, 1, pool.Len())
	})

	t.Run("notifier errors are not fatal", func(t *testing.T) {
		source := mocks.NewProxySource(t)
		validator := mocks.NewBatchValidator(t)
		notifier := mocks.NewNotifier(t)
		pool := proxy.NewPool()

		source.On("Fetch", mock.Anything).Return([]proxy.ProxyDataInput{
			mocks.Candidate{Host: "1.1.1.1", PortNum: 8080, Proto: "http"},
		}, nil)
		validator.On("ValidateBatch", mock.Anything, mock.Anything).Return(passOnly(time.Second))
		notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("stream down"))

		uc, rotator := newLoop(source, validator, memory.NewRepository(), pool)
		uc.WithNotifier(notifier)

		require.NoError(t, uc.RunCycle(ctx))
		assert.Equal(t, 0, pool.Len())
		_, ok := rotator.Current()
		assert.False(t, ok)
	})

	t.Run("panic is reported as an error", func(t *testing.T) {
		source := mocks.NewProxySource(t)
		validator := mocks.NewBatchValidator(t)
		pool := proxy.NewPool()
		pool.Replace([]*proxy.Proxy{measured("9.9.9.9", time.Second)})

		source.On("Fetch", mock.Anything).Return([]proxy.ProxyDataInput{
			mocks.Candidate{Host: "1.1.1.1", PortNum: 8080, Proto: "http"},
		}, nil)
		validator.On("ValidateBatch", mock.Anything, mock.Anything).Return(func([]*proxy.Proxy) []*proxy.Proxy {
			panic("boom")
		})

		uc, _ := newLoop(source, validator, memory.NewRepository(), pool)

		err := uc.RunCycle(ctx)
		assert.ErrorIs(t, err, proxy.ErrCyclePanicked)
		assert.Equal(t, "9.9.9.9:8080", pool.Snapshot()[0].Address())
	})
}

func TestRefreshPoolUseCase_Execute(t *testing.T) {
	t.Run("backs off after a failed cycle", func(t *testing.T) {
		source := mocks.NewProxySource(t)
		validator := mocks.NewBatchValidator(t)
		store := mocks.NewStore(t)
		pool := proxy.NewPool()
		before := []*proxy.Proxy{measured("9.9.9.9", time.Second)}
		pool.Replace(before)

		store.On("Load", mock.Anything, proxy.DefaultMinUptime, proxy.DefaultMaxAge).Return(nil, nil)
		source.On("Fetch", mock.Anything).Return(nil, []error{errors.New("a"), errors.New("b")})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		recorder := &sleepRecorder{cancel: cancel}

		uc, _ := newLoop(source, validator, store, pool)
		uc.WithSleep(recorder.sleep)

		err := uc.Execute(ctx)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []time.Duration{time.Minute}, recorder.durations)
		assert.Equal(t, before[0].Address(), pool.Snapshot()[0].Address())
		assert.Equal(t, proxy.StateIdle, uc.State())
	})

	t.Run("sleeps the full interval after a good cycle", func(t *testing.T) {
		source := mocks.NewProxySource(t)
		validator := mocks.NewBatchValidator(t)
		pool := proxy.NewPool()

		source.On("Fetch", mock.Anything).Return([]proxy.ProxyDataInput{
			mocks.Candidate{Host: "1.1.1.1", PortNum: 8080, Proto: "http"},
		}, nil)
		validator.On("ValidateBatch", mock.Anything, mock.Anything).Return(passOnly(time.Second, "1.1.1.1"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		recorder := &sleepRecorder{cancel: cancel}

		uc, _ := newLoop(source, validator, memory.NewRepository(), pool)
		uc.WithSleep(recorder.sleep)

		err := uc.Execute(ctx)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []time.Duration{time.Hour}, recorder.durations)
		assert.Equal(t, 1, pool.Len())
	})

	t.Run("warms the pool from the store", func(t *testing.T) {
		source := mocks.NewProxySource(t)
		validator := mocks.NewBatchValidator(t)
		store := mocks.NewStore(t)
		pool := proxy.NewPool()

		cached := measured("5.5.5.5", time.Second)
		store.On("Load", mock.Anything, proxy.DefaultMinUptime, proxy.DefaultMaxAge).Return([]*proxy.Proxy{cached}, nil)
		source.On("Fetch", mock.Anything).Return(nil, []error{errors.New("offline")})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		recorder := &sleepRecorder{cancel: cancel}

		uc, rotator := newLoop(source, validator, store, pool)
		uc.WithSleep(recorder.sleep)

		_ = uc.Execute(ctx)

		current, ok := rotator.Current()
		require.True(t, ok)
		assert.Equal(t, "5.5.5.5:8080", current.Address())
		assert.Equal(t, 1, pool.Len())
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "fetching", proxy.StateFetching.String())
	assert.Equal(t, "sleeping", proxy.StateSleeping.String())
	assert.Equal(t, "state(42)", proxy.State(42).String())
}
