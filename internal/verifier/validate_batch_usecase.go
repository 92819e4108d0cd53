package verifier

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

type ProxyChecker interface {
	Verify(ctx context.Context, p Verifiable) Result
}

// TaskExecutor bounds how many jobs run at once. Submit blocks while it is
// saturated.
type TaskExecutor interface {
	Submit(ctx context.Context, job func(ctx context.Context)) error
}

type ValidateBatchUseCase struct {
	checker ProxyChecker
	pool    TaskExecutor
	logger  Logger
}

func NewValidateBatchUseCase(checker ProxyChecker, pool TaskExecutor, logger Logger) *ValidateBatchUseCase {
	return &ValidateBatchUseCase{
		checker: checker,
		pool:    pool,
		logger:  logger,
	}
}

// Execute probes every proxy through the executor, records each verdict on the
// proxy and returns the ones that passed once all probes have finished.
// Probes are detached from ctx cancellation so a started batch always drains.
func (uc *ValidateBatchUseCase) Execute(ctx context.Context, proxies []Verifiable) []Verifiable {
	ctx = context.WithoutCancel(ctx)
	started := time.Now()

	uc.logger.Info("starting proxy verification", "count", len(proxies))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		passed = make([]Verifiable, 0, len(proxies)/4)
		dead   atomic.Int64
	)

	for _, p := range proxies {
		p := p
		wg.Add(1)
		err := uc.pool.Submit(ctx, func(ctx context.Context) {
			defer wg.Done()

			res := uc.verify(ctx, p)
			if !res.Success {
				p.MarkFailure()
				dead.Add(1)
				uc.logger.Debug("proxy failed verification", "address", p.Address(), "error", res.Error)
				return
			}

			p.MarkSuccess(res.Latency, res.Anonymity)
			mu.Lock()
			passed = append(passed, p)
			mu.Unlock()
			uc.logger.Debug("proxy verified", "address", p.Address(), "latency", res.Latency, "anonymity", res.Anonymity)
		})
		if err != nil {
			wg.Done()
			p.MarkFailure()
			dead.Add(1)
			uc.logger.Warn("failed to schedule probe", "address", p.Address(), "error", fmt.Errorf("%w: %w", ErrSchedulerUnavailable, err))
		}
	}

	wg.Wait()

	uc.logger.Info("verification completed",
		"alive", len(passed),
		"dead", dead.Load(),
		"duration", time.Since(started),
	)
	return passed
}

func (uc *ValidateBatchUseCase) verify(ctx context.Context, p Verifiable) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Error: fmt.Errorf("%w: %v", ErrProbePanicked, r)}
		}
	}()
	return uc.checker.Verify(ctx, p)
}
