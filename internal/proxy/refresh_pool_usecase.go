package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/common/events"
	"github.com/JulianoL13/proxy-rotator/internal/common/logs"
	"github.com/google/uuid"
)

type ProxyDataInput interface {
	IP() string
	Port() int
	Protocol() string
	Source() string
	Country() string
	Anonymity() string
}

type ProxySource interface {
	Fetch(ctx context.Context) ([]ProxyDataInput, []error)
}

// BatchValidator probes every candidate, records the verdict on it and returns
// the ones that passed.
type BatchValidator interface {
	ValidateBatch(ctx context.Context, proxies []*Proxy) []*Proxy
}

type Notifier interface {
	Notify(ctx context.Context, event events.PoolRefreshedEvent) error
}

type State int32

const (
	StateIdle State = iota
	StateFetching
	StateValidating
	StateSwapping
	StatePersisting
	StateSleeping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateValidating:
		return "validating"
	case StateSwapping:
		return "swapping"
	case StatePersisting:
		return "persisting"
	case StateSleeping:
		return "sleeping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

const (
	DefaultCheckInterval = time.Hour
	DefaultRetryBackoff  = time.Minute
)

type RefreshConfig struct {
	Interval     time.Duration
	RetryBackoff time.Duration
	MinUptime    float64
	MaxAge       time.Duration
}

func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval:     DefaultCheckInterval,
		RetryBackoff: DefaultRetryBackoff,
		MinUptime:    DefaultMinUptime,
		MaxAge:       DefaultMaxAge,
	}
}

type RefreshPoolUseCase struct {
	source    ProxySource
	validator BatchValidator
	store     Store
	pool      *Pool
	rotator   *Rotator
	notifier  Notifier
	cfg       RefreshConfig
	logger    logs.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	state     atomic.Int32
}

func NewRefreshPoolUseCase(
	source ProxySource,
	validator BatchValidator,
	store Store,
	pool *Pool,
	rotator *Rotator,
	cfg RefreshConfig,
	logger logs.Logger,
) *RefreshPoolUseCase {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultCheckInterval
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	return &RefreshPoolUseCase{
		source:    source,
		validator: validator,
		store:     store,
		pool:      pool,
		rotator:   rotator,
		cfg:       cfg,
		logger:    logger,
		sleep:     sleepContext,
	}
}

func (uc *RefreshPoolUseCase) WithNotifier(n Notifier) *RefreshPoolUseCase {
	uc.notifier = n
	return uc
}

// WithSleep replaces the wait between cycles.
func (uc *RefreshPoolUseCase) WithSleep(fn func(ctx context.Context, d time.Duration) error) *RefreshPoolUseCase {
	uc.sleep = fn
	return uc
}

func (uc *RefreshPoolUseCase) State() State {
	return State(uc.state.Load())
}

func (uc *RefreshPoolUseCase) setState(s State) {
	uc.state.Store(int32(s))
}

// Execute warms the pool from the store and then refreshes it until ctx is
// cancelled. Cycle failures are logged and retried after RetryBackoff.
func (uc *RefreshPoolUseCase) Execute(ctx context.Context) error {
	uc.logger.Info("starting refresh loop",
		"interval", uc.cfg.Interval,
		"retry_backoff", uc.cfg.RetryBackoff,
		"min_uptime", uc.cfg.MinUptime,
		"max_age", uc.cfg.MaxAge,
	)
	defer uc.setState(StateIdle)

	uc.warm(ctx)

	for {
		wait := uc.cfg.Interval
		if err := uc.RunCycle(ctx); err != nil {
			uc.logger.Error("refresh cycle failed", "error", err, "retry_in", uc.cfg.RetryBackoff)
			wait = uc.cfg.RetryBackoff
		}

		uc.setState(StateSleeping)
		if err := uc.sleep(ctx, wait); err != nil {
			uc.logger.Info("refresh loop stopped")
			return err
		}
	}
}

func (uc *RefreshPoolUseCase) warm(ctx context.Context) {
	cached, err := uc.store.Load(ctx, uc.cfg.MinUptime, uc.cfg.MaxAge)
	if err != nil {
		uc.logger.Warn("failed to load cached proxies", "error", err)
		return
	}
	if len(cached) == 0 {
		return
	}

	uc.pool.Replace(cached)
	uc.logger.Info("warmed pool from store", "count", len(cached))
	uc.ensureSelection()
}

// RunCycle performs one fetch, validate, swap and persist pass. The pool is
// left untouched when it returns an error.
func (uc *RefreshPoolUseCase) RunCycle(ctx context.Context) (err error) {
	cycleID := uuid.NewString()
	logger := uc.logger.With("cycle_id", cycleID)
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCyclePanicked, r)
		}
	}()

	uc.setState(StateFetching)
	candidates, err := uc.fetch(ctx, logger)
	if err != nil {
		return err
	}
	uc.seed(ctx, candidates, logger)
	baseline := make([]Outcome, len(candidates))
	for i, p := range candidates {
		baseline[i] = Outcome{Address: p.Address(), Successes: p.SuccessCount, Failures: p.FailCount}
	}

	uc.setState(StateValidating)
	alive := uc.validator.ValidateBatch(ctx, candidates)

	uc.setState(StateSwapping)
	uc.pool.Replace(alive)

	uc.setState(StatePersisting)
	persisted := true
	if err := uc.persist(context.WithoutCancel(ctx), candidates, baseline); err != nil {
		persisted = false
		logger.Error("keeping in-memory pool only", "error", fmt.Errorf("%w: %w", ErrPersistenceFailed, err))
	}

	uc.ensureSelection()

	event := events.PoolRefreshedEvent{
		CycleID:    cycleID,
		Candidates: len(candidates),
		Alive:      len(alive),
		Persisted:  persisted,
		Duration:   time.Since(started),
		FinishedAt: time.Now(),
	}
	if uc.notifier != nil {
		if err := uc.notifier.Notify(ctx, event); err != nil {
			logger.Warn("failed to publish refresh event", "error", err)
		}
	}

	logger.Info("refresh cycle complete",
		"candidates", event.Candidates,
		"alive", event.Alive,
		"dead", event.Candidates-event.Alive,
		"persisted", persisted,
		"duration", event.Duration,
	)
	return nil
}

func (uc *RefreshPoolUseCase) fetch(ctx context.Context, logger logs.Logger) ([]*Proxy, error) {
	data, errs := uc.source.Fetch(ctx)
	for _, e := range errs {
		logger.Warn("source fetch failed", "error", e)
	}

	unique := make(map[string]*Proxy, len(data))
	order := make([]string, 0, len(data))
	invalid := 0
	for _, d := range data {
		p := NewProxy(d.IP(), d.Port(), ProtocolFromString(d.Protocol()), d.Source())
		p.Country = d.Country()
		p.Anonymity = AnonymityLevelFromString(d.Anonymity())

		if err := p.Validate(); err != nil {
			invalid++
			continue
		}
		if _, ok := unique[p.Address()]; !ok {
			order = append(order, p.Address())
		}
		unique[p.Address()] = p
	}

	logger.Info("fetched candidates", "raw", len(data), "unique", len(unique), "invalid", invalid, "source_errors", len(errs))

	if len(unique) == 0 {
		if len(errs) > 0 {
			return nil, fmt.Errorf("%w: %w", ErrNoCandidates, errors.Join(errs...))
		}
		return nil, ErrNoCandidates
	}

	candidates := make([]*Proxy, len(order))
	for i, addr := range order {
		candidates[i] = unique[addr]
	}
	return candidates, nil
}

func (uc *RefreshPoolUseCase) seed(ctx context.Context, candidates []*Proxy, logger logs.Logger) {
	addresses := make([]string, len(candidates))
	for i, p := range candidates {
		addresses[i] = p.Address()
	}

	history, err := uc.store.Get(ctx, addresses)
	if err != nil {
		logger.Warn("failed to read proxy history", "error", err)
		return
	}

	for _, p := range candidates {
		p.MergeHistory(history[p.Address()])
	}
}

// persist writes the probed candidates with their pre-cycle counters and then
// adds this cycle's verdicts as increments, so outcomes reported while the
// batch was running are kept.
func (uc *RefreshPoolUseCase) persist(ctx context.Context, candidates []*Proxy, baseline []Outcome) error {
	records := make([]*Proxy, len(candidates))
	outcomes := make([]Outcome, 0, len(candidates))
	for i, p := range candidates {
		rec := p.Clone()
		rec.SuccessCount = baseline[i].Successes
		rec.FailCount = baseline[i].Failures
		records[i] = rec

		o := Outcome{
			Address:   p.Address(),
			Successes: p.SuccessCount - baseline[i].Successes,
			Failures:  p.FailCount - baseline[i].Failures,
		}
		if !o.Empty() {
			outcomes = append(outcomes, o)
		}
	}

	if err := uc.store.UpsertMany(ctx, records); err != nil {
		return err
	}
	if len(outcomes) == 0 {
		return nil
	}
	return uc.store.RecordOutcomes(ctx, outcomes)
}

func (uc *RefreshPoolUseCase) ensureSelection() {
	if _, ok := uc.rotator.Current(); ok {
		return
	}
	uc.rotator.Select()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
