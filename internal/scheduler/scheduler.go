// Package scheduler implements the Scheduler (C9): a fixed-interval,
// market-hours-gated timer loop owning a bounded ring of CycleResult
// history, per spec.md §4.9. It deliberately does not use robfig/cron
// (a cron expression can't express the market-hours gate directly);
// the lower-frequency housekeeping job keeps that dependency wired in
// package housekeeping instead.
package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/kis-autotrader/internal/apperrors"
	"github.com/aristath/kis-autotrader/internal/domain"
)

const historyCapacity = 100

// AutoTrader is the subset of the Cycle Orchestrator the scheduler
// drives. It is satisfied by *orchestrator.AutoTrader.
type AutoTrader interface {
	RunCycle(cfg domain.AutoTraderConfig) domain.CycleResult
}

// State is the scheduler's lifecycle state.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// Status is a point-in-time snapshot returned by GET /scheduler/status.
type Status struct {
	State       State
	Interval    time.Duration
	KROnly      bool
	USEnabled   bool
	NextRun     time.Time
	TotalCycles int
	LastResult  *domain.CycleResult
}

// Scheduler owns one background tick loop. All mutable state is
// guarded by mu; a running cycle is never cancelled mid-flight (Stop
// only cancels the timer, per spec.md §5).
type Scheduler struct {
	trader AutoTrader
	cfgFn  func() domain.AutoTraderConfig
	log    zerolog.Logger

	mu          sync.Mutex
	state       State
	interval    time.Duration
	krOnly      bool
	usEnabled   bool
	nextRun     time.Time
	totalCycles int
	history     []domain.CycleResult // ring buffer; once full, historyHead indexes the oldest entry
	historyHead int
	lastResult  *domain.CycleResult

	stopCh    chan struct{}
	inTick    sync.Mutex // serialises tick execution; an overlapping tick is skipped, not queued
	persister Persister
}

// Persister is the optional durability layer underneath the in-memory
// ring (package persistence's HistoryStore satisfies this). A nil
// persister disables persistence entirely; the ring buffer remains
// authoritative either way.
type Persister interface {
	Append(result domain.CycleResult)
}

// New constructs a Scheduler. cfgFn supplies the current
// AutoTraderConfig at the start of each tick (copy-on-write read).
// persister may be nil.
func New(trader AutoTrader, cfgFn func() domain.AutoTraderConfig, persister Persister, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		trader:    trader,
		cfgFn:     cfgFn,
		persister: persister,
		log:    log.With().Str("component", "scheduler").Logger(),
		state:  StateStopped,
	}
}

// Start begins the periodic tick loop. No-op if already Running.
// interval must be between 1 and 480 minutes.
func (s *Scheduler) Start(interval time.Duration, krOnly, usEnabled bool) error {
	if interval < time.Minute || interval > 480*time.Minute {
		return apperrors.NewValidation("scheduler interval out of range", map[string]interface{}{
			"interval_minutes": interval.Minutes(),
		})
	}

	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return nil
	}

	s.interval = interval
	s.krOnly = krOnly
	s.usEnabled = usEnabled
	s.state = StateRunning
	s.nextRun = time.Now().Add(interval)
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	go s.loop(stopCh)
	s.log.Info().Dur("interval", interval).Bool("kr_only", krOnly).Bool("us_enabled", usEnabled).Msg("scheduler started")
	return nil
}

// Stop cancels the periodic timer. No-op if already Stopped. The
// in-flight tick, if any, runs to completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return
	}
	close(s.stopCh)
	s.state = StateStopped
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) loop(stopCh chan struct{}) {
	s.mu.Lock()
	interval := s.interval
	s.mu.Unlock()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-timer.C:
			s.tick()

			s.mu.Lock()
			s.nextRun = time.Now().Add(s.interval)
			interval = s.interval
			s.mu.Unlock()
			timer.Reset(interval)
		}
	}
}

// tick runs at most one cycle at a time; a tick that arrives while
// another is still executing is coalesced (skipped), per spec.md §5.
func (s *Scheduler) tick() {
	if !s.inTick.TryLock() {
		s.log.Warn().Msg("tick skipped, previous cycle still running")
		return
	}
	defer s.inTick.Unlock()

	s.mu.Lock()
	krOnly, usEnabled := s.krOnly, s.usEnabled
	s.mu.Unlock()

	now := nowKST()
	krOpen := isKRMarketOpen(now)
	usOpen := isUSMarketOpen(now)
	shouldRun := (krOnly && krOpen) || (usEnabled && usOpen) || (!krOnly && !usEnabled)

	var result domain.CycleResult
	if !shouldRun {
		result = domain.CycleResult{
			Timestamp: time.Now(),
			Status:    "skipped",
			Reason:    "market closed for the configured gating policy",
		}
	} else {
		cfg := s.cfgFn()
		result = s.runCycleSafely(cfg)
	}

	s.recordResult(result)
}

// runCycleSafely converts a cycle-level panic (e.g. an unexpected
// collaborator failure) into an error CycleResult so one bad tick
// never kills the scheduler loop, per spec.md §4.8's "the next tick
// still fires" guarantee.
func (s *Scheduler) runCycleSafely(cfg domain.AutoTraderConfig) (result domain.CycleResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("cycle panicked, recorded as error result")
			result = domain.CycleResult{Timestamp: time.Now(), Status: "error", Reason: "cycle panicked"}
		}
	}()
	return s.trader.RunCycle(cfg)
}

func (s *Scheduler) recordResult(result domain.CycleResult) {
	s.mu.Lock()
	if len(s.history) < historyCapacity {
		s.history = append(s.history, result)
	} else {
		s.history[s.historyHead] = result
		s.historyHead = (s.historyHead + 1) % historyCapacity
	}
	s.totalCycles++
	r := result
	s.lastResult = &r
	persister := s.persister
	s.mu.Unlock()

	if persister != nil {
		persister.Append(result)
	}
}

// History returns the most recent limit CycleResults, newest first. A
// limit <= 0 returns the full retained history.
func (s *Scheduler) History(limit int) []domain.CycleResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := make([]domain.CycleResult, len(s.history))
	if len(s.history) < historyCapacity {
		copy(ordered, s.history)
	} else {
		for i := 0; i < historyCapacity; i++ {
			ordered[i] = s.history[(s.historyHead+i)%historyCapacity]
		}
	}
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}
	if limit > 0 && limit < len(ordered) {
		ordered = ordered[:limit]
	}
	return ordered
}

// Status returns a point-in-time snapshot of the scheduler's state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State: s.state, Interval: s.interval, KROnly: s.krOnly, USEnabled: s.usEnabled,
		NextRun: s.nextRun, TotalCycles: s.totalCycles, LastResult: s.lastResult,
	}
}
