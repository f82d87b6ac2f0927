package scheduler

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/kis-autotrader/internal/domain"
)

type stubTrader struct {
	calls  int
	result domain.CycleResult
}

func (s *stubTrader) RunCycle(cfg domain.AutoTraderConfig) domain.CycleResult {
	s.calls++
	return s.result
}

func defaultCfgFn() domain.AutoTraderConfig {
	return domain.DefaultAutoTraderConfig()
}

func TestStartRejectsOutOfRangeInterval(t *testing.T) {
	s := New(&stubTrader{}, defaultCfgFn, nil, zerolog.Nop())

	err := s.Start(0, true, false)
	assert.Error(t, err)

	err = s.Start(481*time.Minute, true, false)
	assert.Error(t, err)
	assert.Equal(t, StateStopped, s.Status().State)
}

func TestStartIsIdempotentWhileRunning(t *testing.T) {
	s := New(&stubTrader{}, defaultCfgFn, nil, zerolog.Nop())
	defer s.Stop()

	assert.NoError(t, s.Start(time.Minute, true, false))
	assert.Equal(t, StateRunning, s.Status().State)
	assert.NoError(t, s.Start(5*time.Minute, true, false)) // no-op, does not change config
	assert.Equal(t, time.Minute, s.Status().Interval)
}

func TestStopIsIdempotentWhenStopped(t *testing.T) {
	s := New(&stubTrader{}, defaultCfgFn, nil, zerolog.Nop())
	s.Stop() // must not panic on a never-started scheduler
	assert.Equal(t, StateStopped, s.Status().State)
}

func TestRecordResultRingBufferOverflow(t *testing.T) {
	s := New(&stubTrader{}, defaultCfgFn, nil, zerolog.Nop())

	for i := 0; i < historyCapacity+10; i++ {
		s.recordResult(domain.CycleResult{Scanned: i})
	}

	all := s.History(0)
	assert.Len(t, all, historyCapacity)
	// Newest first: the very last recorded result (Scanned =
	// historyCapacity+9) must be at index 0.
	assert.Equal(t, historyCapacity+9, all[0].Scanned)
	// Oldest retained entry is the 11th recorded (indices 0..9 evicted).
	assert.Equal(t, 10, all[len(all)-1].Scanned)
}

func TestHistoryRespectsLimit(t *testing.T) {
	s := New(&stubTrader{}, defaultCfgFn, nil, zerolog.Nop())
	for i := 0; i < 5; i++ {
		s.recordResult(domain.CycleResult{Scanned: i})
	}
	limited := s.History(2)
	assert.Len(t, limited, 2)
	assert.Equal(t, 4, limited[0].Scanned)
	assert.Equal(t, 3, limited[1].Scanned)
}

func TestHistoryBeforeCapacityOrdersNewestFirst(t *testing.T) {
	s := New(&stubTrader{}, defaultCfgFn, nil, zerolog.Nop())
	for i := 0; i < 3; i++ {
		s.recordResult(domain.CycleResult{Scanned: i})
	}
	all := s.History(0)
	assert.Equal(t, []int{2, 1, 0}, []int{all[0].Scanned, all[1].Scanned, all[2].Scanned})
}

type panickingTrader struct{}

func (panickingTrader) RunCycle(cfg domain.AutoTraderConfig) domain.CycleResult {
	panic("boom")
}

func TestRunCycleSafelyRecoversFromPanic(t *testing.T) {
	s := New(panickingTrader{}, defaultCfgFn, nil, zerolog.Nop())
	result := s.runCycleSafely(defaultCfgFn())
	assert.Equal(t, "error", result.Status)
}

type recordingPersister struct {
	appended []domain.CycleResult
}

func (p *recordingPersister) Append(result domain.CycleResult) {
	p.appended = append(p.appended, result)
}

func TestRecordResultCallsPersister(t *testing.T) {
	persister := &recordingPersister{}
	s := New(&stubTrader{}, defaultCfgFn, persister, zerolog.Nop())
	s.recordResult(domain.CycleResult{Scanned: 7})
	assert.Len(t, persister.appended, 1)
	assert.Equal(t, 7, persister.appended[0].Scanned)
}

func TestStatusReflectsTotalCyclesAndLastResult(t *testing.T) {
	s := New(&stubTrader{}, defaultCfgFn, nil, zerolog.Nop())
	s.recordResult(domain.CycleResult{Status: "ok", Scanned: 1})
	s.recordResult(domain.CycleResult{Status: "ok", Scanned: 2})

	status := s.Status()
	assert.Equal(t, 2, status.TotalCycles)
	assert.NotNil(t, status.LastResult)
	assert.Equal(t, 2, status.LastResult.Scanned)
}
