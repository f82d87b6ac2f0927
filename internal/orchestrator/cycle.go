// Package orchestrator implements the Cycle Orchestrator (C8): the
// single ordered pass over sentiment resolution, screening, signal
// scoring, risk-gated buy execution, and holdings-based sell
// execution described in spec.md §4.8.
package orchestrator

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/kis-autotrader/internal/apperrors"
	"github.com/aristath/kis-autotrader/internal/domain"
	"github.com/aristath/kis-autotrader/internal/executor"
	"github.com/aristath/kis-autotrader/internal/holdings"
	"github.com/aristath/kis-autotrader/internal/risk"
	"github.com/aristath/kis-autotrader/internal/screener"
	"github.com/aristath/kis-autotrader/internal/sentiment"
	"github.com/aristath/kis-autotrader/internal/signal"
	"github.com/aristath/kis-autotrader/internal/universe"
)

// Broker is the subset of the broker client the orchestrator needs
// directly (balance lookups; quote/order calls are delegated to the
// screener/executor/holdings collaborators).
type Broker interface {
	Balance() (domain.Balance, error)
}

// SentimentSource is the subset of the Sentiment Fuser the orchestrator
// needs. *sentiment.Fuser satisfies this.
type SentimentSource interface {
	Hybrid() (domain.HybridSentiment, error)
}

// AutoTrader wires together one full trading cycle. It owns the
// per-instance daily trade counter, reset on a KST calendar-day
// boundary.
type AutoTrader struct {
	broker   Broker
	fuser    SentimentSource
	screener *screener.Screener
	engine   *signal.Engine
	gate     *risk.Gate
	executor *executor.Executor
	holdings *holdings.Scanner
	universe *universe.Manager
	log      zerolog.Logger

	daily risk.DailyState

	startOfDayEquity float64
}

// New constructs an AutoTrader from its collaborators.
func New(broker Broker, fuser SentimentSource, scr *screener.Screener, engine *signal.Engine, gate *risk.Gate, exec *executor.Executor, hs *holdings.Scanner, uni *universe.Manager, log zerolog.Logger) *AutoTrader {
	return &AutoTrader{
		broker: broker, fuser: fuser, screener: scr, engine: engine,
		gate: gate, executor: exec, holdings: hs, universe: uni,
		log: log.With().Str("component", "orchestrator").Logger(),
	}
}

func kstDay(t time.Time) string {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}

func (a *AutoTrader) rolloverDailyState(now time.Time) {
	day := kstDay(now)
	if a.daily.Day != day {
		a.daily = risk.DailyState{Day: day}
		a.startOfDayEquity = 0
	}
}

// ScanUniverse resolves sentiment and screening for every symbol in
// the named universe and returns the composite signals, sorted by
// score descending with ties broken on symbol code. It performs no
// orders and no holdings sweep.
func (a *AutoTrader) ScanUniverse(universeName string, notionalCap float64) ([]domain.TradeSignal, error) {
	codes := a.universe.Get(universeName)
	if codes == nil {
		return nil, apperrors.NewValidation("unknown universe", map[string]interface{}{"universe": universeName})
	}

	hybrid, err := a.fuser.Hybrid()
	if err != nil {
		return nil, err
	}
	if hybrid.HighestUrgency != nil && *hybrid.HighestUrgency == domain.UrgencyCritical {
		return nil, nil
	}

	var signals []domain.TradeSignal
	for _, code := range codes {
		f, q, err := a.screener.Fundamentals(code)
		if err != nil {
			a.log.Warn().Err(apperrors.As(err)).Str("code", code).Msg("skipping symbol in scan")
			continue
		}
		screening := a.screener.Evaluate(f, q.PER)
		signals = append(signals, a.engine.Score(code, q, screening, &hybrid, nil, notionalCap))
	}

	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Score != signals[j].Score {
			return signals[i].Score > signals[j].Score
		}
		return signals[i].Symbol.Code < signals[j].Symbol.Code
	})
	return signals, nil
}

// RunCycle executes one full cycle per spec.md §4.8's ordered steps.
func (a *AutoTrader) RunCycle(cfg domain.AutoTraderConfig) domain.CycleResult {
	now := time.Now()
	a.rolloverDailyState(now)

	result := domain.CycleResult{Timestamp: now, Status: "completed", DryRun: cfg.DryRun}

	// Step 1: resolve hybrid sentiment.
	hybrid, err := a.fuser.Hybrid()
	if err != nil {
		result.Status = "error"
		result.Reason = err.Error()
		return result
	}
	result.SentimentScore = hybrid.HybridScore

	// Step 2: critical-news abort.
	if hybrid.HighestUrgency != nil && *hybrid.HighestUrgency == domain.UrgencyCritical {
		result.Status = "skipped"
		result.Reason = "critical news urgency, cycle aborted"
		return result
	}

	// Step 3: fetch universe.
	codes := a.universe.Get(cfg.UniverseName)
	if codes == nil {
		result.Status = "error"
		result.Reason = "unknown universe: " + cfg.UniverseName
		return result
	}

	// Step 4: per-symbol screening + signal scoring.
	var signals []domain.TradeSignal
	for _, code := range codes {
		f, q, err := a.screener.Fundamentals(code)
		if err != nil {
			a.log.Warn().Err(apperrors.As(err)).Str("code", code).Msg("skipping symbol in cycle")
			continue
		}
		screening := a.screener.Evaluate(f, q.PER)
		signals = append(signals, a.engine.Score(code, q, screening, &hybrid, nil, cfg.MaxNotionalKRW))
	}
	result.Scanned = len(signals)

	var buyCandidates []domain.TradeSignal
	for _, s := range signals {
		if s.SignalType == domain.SignalBuy || s.SignalType == domain.SignalStrongBuy {
			buyCandidates = append(buyCandidates, s)
		}
	}
	sort.Slice(buyCandidates, func(i, j int) bool {
		if buyCandidates[i].Score != buyCandidates[j].Score {
			return buyCandidates[i].Score > buyCandidates[j].Score
		}
		return buyCandidates[i].Symbol.Code < buyCandidates[j].Symbol.Code
	})
	result.BuySignals = buyCandidates

	// Step 5: fetch balance once; derive equity and aggregate exposure.
	balance, err := a.broker.Balance()
	if err != nil {
		result.Status = "error"
		result.Reason = err.Error()
		return result
	}
	totalEquity := balance.Summary.TotalEvaluation
	if a.startOfDayEquity == 0 {
		a.startOfDayEquity = totalEquity
	}

	var aggregateExposure float64
	if totalEquity > 0 {
		for _, p := range balance.Positions {
			aggregateExposure += p.CurrentPrice * float64(p.Quantity) / totalEquity
		}
	}

	// Daily-loss circuit breaker: abort the buy phase only.
	breakerTripped := a.gate.CheckDailyLossBreaker(cfg.RiskLimits, totalEquity, a.startOfDayEquity) != nil

	// Step 6: risk-gated buy execution.
	if !breakerTripped {
		for _, s := range buyCandidates {
			multiplier := sentiment.BuyMultiplier(scoreToFearGreed(hybrid))
			quote, err := a.currentPrice(s.Symbol)
			if err != nil {
				continue
			}
			decision := a.gate.Evaluate(s, cfg.RiskLimits, a.daily.TradeCount, aggregateExposure, multiplier, quote, totalEquity, cfg.MaxNotionalKRW)
			if !decision.Accept {
				continue
			}
			trade, err := a.executor.Buy(s.Symbol, decision.Qty, cfg.DryRun)
			if err != nil {
				a.log.Warn().Err(apperrors.As(err)).Str("code", s.Symbol.Code).Msg("buy execution failed, skipping")
				continue
			}
			result.ExecutedBuys = append(result.ExecutedBuys, trade)
			a.daily.TradeCount++
			if totalEquity > 0 {
				aggregateExposure += trade.Notional / totalEquity
			}
		}
	} else {
		result.Reason = "daily loss circuit breaker tripped, buy phase skipped"
	}

	// Step 7: holdings sweep.
	sellSignals := a.holdings.Scan(balance.Positions, &hybrid, cfg.MaxNotionalKRW)
	result.SellSignals = sellSignals
	heldQty := map[string]int{}
	for _, p := range balance.Positions {
		heldQty[p.Symbol.Code] = p.Quantity
	}
	for _, s := range sellSignals {
		qty := heldQty[s.Symbol.Code]
		if qty <= 0 {
			continue
		}
		trade, err := a.executor.Sell(s.Symbol, qty, cfg.DryRun)
		if err != nil {
			a.log.Warn().Err(apperrors.As(err)).Str("code", s.Symbol.Code).Msg("sell execution failed, skipping")
			continue
		}
		result.ExecutedSells = append(result.ExecutedSells, trade)
	}

	// Step 8: emit CycleResult (returned to caller, who appends to history).
	return result
}

// currentPrice re-quotes a symbol for sizing purposes.
func (a *AutoTrader) currentPrice(sym domain.Symbol) (float64, error) {
	f, q, err := a.screener.Fundamentals(sym.Code)
	if err != nil {
		return 0, err
	}
	_ = f
	return q.Price, nil
}

// scoreToFearGreed recovers the [0,100] fear/greed reading from a
// hybrid snapshot for the buy-multiplier lookup.
func scoreToFearGreed(h domain.HybridSentiment) float64 {
	return h.FearGreedRaw.Score
}
