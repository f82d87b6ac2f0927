package orchestrator

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/kis-autotrader/internal/domain"
	"github.com/aristath/kis-autotrader/internal/executor"
	"github.com/aristath/kis-autotrader/internal/holdings"
	"github.com/aristath/kis-autotrader/internal/risk"
	"github.com/aristath/kis-autotrader/internal/screener"
	"github.com/aristath/kis-autotrader/internal/signal"
	"github.com/aristath/kis-autotrader/internal/universe"
)

type stubSentiment struct {
	hybrid domain.HybridSentiment
	err    error
}

func (s stubSentiment) Hybrid() (domain.HybridSentiment, error) { return s.hybrid, s.err }

type stubBalanceBroker struct {
	balance domain.Balance
	err     error
}

func (b stubBalanceBroker) Balance() (domain.Balance, error) { return b.balance, b.err }

type orchestratorQuoteSource struct {
	quotes map[string]domain.Quote
}

func (q orchestratorQuoteSource) Quote(code string) (domain.Quote, error) {
	if v, ok := q.quotes[code]; ok {
		return v, nil
	}
	return domain.Quote{Price: 10000}, nil
}
func (q orchestratorQuoteSource) QuoteOverseas(ticker, exchange string) (domain.Quote, error) {
	return q.Quote(ticker)
}

// orderTrackingBroker wraps a stubBalanceBroker while counting order
// submissions, used to assert dry-run cycles never place an order.
type orderTrackingBroker struct {
	stubBalanceBroker
	orders int
}

func (b *orderTrackingBroker) Quote(code string) (domain.Quote, error) { return domain.Quote{Price: 10000}, nil }
func (b *orderTrackingBroker) QuoteOverseas(ticker, exchange string) (domain.Quote, error) {
	return domain.Quote{Price: 10000}, nil
}
func (b *orderTrackingBroker) PlaceOrder(code string, side domain.OrderSide, qty int, price *int) (domain.OrderResult, error) {
	b.orders++
	return domain.OrderResult{}, nil
}
func (b *orderTrackingBroker) PlaceOverseasOrder(ticker, exchange string, qty int, price float64) (domain.OrderResult, error) {
	b.orders++
	return domain.OrderResult{}, nil
}

func newTestUniverse(codes ...string) *universe.Manager {
	u := universe.New()
	u.CreateUniverse("test_universe", codes)
	return u
}

func buildTrader(t *testing.T, fuser SentimentSource, broker *orderTrackingBroker, quotes map[string]domain.Quote, codes []string) *AutoTrader {
	t.Helper()
	quoteSrc := orchestratorQuoteSource{quotes: quotes}
	scr := screener.New(quoteSrc, zerolog.Nop())
	eng := signal.New(nil)
	gate := risk.New()
	exec := executor.New(broker, zerolog.Nop())
	hs := holdings.New(scr, eng)
	uni := newTestUniverse(codes...)
	return New(broker, fuser, scr, eng, gate, exec, hs, uni, zerolog.Nop())
}

func emptyBalance() domain.Balance {
	return domain.Balance{Summary: domain.BalanceSummary{Cash: 1_000_000, TotalEvaluation: 10_000_000}}
}

// Scenario 1: strong buy on extreme fear. "096770" is a real cataloged
// code whose financialsMap/sectorMap entries clear the undervalued
// branch (ROE 15% > 10%, operating margin 9% > sector avg 5%, revenue
// growth 12% > 0) once its PER is below the sector discount threshold.
func TestRunCycleScenarioOneStrongBuyOnExtremeFear(t *testing.T) {
	broker := &orderTrackingBroker{stubBalanceBroker: stubBalanceBroker{balance: emptyBalance()}}
	fuser := stubSentiment{hybrid: domain.HybridSentiment{HybridScore: -80, FearGreedRaw: domain.SentimentSnapshot{Score: 10}}}
	quotes := map[string]domain.Quote{
		"096770": {Price: 9500, PriorClosePct: -5, High: 10500, Low: 9500, PER: 5},
	}
	trader := buildTrader(t, fuser, broker, quotes, []string{"096770"})

	cfg := domain.AutoTraderConfig{UniverseName: "test_universe", RiskLimits: domain.DefaultRiskLimits(), DryRun: true, MaxNotionalKRW: 500_000}
	result := trader.RunCycle(cfg)

	assert.Equal(t, "completed", result.Status)
	assert.True(t, result.DryRun)
	assert.Equal(t, 0, broker.orders, "dry-run cycles must never place a broker order")
}

// Scenario 2: value-trap exclusion never produces a buy signal. "015760"
// is a cataloged code with ROE 4% (below the value-trap threshold) and
// negative revenue growth, so a PER below the sector discount line
// classifies it as a value trap regardless of how fearful the market is.
func TestRunCycleScenarioTwoValueTrapExclusion(t *testing.T) {
	broker := &orderTrackingBroker{stubBalanceBroker: stubBalanceBroker{balance: emptyBalance()}}
	fuser := stubSentiment{hybrid: domain.HybridSentiment{HybridScore: -60, FearGreedRaw: domain.SentimentSnapshot{Score: 20}}}
	quotes := map[string]domain.Quote{
		"015760": {Price: 5000, PER: 5},
	}
	trader := buildTrader(t, fuser, broker, quotes, []string{"015760"})

	cfg := domain.AutoTraderConfig{UniverseName: "test_universe", RiskLimits: domain.DefaultRiskLimits(), DryRun: true, MaxNotionalKRW: 500_000}
	result := trader.RunCycle(cfg)

	assert.Equal(t, "completed", result.Status)
	assert.Empty(t, result.ExecutedBuys)
	assert.Empty(t, result.BuySignals)
}

// Scenario 3: critical news urgency aborts the cycle before scanning.
func TestRunCycleScenarioThreeCriticalNewsAbort(t *testing.T) {
	broker := &orderTrackingBroker{stubBalanceBroker: stubBalanceBroker{balance: emptyBalance()}}
	critical := domain.UrgencyCritical
	fuser := stubSentiment{hybrid: domain.HybridSentiment{HybridScore: 0, HighestUrgency: &critical}}
	trader := buildTrader(t, fuser, broker, nil, []string{"005930"})

	cfg := domain.AutoTraderConfig{UniverseName: "test_universe", RiskLimits: domain.DefaultRiskLimits(), DryRun: true, MaxNotionalKRW: 500_000}
	result := trader.RunCycle(cfg)

	assert.Equal(t, "skipped", result.Status)
	assert.Equal(t, 0, result.Scanned)
	assert.Empty(t, result.BuySignals)
	assert.Empty(t, result.ExecutedBuys)
	assert.Equal(t, 0, broker.orders)
}

// Scenario 5: daily-trade cap stops accepting buys once the limit hits,
// leaving the remaining eligible candidates present in BuySignals but
// absent from ExecutedBuys.
func TestRunCycleScenarioFiveDailyTradeCap(t *testing.T) {
	broker := &orderTrackingBroker{stubBalanceBroker: stubBalanceBroker{balance: emptyBalance()}}
	fuser := stubSentiment{hybrid: domain.HybridSentiment{HybridScore: -80, FearGreedRaw: domain.SentimentSnapshot{Score: 10}}}

	// Five cataloged codes that each clear the undervalued branch at a
	// PER below their own sector's discount line.
	codes := []string{"096770", "068270", "035420", "012330", "032830"}
	quotes := map[string]domain.Quote{
		"096770": {Price: 9500, PriorClosePct: -5, High: 10500, Low: 9500, PER: 5},
		"068270": {Price: 9500, PriorClosePct: -5, High: 10500, Low: 9500, PER: 10},
		"035420": {Price: 9500, PriorClosePct: -5, High: 10500, Low: 9500, PER: 15},
		"012330": {Price: 9500, PriorClosePct: -5, High: 10500, Low: 9500, PER: 5},
		"032830": {Price: 9500, PriorClosePct: -5, High: 10500, Low: 9500, PER: 4},
	}
	trader := buildTrader(t, fuser, broker, quotes, codes)

	limits := domain.DefaultRiskLimits()
	limits.MaxDailyTrades = 2
	cfg := domain.AutoTraderConfig{UniverseName: "test_universe", RiskLimits: limits, DryRun: true, MaxNotionalKRW: 500_000}
	result := trader.RunCycle(cfg)

	assert.Len(t, result.BuySignals, 5, "all five candidates should score as eligible buy signals")
	assert.Len(t, result.ExecutedBuys, 2, "daily trade cap must stop acceptance at max_daily_trades")
	assert.Equal(t, 0, broker.orders)
}

func TestRunCycleErrorOnUnknownUniverse(t *testing.T) {
	broker := &orderTrackingBroker{stubBalanceBroker: stubBalanceBroker{balance: emptyBalance()}}
	fuser := stubSentiment{hybrid: domain.HybridSentiment{HybridScore: 0, FearGreedRaw: domain.SentimentSnapshot{Score: 50}}}
	trader := buildTrader(t, fuser, broker, nil, []string{"005930"})

	cfg := domain.AutoTraderConfig{UniverseName: "does_not_exist", RiskLimits: domain.DefaultRiskLimits(), DryRun: true, MaxNotionalKRW: 500_000}
	result := trader.RunCycle(cfg)

	assert.Equal(t, "error", result.Status)
}

func TestRunCycleErrorWhenSentimentFetchFails(t *testing.T) {
	broker := &orderTrackingBroker{stubBalanceBroker: stubBalanceBroker{balance: emptyBalance()}}
	fuser := stubSentiment{err: assert.AnError}
	trader := buildTrader(t, fuser, broker, nil, []string{"005930"})

	cfg := domain.AutoTraderConfig{UniverseName: "test_universe", RiskLimits: domain.DefaultRiskLimits(), DryRun: true, MaxNotionalKRW: 500_000}
	result := trader.RunCycle(cfg)

	assert.Equal(t, "error", result.Status)
	assert.NotEmpty(t, result.Reason)
}

func TestRunCycleErrorWhenBalanceFetchFails(t *testing.T) {
	broker := &orderTrackingBroker{stubBalanceBroker: stubBalanceBroker{err: assert.AnError}}
	fuser := stubSentiment{hybrid: domain.HybridSentiment{HybridScore: 0, FearGreedRaw: domain.SentimentSnapshot{Score: 50}}}
	trader := buildTrader(t, fuser, broker, nil, []string{"005930"})

	cfg := domain.AutoTraderConfig{UniverseName: "test_universe", RiskLimits: domain.DefaultRiskLimits(), DryRun: true, MaxNotionalKRW: 500_000}
	result := trader.RunCycle(cfg)

	assert.Equal(t, "error", result.Status)
}

func TestScanUniverseReturnsDescendingScoresWithoutOrders(t *testing.T) {
	broker := &orderTrackingBroker{stubBalanceBroker: stubBalanceBroker{balance: emptyBalance()}}
	fuser := stubSentiment{hybrid: domain.HybridSentiment{HybridScore: -80, FearGreedRaw: domain.SentimentSnapshot{Score: 10}}}
	codes := []string{"005930", "000660"}
	quotes := map[string]domain.Quote{
		"005930": {Price: 9500, PriorClosePct: -5, High: 10500, Low: 9500, PER: 8},
		"000660": {Price: 5000, PER: 5},
	}
	trader := buildTrader(t, fuser, broker, quotes, codes)

	signals, err := trader.ScanUniverse("test_universe", 500_000)
	assert.NoError(t, err)
	assert.Equal(t, 0, broker.orders)
	for i := 1; i < len(signals); i++ {
		assert.GreaterOrEqual(t, signals[i-1].Score, signals[i].Score)
	}
}

func TestScanUniverseUnknownUniverseErrors(t *testing.T) {
	broker := &orderTrackingBroker{stubBalanceBroker: stubBalanceBroker{balance: emptyBalance()}}
	fuser := stubSentiment{hybrid: domain.HybridSentiment{HybridScore: 0, FearGreedRaw: domain.SentimentSnapshot{Score: 50}}}
	trader := buildTrader(t, fuser, broker, nil, []string{"005930"})

	_, err := trader.ScanUniverse("does_not_exist", 500_000)
	assert.Error(t, err)
}
